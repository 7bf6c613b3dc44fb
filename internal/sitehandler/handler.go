package sitehandler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/socialblog/internal/blog"
	"github.com/keithlinneman/socialblog/internal/cryptoutil"
	"github.com/keithlinneman/socialblog/internal/pathutil"
	"github.com/keithlinneman/socialblog/internal/render"
)

// page kinds used for the page_not_found_total label
const (
	pageCategory = "category"
	pagePost     = "post"
	pageStatic   = "static"
	pageOther    = "other"
)

type Handler struct {
	opts Options
}

func New(opts Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: opts}, nil
}

// RegisterRoutes mounts the public pages. It also takes over NotFound and
// MethodNotAllowed for r, so register it after any other route groups.
func (h *Handler) RegisterRoutes(r chi.Router) {
	// HEAD is routed explicitly; net/http drops the body
	get := func(pattern string, fn http.HandlerFunc) {
		r.Get(pattern, fn)
		r.Head(pattern, fn)
	}
	get("/", h.home)
	get("/posts/{slug}", h.post)
	get("/categories/{slug}", h.category)
	get("/feed.xml", h.feed)
	get("/sitemap.xml", h.sitemap)
	get("/static/*", h.static)
	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.methodNotAllowed)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	page, err := h.opts.Pages.Home(r.Context())
	if err != nil {
		h.fail(w, r, pageOther, err)
		return
	}
	h.writePage(w, r, http.StatusOK, func(buf io.Writer) error {
		return h.opts.Renderer.Home(buf, page)
	})
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	slug, ok := pathutil.SlugParam(r, "slug")
	if !ok {
		h.serveNotFound(w, r, pagePost)
		return
	}
	page, err := h.opts.Pages.Post(r.Context(), slug)
	if err != nil {
		h.fail(w, r, pagePost, err)
		return
	}
	h.writePage(w, r, http.StatusOK, func(buf io.Writer) error {
		return h.opts.Renderer.Post(buf, page)
	})
}

func (h *Handler) category(w http.ResponseWriter, r *http.Request) {
	slug, ok := pathutil.SlugParam(r, "slug")
	if !ok {
		h.serveNotFound(w, r, pageCategory)
		return
	}
	page, err := h.opts.Pages.Category(r.Context(), slug)
	if err != nil {
		h.fail(w, r, pageCategory, err)
		return
	}
	h.writePage(w, r, http.StatusOK, func(buf io.Writer) error {
		return h.opts.Renderer.Category(buf, page)
	})
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.opts.Pages.Posts(r.Context())
	if err != nil {
		h.fail(w, r, pageOther, err)
		return
	}
	h.writeXML(w, r, render.RSSContentType, func(buf io.Writer) error {
		return render.RSS(buf, h.opts.Renderer.Site(), posts)
	})
}

func (h *Handler) sitemap(w http.ResponseWriter, r *http.Request) {
	paths, err := h.opts.Pages.StaticPaths(r.Context())
	if err != nil {
		h.fail(w, r, pageOther, err)
		return
	}
	h.writeXML(w, r, render.SitemapContentType, func(buf io.Writer) error {
		return render.Sitemap(buf, h.opts.Renderer.Site(), paths)
	})
}

func (h *Handler) static(w http.ResponseWriter, r *http.Request) {
	name, ok := cleanAssetPath(chi.URLParam(r, "*"))
	if !ok || !existsFile(h.opts.StaticFS, name) {
		h.serveNotFound(w, r, pageStatic)
		return
	}
	if cc := cacheControlForFile(name, &h.opts); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	http.ServeFileFS(w, r, h.opts.StaticFS, name)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.serveNotFound(w, r, pageOther)
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	// hardening: only GET/HEAD exist on the public site
	w.Header().Set("Allow", "GET, HEAD")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// fail maps a page error to a response. Missing content is a 404; anything
// else is logged and served as the error page.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, page string, err error) {
	ctx := r.Context()
	if errors.Is(err, blog.ErrNotFound) {
		h.serveNotFound(w, r, page)
		return
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// client went away; nobody is reading a response
		return
	}
	h.opts.Logger.Error(ctx, err, "page load failed", "page", page)
	h.serveError(w, r)
}

func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request, page string) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.IncPageNotFound(page)
	}
	// avoid caching 404 responses
	w.Header().Set("Cache-Control", "no-store")
	h.writePage(w, r, http.StatusNotFound, h.opts.Renderer.NotFound)
}

func (h *Handler) serveError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	buf, err := renderTo(h.opts.Renderer.Error)
	if err != nil {
		// last resort: plain text
		h.opts.Logger.Error(r.Context(), err, "render error page failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeBuffered(w, http.StatusInternalServerError, "text/html; charset=utf-8", buf)
}

// writePage renders fully before writing so a template failure can still
// become a clean 500.
func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, status int, fn func(io.Writer) error) {
	buf, err := renderTo(fn)
	if err != nil {
		h.opts.Logger.Error(r.Context(), err, "render page failed", "status", status)
		h.serveError(w, r)
		return
	}
	if w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", h.opts.HTMLCacheControl)
	}
	if status == http.StatusOK {
		writeTagged(w, r, "text/html; charset=utf-8", buf)
		return
	}
	writeBuffered(w, status, "text/html; charset=utf-8", buf)
}

func (h *Handler) writeXML(w http.ResponseWriter, r *http.Request, contentType string, fn func(io.Writer) error) {
	buf, err := renderTo(fn)
	if err != nil {
		h.opts.Logger.Error(r.Context(), err, "render feed failed")
		h.serveError(w, r)
		return
	}
	w.Header().Set("Cache-Control", h.opts.FeedCacheControl)
	writeTagged(w, r, contentType, buf)
}

func renderTo(fn func(io.Writer) error) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}

func writeBuffered(w http.ResponseWriter, status int, contentType string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// writeTagged serves a 200 with an ETag, or a bare 304 when the client
// already holds this body.
func writeTagged(w http.ResponseWriter, r *http.Request, contentType string, buf *bytes.Buffer) {
	etag := cryptoutil.ETag(buf.Bytes())
	w.Header().Set("ETag", etag)
	if cryptoutil.MatchETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeBuffered(w, http.StatusOK, contentType, buf)
}

func existsFile(fsys fs.FS, name string) bool {
	if name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
