// Package export pre-renders every public page of the site and writes the
// result to a Sink, typically an S3 bucket fronted by a CDN.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/keithlinneman/socialblog/internal/blog"
	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/log"
	"github.com/keithlinneman/socialblog/internal/render"
)

var ErrInvalidOptions = errors.New("export: invalid options")

const (
	htmlContentType  = "text/html; charset=utf-8"
	defaultParallel  = 4
	htmlCacheControl = "public, max-age=300"
	assetCacheCtl    = "public, max-age=86400"
	feedCacheControl = "public, max-age=3600"
)

// Pages is the subset of blog.Service an export walks.
type Pages interface {
	Home(ctx context.Context) (*blog.HomePage, error)
	Category(ctx context.Context, slug string) (*blog.CategoryPage, error)
	Post(ctx context.Context, slug string) (*blog.PostPage, error)
	Posts(ctx context.Context) ([]content.Post, error)
	StaticPaths(ctx context.Context) (*blog.Paths, error)
}

// Object is one rendered file.
type Object struct {
	Key          string
	ContentType  string
	CacheControl string
	Body         []byte
}

// Sink stores rendered objects.
type Sink interface {
	Put(ctx context.Context, obj Object) error
}

type Options struct {
	Logger   log.Logger
	Pages    Pages
	Renderer *render.Renderer
	// copied under static/; nil skips assets
	StaticFS fs.FS
	Sink     Sink
	// Parallel bounds concurrent renders and uploads. Default 4.
	Parallel int
}

// Result summarises a completed export.
type Result struct {
	Objects  int           `json:"objects"`
	Bytes    int64         `json:"bytes"`
	Keys     []string      `json:"keys"`
	// Missing lists keys whose post or category vanished after the paths
	// were listed; they hold the not-found page.
	Missing  []string      `json:"missing,omitempty"`
	Duration time.Duration `json:"duration"`
}

type Exporter struct {
	opts Options
}

func New(opts Options) (*Exporter, error) {
	if opts.Pages == nil {
		return nil, fmt.Errorf("%w: Pages is nil", ErrInvalidOptions)
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("%w: Renderer is nil", ErrInvalidOptions)
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("%w: Sink is nil", ErrInvalidOptions)
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Parallel <= 0 {
		opts.Parallel = defaultParallel
	}
	return &Exporter{opts: opts}, nil
}

// job renders one object body.
type job struct {
	key          string
	contentType  string
	cacheControl string
	render       func(ctx context.Context, w io.Writer) error
}

// Run renders every page and asset and writes them to the sink. The first
// failure cancels the rest, except that a page whose content disappeared
// since StaticPaths gets the not-found page.
func (e *Exporter) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	paths, err := e.opts.Pages.StaticPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}

	var (
		mu      sync.Mutex
		keys    []string
		missing []string
		total   atomic.Int64
	)
	jobs := e.pageJobs(paths, func(ctx context.Context, w io.Writer, key string) error {
		e.opts.Logger.Warn(ctx, "page content gone since paths were listed, exporting not-found page", "key", key)
		mu.Lock()
		missing = append(missing, key)
		mu.Unlock()
		return e.opts.Renderer.NotFound(w)
	})
	assets, err := e.assetJobs()
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, assets...)
	keys = make([]string, 0, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Parallel)
	for _, j := range jobs {
		g.Go(func() error {
			var buf bytes.Buffer
			if err := j.render(gctx, &buf); err != nil {
				return fmt.Errorf("render %s: %w", j.key, err)
			}
			obj := Object{
				Key:          j.key,
				ContentType:  j.contentType,
				CacheControl: j.cacheControl,
				Body:         buf.Bytes(),
			}
			if err := e.opts.Sink.Put(gctx, obj); err != nil {
				return fmt.Errorf("put %s: %w", j.key, err)
			}
			total.Add(int64(len(obj.Body)))
			mu.Lock()
			keys = append(keys, j.key)
			mu.Unlock()
			e.opts.Logger.Debug(gctx, "exported object", "key", j.key, "bytes", len(obj.Body))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(keys)
	sort.Strings(missing)
	res := &Result{
		Objects:  len(keys),
		Bytes:    total.Load(),
		Keys:     keys,
		Missing:  missing,
		Duration: time.Since(start),
	}
	e.opts.Logger.Info(ctx, "export complete",
		"objects", res.Objects,
		"bytes", res.Bytes,
		"missing", len(res.Missing),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// gone renders the stand-in for a page that no longer exists.
type gone func(ctx context.Context, w io.Writer, key string) error

func (e *Exporter) pageJobs(paths *blog.Paths, onGone gone) []job {
	r := e.opts.Renderer
	pages := e.opts.Pages

	jobs := []job{
		{
			key: "index.html", contentType: htmlContentType, cacheControl: htmlCacheControl,
			render: func(ctx context.Context, w io.Writer) error {
				p, err := pages.Home(ctx)
				if err != nil {
					return err
				}
				return r.Home(w, p)
			},
		},
		{
			key: "404.html", contentType: htmlContentType, cacheControl: htmlCacheControl,
			render: func(_ context.Context, w io.Writer) error { return r.NotFound(w) },
		},
		{
			key: "feed.xml", contentType: render.RSSContentType, cacheControl: feedCacheControl,
			render: func(ctx context.Context, w io.Writer) error {
				posts, err := pages.Posts(ctx)
				if err != nil {
					return err
				}
				return render.RSS(w, r.Site(), posts)
			},
		},
		{
			key: "sitemap.xml", contentType: render.SitemapContentType, cacheControl: feedCacheControl,
			render: func(_ context.Context, w io.Writer) error {
				return render.Sitemap(w, r.Site(), paths)
			},
		},
	}

	for _, slug := range paths.Posts {
		key := path.Join("posts", slug, "index.html")
		jobs = append(jobs, job{
			key: key, contentType: htmlContentType, cacheControl: htmlCacheControl,
			render: func(ctx context.Context, w io.Writer) error {
				p, err := pages.Post(ctx, slug)
				if errors.Is(err, blog.ErrNotFound) {
					return onGone(ctx, w, key)
				}
				if err != nil {
					return err
				}
				return r.Post(w, p)
			},
		})
	}
	for _, slug := range paths.Categories {
		key := path.Join("categories", slug, "index.html")
		jobs = append(jobs, job{
			key: key, contentType: htmlContentType, cacheControl: htmlCacheControl,
			render: func(ctx context.Context, w io.Writer) error {
				p, err := pages.Category(ctx, slug)
				if errors.Is(err, blog.ErrNotFound) {
					return onGone(ctx, w, key)
				}
				if err != nil {
					return err
				}
				return r.Category(w, p)
			},
		})
	}
	return jobs
}

func (e *Exporter) assetJobs() ([]job, error) {
	if e.opts.StaticFS == nil {
		return nil, nil
	}
	fsys := e.opts.StaticFS
	var jobs []job
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ct := mime.TypeByExtension(path.Ext(name))
		if ct == "" {
			ct = "application/octet-stream"
		}
		jobs = append(jobs, job{
			key: path.Join("static", name), contentType: ct, cacheControl: assetCacheCtl,
			render: func(_ context.Context, w io.Writer) error {
				b, err := fs.ReadFile(fsys, name)
				if err != nil {
					return err
				}
				_, err = w.Write(b)
				return err
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk static assets: %w", err)
	}
	return jobs, nil
}
