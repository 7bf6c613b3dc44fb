// Package siteapi serves read-only JSON views of the blog under /api/.
package siteapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/socialblog/internal/blog"
	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/log"
	"github.com/keithlinneman/socialblog/internal/pathutil"
	"github.com/keithlinneman/socialblog/internal/social"
)

// Source is the subset of blog.Service the API reads from.
type Source interface {
	Posts(ctx context.Context) ([]content.Post, error)
	Post(ctx context.Context, slug string) (*blog.PostPage, error)
	Stats(ctx context.Context, slug string) (*social.Stats, error)
	Categories(ctx context.Context) ([]content.Category, error)
	Authors(ctx context.Context) ([]content.Author, error)
	StaticPaths(ctx context.Context) (*blog.Paths, error)
}

// API implements the JSON endpoints
type API struct {
	src    Source
	logger log.Logger
}

func NewAPI(src Source, logger log.Logger) *API {
	if logger == nil {
		logger = log.Nop()
	}
	return &API{
		src:    src,
		logger: logger,
	}
}

// RegisterRoutes attaches the API endpoints to the router
func (api *API) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", api.HandlePosts)
		r.Get("/posts/{slug}", api.HandlePost)
		r.Get("/posts/{slug}/stats", api.HandlePostStats)
		r.Get("/categories", api.HandleCategories)
		r.Get("/authors", api.HandleAuthors)
		r.Get("/paths", api.HandlePaths)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			api.writeJSON(r.Context(), w, http.StatusNotFound, ErrorResponse{Error: "not found"})
		})
	})
}

func (api *API) HandlePosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	posts, err := api.src.Posts(ctx)
	if err != nil {
		api.fail(ctx, w, "posts", err)
		return
	}
	api.writeJSON(ctx, w, http.StatusOK, PostsResponse{Posts: posts, Total: len(posts)})
}

func (api *API) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug, ok := pathutil.SlugParam(r, "slug")
	if !ok {
		api.writeJSON(ctx, w, http.StatusNotFound, ErrorResponse{Error: "post not found"})
		return
	}
	page, err := api.src.Post(ctx, slug)
	if err != nil {
		api.fail(ctx, w, "post", err)
		return
	}

	api.logger.Debug(ctx, "served post", "slug", slug)

	api.writeJSON(ctx, w, http.StatusOK, PostResponse{Post: page.Post, Related: page.Related, Share: page.Share})
}

func (api *API) HandlePostStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug, ok := pathutil.SlugParam(r, "slug")
	if !ok {
		api.writeJSON(ctx, w, http.StatusNotFound, ErrorResponse{Error: "post not found"})
		return
	}
	stats, err := api.src.Stats(ctx, slug)
	if err != nil {
		api.fail(ctx, w, "post", err)
		return
	}
	api.writeJSON(ctx, w, http.StatusOK, stats)
}

func (api *API) HandleCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cats, err := api.src.Categories(ctx)
	if err != nil {
		api.fail(ctx, w, "categories", err)
		return
	}
	api.writeJSON(ctx, w, http.StatusOK, CategoriesResponse{Categories: cats, Total: len(cats)})
}

func (api *API) HandleAuthors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authors, err := api.src.Authors(ctx)
	if err != nil {
		api.fail(ctx, w, "authors", err)
		return
	}
	api.writeJSON(ctx, w, http.StatusOK, AuthorsResponse{Authors: authors, Total: len(authors)})
}

// HandlePaths lists every pre-renderable post and category slug.
func (api *API) HandlePaths(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paths, err := api.src.StaticPaths(ctx)
	if err != nil {
		api.fail(ctx, w, "paths", err)
		return
	}
	api.writeJSON(ctx, w, http.StatusOK, paths)
}

// fail writes 404 for missing content and 502 for store failures. Store
// error text stays in the log.
func (api *API) fail(ctx context.Context, w http.ResponseWriter, what string, err error) {
	if errors.Is(err, blog.ErrNotFound) {
		api.writeJSON(ctx, w, http.StatusNotFound, ErrorResponse{Error: what + " not found"})
		return
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return
	}
	api.logger.Error(ctx, err, "api request failed", "resource", what)
	api.writeJSON(ctx, w, http.StatusBadGateway, ErrorResponse{Error: "content store unavailable"})
}

func (api *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Warn(ctx, "failed to encode JSON response", "error", err)
	}
}
