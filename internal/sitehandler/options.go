package sitehandler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/keithlinneman/socialblog/internal/blog"
	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/log"
	"github.com/keithlinneman/socialblog/internal/render"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

// Pages is the view-model side of blog.Service.
type Pages interface {
	Home(ctx context.Context) (*blog.HomePage, error)
	Category(ctx context.Context, slug string) (*blog.CategoryPage, error)
	Post(ctx context.Context, slug string) (*blog.PostPage, error)
	Posts(ctx context.Context) ([]content.Post, error)
	StaticPaths(ctx context.Context) (*blog.Paths, error)
}

// NotFoundRecorder counts 404s by page kind.
type NotFoundRecorder interface {
	IncPageNotFound(page string)
}

type Options struct {
	Logger   log.Logger
	Pages    Pages
	Renderer *render.Renderer
	// served under /static/
	StaticFS fs.FS
	Metrics  NotFoundRecorder

	// Cache policies. Pages are re-read from the store on every request so
	// HTML defaults to revalidation.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=86400"
	FeedCacheControl  string // default: "public, max-age=3600"
	OtherCacheControl string // default: "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	// static files are not fingerprinted, so no immutable
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=86400"
	}
	if o.FeedCacheControl == "" {
		o.FeedCacheControl = "public, max-age=3600"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.Pages == nil {
		return fmt.Errorf("%w: Pages is nil", ErrInvalidOptions)
	}
	if o.Renderer == nil {
		return fmt.Errorf("%w: Renderer is nil", ErrInvalidOptions)
	}
	if o.StaticFS == nil {
		return fmt.Errorf("%w: StaticFS is nil", ErrInvalidOptions)
	}
	return nil
}
