// Package blog shapes store content into the view models the pages render.
// Every call re-reads the store; nothing is cached between requests.
package blog

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/log"
	"github.com/keithlinneman/socialblog/internal/social"
)

// ErrNotFound means the requested post or category does not exist. An
// existing category with no posts is not an error.
var ErrNotFound = errors.New("blog: not found")

const (
	featuredCount = 3
	recentCount   = 6
	relatedCount  = 3
)

// Source is the read side of content.Store.
type Source interface {
	GetPosts(ctx context.Context) ([]content.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*content.Post, error)
	GetPostsByCategory(ctx context.Context, slug string) ([]content.Post, error)
	GetCategories(ctx context.Context) ([]content.Category, error)
	GetAuthors(ctx context.Context) ([]content.Author, error)
}

type Options struct {
	Source  Source
	Logger  log.Logger
	SiteURL string
	// Social supplies per-post stats; nil disables them.
	Social *social.Manager
}

type Service struct {
	src     Source
	logger  log.Logger
	siteURL string
	social  *social.Manager
}

func New(opts Options) (*Service, error) {
	if opts.Source == nil {
		return nil, errors.New("blog: source is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Service{src: opts.Source, logger: opts.Logger, siteURL: opts.SiteURL, social: opts.Social}, nil
}

type HomePage struct {
	// Hero is nil when there are no posts.
	Hero       *content.Post
	Featured   []content.Post
	Recent     []content.Post
	Categories []content.Category
	Social     social.Feed
}

type CategoryPage struct {
	Category content.Category
	Posts    []content.Post
	Empty    bool
}

type PostPage struct {
	Post    content.Post
	Related []content.Post
	Share   []social.ShareLink
	Stats   *social.Stats
}

// Paths lists every page to pre-render.
type Paths struct {
	Posts      []string `json:"posts"`
	Categories []string `json:"categories"`
}

// SplitHome takes posts in display order and returns the first three as
// featured and the next six as recent. Short input gives short (possibly
// empty) slices.
func SplitHome(posts []content.Post) (featured, recent []content.Post) {
	n := len(posts)
	f := min(n, featuredCount)
	r := min(n, featuredCount+recentCount)
	return posts[:f:f], posts[f:r:r]
}

// RelatedPosts returns up to three posts from all that share p's category,
// in the order they appear in all. Uncategorized posts have no related posts.
func RelatedPosts(p content.Post, all []content.Post) []content.Post {
	cat := p.CategoryID()
	if cat == "" {
		return []content.Post{}
	}
	out := make([]content.Post, 0, relatedCount)
	for _, q := range all {
		if q.ID == p.ID || q.CategoryID() != cat {
			continue
		}
		out = append(out, q)
		if len(out) == relatedCount {
			break
		}
	}
	return out
}

// Home loads posts and categories concurrently.
func (s *Service) Home(ctx context.Context) (*HomePage, error) {
	var (
		posts []content.Post
		cats  []content.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = s.src.GetPosts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.src.GetCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	featured, recent := SplitHome(posts)
	page := &HomePage{
		Featured:   featured,
		Recent:     recent,
		Categories: cats,
		Social:     social.DefaultFeed(),
	}
	if len(featured) > 0 {
		hero := featured[0]
		page.Hero = &hero
	}
	return page, nil
}

// Category resolves the category before loading its posts.
func (s *Service) Category(ctx context.Context, slug string) (*CategoryPage, error) {
	cats, err := s.src.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	var found *content.Category
	for i := range cats {
		if cats[i].Slug == slug {
			found = &cats[i]
			break
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}

	posts, err := s.src.GetPostsByCategory(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &CategoryPage{Category: *found, Posts: posts, Empty: len(posts) == 0}, nil
}

// Post resolves the post, then loads the collection for related posts.
func (s *Service) Post(ctx context.Context, slug string) (*PostPage, error) {
	p, err := s.src.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	all, err := s.src.GetPosts(ctx)
	if err != nil {
		return nil, err
	}

	page := &PostPage{
		Post:    *p,
		Related: RelatedPosts(*p, all),
		Share:   social.ShareLinks(s.siteURL, *p),
	}
	if s.social != nil {
		st := s.social.Stats(*p)
		page.Stats = &st
	}
	return page, nil
}

// StaticPaths lists one path per category and per published post. The two
// reads are independent, so a post added between them may be missing.
func (s *Service) StaticPaths(ctx context.Context) (*Paths, error) {
	var (
		posts []content.Post
		cats  []content.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = s.src.GetPosts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.src.GetCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	paths := &Paths{
		Posts:      make([]string, 0, len(posts)),
		Categories: make([]string, 0, len(cats)),
	}
	for _, p := range posts {
		paths.Posts = append(paths.Posts, p.Slug)
	}
	for _, c := range cats {
		paths.Categories = append(paths.Categories, c.Slug)
	}
	return paths, nil
}

// Authors passes through to the store for the API and author listings.
func (s *Service) Authors(ctx context.Context) ([]content.Author, error) {
	return s.src.GetAuthors(ctx)
}

// Posts returns every published post in display order.
func (s *Service) Posts(ctx context.Context) ([]content.Post, error) {
	return s.src.GetPosts(ctx)
}

func (s *Service) Categories(ctx context.Context) ([]content.Category, error) {
	return s.src.GetCategories(ctx)
}

// Stats returns the simulated engagement snapshot for a published post.
func (s *Service) Stats(ctx context.Context, slug string) (*social.Stats, error) {
	p, err := s.src.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if s.social == nil {
		return &social.Stats{}, nil
	}
	st := s.social.Stats(*p)
	return &st, nil
}
