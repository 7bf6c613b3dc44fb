package content

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/keithlinneman/socialblog/internal/cosmic"
	"github.com/keithlinneman/socialblog/internal/log"
	"github.com/keithlinneman/socialblog/internal/xerrors"
)

// Backend is the part of *cosmic.Client the store uses.
type Backend interface {
	Find(ctx context.Context, q cosmic.Query) (*cosmic.FindResponse, error)
	FindOne(ctx context.Context, q cosmic.Query) (json.RawMessage, error)
	InsertOne(ctx context.Context, body any) (json.RawMessage, error)
	UpdateOne(ctx context.Context, id string, body any) (json.RawMessage, error)
}

// relations are expanded exactly one level
const embedDepth = 1

var (
	listPostProps   = []string{"id", "type", "title", "slug", "metadata", "created_at", "modified_at"}
	singlePostProps = []string{"id", "type", "title", "slug", "metadata", "content", "created_at", "modified_at"}
	taxonomyProps   = []string{"id", "type", "title", "slug", "metadata"}
)

type StoreOptions struct {
	Client Backend
	Logger log.Logger
	// Now supplies the default published_date for new posts.
	Now func() time.Time
}

type Store struct {
	client Backend
	logger log.Logger
	now    func() time.Time
}

func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Client == nil {
		return nil, xerrors.New("content: client is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{client: opts.Client, logger: opts.Logger, now: opts.Now}, nil
}

// GetPosts returns published posts, newest effective date first.
func (s *Store) GetPosts(ctx context.Context) ([]Post, error) {
	posts, err := s.publishedPosts(ctx)
	if err != nil {
		return nil, &Error{Kind: KindFetch, Op: "getPosts", Err: err}
	}
	return posts, nil
}

// GetPostBySlug returns nil, nil when the post does not exist or is not
// published.
func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*Post, error) {
	raw, err := s.client.FindOne(ctx, cosmic.Query{
		Type:   TypePosts,
		Filter: map[string]any{"slug": slug},
		Props:  singlePostProps,
		Depth:  embedDepth,
	})
	if cosmic.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Kind: KindFetch, Op: "getPostBySlug", Key: slug, Err: err}
	}
	p, err := decodeAs[*Post](raw)
	if err != nil {
		return nil, &Error{Kind: KindFetch, Op: "getPostBySlug", Key: slug, Err: xerrors.WithStack(err)}
	}
	if !p.IsPublished() {
		return nil, nil
	}
	return p, nil
}

// GetPostByID returns the post with id whatever its status, for editing.
// A missing post is nil, nil.
func (s *Store) GetPostByID(ctx context.Context, id string) (*Post, error) {
	raw, err := s.client.FindOne(ctx, cosmic.Query{
		Type:   TypePosts,
		Filter: map[string]any{"id": id},
		Props:  singlePostProps,
		Depth:  embedDepth,
	})
	if cosmic.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Kind: KindFetch, Op: "getPostById", Key: id, Err: err}
	}
	p, err := decodeAs[*Post](raw)
	if err != nil {
		return nil, &Error{Kind: KindFetch, Op: "getPostById", Key: id, Err: xerrors.WithStack(err)}
	}
	return p, nil
}

// GetPostsByCategory loads every published post and keeps those whose
// embedded category has slug. No match and an unknown category both give an
// empty slice.
func (s *Store) GetPostsByCategory(ctx context.Context, slug string) ([]Post, error) {
	posts, err := s.publishedPosts(ctx)
	if err != nil {
		return nil, &Error{Kind: KindFetch, Op: "getPostsByCategory", Key: slug, Err: err}
	}
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p.Metadata.Category != nil && p.Metadata.Category.Slug == slug {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) GetCategories(ctx context.Context) ([]Category, error) {
	cats, err := findAll[*Category](ctx, s.client, TypeCategories)
	if err != nil {
		return nil, &Error{Kind: KindFetch, Op: "getCategories", Err: err}
	}
	return values(cats), nil
}

func (s *Store) GetAuthors(ctx context.Context) ([]Author, error) {
	authors, err := findAll[*Author](ctx, s.client, TypeAuthors)
	if err != nil {
		return nil, &Error{Kind: KindFetch, Op: "getAuthors", Err: err}
	}
	return values(authors), nil
}

func (s *Store) publishedPosts(ctx context.Context) ([]Post, error) {
	resp, err := s.client.Find(ctx, cosmic.Query{
		Type:   TypePosts,
		Filter: map[string]any{"metadata.status": string(StatusPublished)},
		Props:  listPostProps,
		Depth:  embedDepth,
	})
	if cosmic.IsNotFound(err) {
		return []Post{}, nil
	}
	if err != nil {
		return nil, err
	}
	decoded, err := decodeList[*Post](resp.Objects)
	if err != nil {
		return nil, xerrors.WithStack(err)
	}
	posts := make([]Post, 0, len(decoded))
	for _, p := range decoded {
		// the query filters on status too; this keeps drafts out even if
		// the store ignores the filter
		if p.IsPublished() {
			posts = append(posts, *p)
		}
	}
	SortNewestFirst(posts)
	return posts, nil
}

// SortNewestFirst orders posts by effective date, newest first. Equal dates
// keep their incoming order.
func SortNewestFirst(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].EffectiveDate().After(posts[j].EffectiveDate())
	})
}

func findAll[T Object](ctx context.Context, c Backend, typ string) ([]T, error) {
	resp, err := c.Find(ctx, cosmic.Query{Type: typ, Props: taxonomyProps})
	if cosmic.IsNotFound(err) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}
	out, err := decodeList[T](resp.Objects)
	if err != nil {
		return nil, xerrors.WithStack(err)
	}
	return out, nil
}

func values[T any](ptrs []*T) []T {
	out := make([]T, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}
