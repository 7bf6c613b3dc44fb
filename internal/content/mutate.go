package content

import (
	"context"
	"time"

	"github.com/keithlinneman/socialblog/internal/xerrors"
)

// PostInput is a new post. Relations are referenced by object id.
type PostInput struct {
	Title    string
	Slug     string
	Content  string
	Metadata PostInputMetadata
}

type PostInputMetadata struct {
	Content       string
	AuthorID      string
	CategoryID    string
	FeaturedImage string // media name in the bucket
	Status        Status
	Tags          []string
	Summary       string
	PublishedDate *time.Time
	SocialSharing *SocialSharing
	SEO           *SEO
}

// PostUpdate is a partial update. Nil fields are not sent and stay as they
// are in the store; a non-nil pointer to "" does clear the field.
type PostUpdate struct {
	Title    *string
	Content  *string
	Metadata *PostMetadataUpdate
}

type PostMetadataUpdate struct {
	Content       *string
	AuthorID      *string
	CategoryID    *string
	FeaturedImage *string
	Status        *Status
	Tags          *[]string
	Summary       *string
	PublishedDate *time.Time
	SocialSharing *SocialSharing
	SEO           *SEO
}

// CreatePost inserts a post. published_date defaults to now and status to
// draft; nothing else is checked.
func (s *Store) CreatePost(ctx context.Context, in PostInput) (*Post, error) {
	md := in.Metadata
	published := s.now()
	if md.PublishedDate != nil {
		published = *md.PublishedDate
	}
	status := md.Status
	if status == "" {
		status = StatusDraft
	}

	meta := map[string]any{
		"content":        md.Content,
		"status":         string(status),
		"published_date": formatDate(published),
	}
	setIf(meta, "author", md.AuthorID)
	setIf(meta, "category", md.CategoryID)
	setIf(meta, "featured_image", md.FeaturedImage)
	setIf(meta, "summary", md.Summary)
	if md.Tags != nil {
		meta["tags"] = md.Tags
	}
	if md.SocialSharing != nil {
		meta["social_sharing"] = md.SocialSharing
	}
	if md.SEO != nil {
		meta["seo"] = md.SEO
	}

	body := map[string]any{
		"type":     TypePosts,
		"title":    in.Title,
		"slug":     in.Slug,
		"content":  in.Content,
		"metadata": meta,
	}

	raw, err := s.client.InsertOne(ctx, body)
	if err == nil {
		var p *Post
		if p, err = decodeAs[*Post](raw); err == nil {
			return p, nil
		}
		err = xerrors.WithStack(err)
	}
	cerr := &Error{Kind: KindCreate, Op: "createPost", Key: in.Slug, Err: err}
	s.logger.Error(ctx, cerr, "create post failed", "slug", in.Slug)
	return nil, cerr
}

// UpdatePost sends only the fields set in u.
func (s *Store) UpdatePost(ctx context.Context, id string, u PostUpdate) (*Post, error) {
	raw, err := s.client.UpdateOne(ctx, id, updateBody(u))
	if err == nil {
		var p *Post
		if p, err = decodeAs[*Post](raw); err == nil {
			return p, nil
		}
		err = xerrors.WithStack(err)
	}
	uerr := &Error{Kind: KindUpdate, Op: "updatePost", Key: id, Err: err}
	s.logger.Error(ctx, uerr, "update post failed", "id", id)
	return nil, uerr
}

func updateBody(u PostUpdate) map[string]any {
	body := map[string]any{}
	if u.Title != nil {
		body["title"] = *u.Title
	}
	if u.Content != nil {
		body["content"] = *u.Content
	}
	if m := u.Metadata; m != nil {
		meta := map[string]any{}
		setPtr(meta, "content", m.Content)
		setPtr(meta, "author", m.AuthorID)
		setPtr(meta, "category", m.CategoryID)
		setPtr(meta, "featured_image", m.FeaturedImage)
		setPtr(meta, "summary", m.Summary)
		if m.Status != nil {
			meta["status"] = string(*m.Status)
		}
		if m.Tags != nil {
			meta["tags"] = *m.Tags
		}
		if m.PublishedDate != nil {
			meta["published_date"] = formatDate(*m.PublishedDate)
		}
		if m.SocialSharing != nil {
			meta["social_sharing"] = m.SocialSharing
		}
		if m.SEO != nil {
			meta["seo"] = m.SEO
		}
		body["metadata"] = meta
	}
	return body
}

func setIf(m map[string]any, k, v string) {
	if v != "" {
		m[k] = v
	}
}

func setPtr(m map[string]any, k string, v *string) {
	if v != nil {
		m[k] = *v
	}
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
