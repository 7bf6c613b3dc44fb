package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	TypePosts      = "posts"
	TypeAuthors    = "authors"
	TypeCategories = "categories"
)

type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
	StatusArchived  Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPublished, StatusDraft, StatusArchived:
		return true
	}
	return false
}

type Image struct {
	URL      string `json:"url"`
	ImgixURL string `json:"imgix_url"`
}

type SEO struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// SocialSharing holds the per-post share toggles. The store replaces the
// whole metafield on update, so every toggle is always sent.
type SocialSharing struct {
	Facebook      bool   `json:"facebook"`
	YouTube       bool   `json:"youtube"`
	Telegram      bool   `json:"telegram"`
	WhatsApp      bool   `json:"whatsapp"`
	AutoPost      bool   `json:"auto_post"`
	CustomMessage string `json:"custom_message,omitempty"`
}

type Post struct {
	ID         string       `json:"id"`
	Slug       string       `json:"slug"`
	Title      string       `json:"title"`
	Content    string       `json:"content,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	ModifiedAt time.Time    `json:"modified_at"`
	Metadata   PostMetadata `json:"metadata"`
}

type PostMetadata struct {
	Content       string         `json:"content"`
	Author        *Author        `json:"author,omitempty"`
	Category      *Category      `json:"category,omitempty"`
	FeaturedImage *Image         `json:"featured_image,omitempty"`
	Status        Status         `json:"status"`
	Tags          []string       `json:"tags,omitempty"`
	Summary       string         `json:"summary,omitempty"`
	PublishedDate *time.Time     `json:"published_date,omitempty"`
	SocialSharing *SocialSharing `json:"social_sharing,omitempty"`
	SEO           *SEO           `json:"seo,omitempty"`
}

// EffectiveDate is the published date when set, otherwise the creation time.
func (p *Post) EffectiveDate() time.Time {
	if p.Metadata.PublishedDate != nil {
		return *p.Metadata.PublishedDate
	}
	return p.CreatedAt
}

func (p *Post) IsPublished() bool { return p.Metadata.Status == StatusPublished }

// Body prefers the metadata body over the object's top-level content.
func (p *Post) Body() string {
	if p.Metadata.Content != "" {
		return p.Metadata.Content
	}
	return p.Content
}

// CategoryID is "" for uncategorized posts.
func (p *Post) CategoryID() string {
	if p.Metadata.Category == nil {
		return ""
	}
	return p.Metadata.Category.ID
}

type Author struct {
	ID       string         `json:"id"`
	Slug     string         `json:"slug"`
	Title    string         `json:"title"`
	Metadata AuthorMetadata `json:"metadata"`
}

type AuthorMetadata struct {
	Bio    string `json:"bio,omitempty"`
	Avatar *Image `json:"avatar,omitempty"`
	// platform name (facebook, youtube, telegram, whatsapp, twitter, instagram) to profile URL
	SocialLinks map[string]string `json:"social_links,omitempty"`
	Role        string            `json:"role,omitempty"`
}

type Category struct {
	ID       string           `json:"id"`
	Slug     string           `json:"slug"`
	Title    string           `json:"title"`
	Metadata CategoryMetadata `json:"metadata"`
}

type CategoryMetadata struct {
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// envelope is the lenient view of any store object. Extra top-level keys
// (bucket, status, thumbnail, ...) are ignored.
type envelope struct {
	ID         string          `json:"id"`
	Slug       string          `json:"slug"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	Type       string          `json:"type"`
	CreatedAt  string          `json:"created_at"`
	ModifiedAt string          `json:"modified_at"`
	Metadata   json.RawMessage `json:"metadata"`
}

func decodeEnvelope(b []byte) (envelope, error) {
	var env envelope
	err := json.Unmarshal(b, &env)
	return env, err
}

// decodeStrict rejects keys not present in v.
func decodeStrict(raw json.RawMessage, v any) error {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// isRef reports whether b is a bare object id, which the store sends for
// relations that were not expanded.
func isRef(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '"' {
		return "", false
	}
	var id string
	if err := json.Unmarshal(b, &id); err != nil {
		return "", false
	}
	return id, true
}

func (p *Post) UnmarshalJSON(b []byte) error {
	env, err := decodeEnvelope(b)
	if err != nil {
		return err
	}
	created, err := parseTime(env.CreatedAt)
	if err != nil {
		return fmt.Errorf("post %q created_at: %w", env.Slug, err)
	}
	modified, err := parseTime(env.ModifiedAt)
	if err != nil {
		return fmt.Errorf("post %q modified_at: %w", env.Slug, err)
	}
	var md PostMetadata
	if err := decodeStrict(env.Metadata, &md); err != nil {
		return fmt.Errorf("post %q metadata: %w", env.Slug, err)
	}
	*p = Post{
		ID:         env.ID,
		Slug:       env.Slug,
		Title:      env.Title,
		Content:    env.Content,
		CreatedAt:  created,
		ModifiedAt: modified,
		Metadata:   md,
	}
	return nil
}

func (m *PostMetadata) UnmarshalJSON(b []byte) error {
	// alias drops the method set; PublishedDate is taken as a string so both
	// date-only and RFC3339 values parse
	type alias PostMetadata
	var w struct {
		alias
		PublishedDate string `json:"published_date"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return err
	}
	if w.Status != "" && !w.Status.Valid() {
		return fmt.Errorf("unknown status %q", w.Status)
	}
	*m = PostMetadata(w.alias)
	m.PublishedDate = nil
	if w.PublishedDate != "" {
		t, err := ParseDate(w.PublishedDate)
		if err != nil {
			return fmt.Errorf("published_date: %w", err)
		}
		m.PublishedDate = &t
	}
	return nil
}

func (a *Author) UnmarshalJSON(b []byte) error {
	if id, ok := isRef(b); ok {
		*a = Author{ID: id}
		return nil
	}
	env, err := decodeEnvelope(b)
	if err != nil {
		return err
	}
	var md AuthorMetadata
	if err := decodeStrict(env.Metadata, &md); err != nil {
		return fmt.Errorf("author %q metadata: %w", env.Slug, err)
	}
	*a = Author{ID: env.ID, Slug: env.Slug, Title: env.Title, Metadata: md}
	return nil
}

func (c *Category) UnmarshalJSON(b []byte) error {
	if id, ok := isRef(b); ok {
		*c = Category{ID: id}
		return nil
	}
	env, err := decodeEnvelope(b)
	if err != nil {
		return err
	}
	var md CategoryMetadata
	if err := decodeStrict(env.Metadata, &md); err != nil {
		return fmt.Errorf("category %q metadata: %w", env.Slug, err)
	}
	*c = Category{ID: env.ID, Slug: env.Slug, Title: env.Title, Metadata: md}
	return nil
}

// ParseDate accepts RFC3339 timestamps and YYYY-MM-DD dates (UTC midnight).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// parseTime treats an absent timestamp as the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return ParseDate(s)
}
