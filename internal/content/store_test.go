package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/keithlinneman/socialblog/internal/cosmic"
	"github.com/keithlinneman/socialblog/internal/log"
)

// memBackend is an in-memory bucket. Like the real store it answers 404
// when a find matches nothing.
type memBackend struct {
	mu      sync.Mutex
	objects []map[string]any
	queries []cosmic.Query
	bodies  []any
	err     error
	now     time.Time
}

func (m *memBackend) add(obj map[string]any) { m.objects = append(m.objects, obj) }

func (m *memBackend) match(q cosmic.Query) []json.RawMessage {
	var out []json.RawMessage
	for _, o := range m.objects {
		if q.Type != "" && o["type"] != q.Type {
			continue
		}
		ok := true
		for k, v := range q.Filter {
			switch k {
			case "metadata.status":
				md, _ := o["metadata"].(map[string]any)
				ok = ok && md["status"] == v
			default:
				ok = ok && o[k] == v
			}
		}
		if ok {
			b, _ := json.Marshal(o)
			out = append(out, b)
		}
	}
	return out
}

func (m *memBackend) Find(_ context.Context, q cosmic.Query) (*cosmic.FindResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.err != nil {
		return nil, m.err
	}
	objs := m.match(q)
	if len(objs) == 0 {
		return nil, &cosmic.APIError{Op: "find", Status: http.StatusNotFound}
	}
	return &cosmic.FindResponse{Objects: objs, Total: len(objs)}, nil
}

func (m *memBackend) FindOne(_ context.Context, q cosmic.Query) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.err != nil {
		return nil, m.err
	}
	objs := m.match(q)
	if len(objs) == 0 {
		return nil, &cosmic.APIError{Op: "find_one", Status: http.StatusNotFound}
	}
	return objs[0], nil
}

func (m *memBackend) InsertOne(_ context.Context, body any) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	if m.err != nil {
		return nil, m.err
	}
	obj := roundTrip(body)
	obj["id"] = uuid.NewString()
	obj["created_at"] = m.now.Format(time.RFC3339)
	obj["modified_at"] = m.now.Format(time.RFC3339)
	m.objects = append(m.objects, obj)
	return json.Marshal(obj)
}

func (m *memBackend) UpdateOne(_ context.Context, id string, body any) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	if m.err != nil {
		return nil, m.err
	}
	patch := roundTrip(body)
	for _, o := range m.objects {
		if o["id"] != id {
			continue
		}
		for k, v := range patch {
			if k == "metadata" {
				md, _ := o["metadata"].(map[string]any)
				for mk, mv := range v.(map[string]any) {
					md[mk] = mv
				}
				continue
			}
			o[k] = v
		}
		return json.Marshal(o)
	}
	return nil, &cosmic.APIError{Op: "update_one", Status: http.StatusNotFound}
}

func roundTrip(v any) map[string]any {
	b, _ := json.Marshal(v)
	var out map[string]any
	_ = json.Unmarshal(b, &out)
	return out
}

func post(id, slug, status, published, created string, cat map[string]any) map[string]any {
	md := map[string]any{"content": "body of " + slug, "status": status}
	if published != "" {
		md["published_date"] = published
	}
	if cat != nil {
		md["category"] = cat
	}
	return map[string]any{
		"id": id, "slug": slug, "title": slug, "type": TypePosts,
		"created_at": created, "modified_at": created, "metadata": md,
	}
}

func category(id, slug string) map[string]any {
	return map[string]any{"id": id, "slug": slug, "title": slug, "type": TypeCategories, "metadata": map[string]any{}}
}

func newTestStore(t *testing.T, b Backend) *Store {
	t.Helper()
	s, err := NewStore(StoreOptions{
		Client: b,
		Logger: log.Nop(),
		Now:    func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func slugs(posts []Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Slug
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewStore_RequiresClient(t *testing.T) {
	if _, err := NewStore(StoreOptions{}); err == nil {
		t.Fatal("missing client should fail")
	}
}

func TestGetPosts_SortedNewestFirst(t *testing.T) {
	b := &memBackend{}
	b.add(post("1", "old", "published", "2023-01-01", "2023-01-01T00:00:00Z", nil))
	b.add(post("2", "newest", "published", "2024-06-01", "2020-01-01T00:00:00Z", nil))
	// no published_date: falls back to created_at
	b.add(post("3", "middle", "published", "", "2024-01-01T00:00:00Z", nil))
	s := newTestStore(t, b)

	posts, err := s.GetPosts(context.Background())
	if err != nil {
		t.Fatalf("GetPosts: %v", err)
	}
	if got, want := slugs(posts), []string{"newest", "middle", "old"}; !equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}

	q := b.queries[0]
	if q.Type != TypePosts || q.Filter["metadata.status"] != "published" || q.Depth != 1 {
		t.Fatalf("query = %+v", q)
	}
}

func TestGetPosts_TiesKeepStoreOrder(t *testing.T) {
	b := &memBackend{}
	for _, slug := range []string{"a", "b", "c", "d"} {
		b.add(post(slug, slug, "published", "2024-02-02", "2024-01-01T00:00:00Z", nil))
	}
	s := newTestStore(t, b)

	for i := 0; i < 5; i++ {
		posts, err := s.GetPosts(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if got := slugs(posts); !equal(got, []string{"a", "b", "c", "d"}) {
			t.Fatalf("tie order = %v", got)
		}
	}
}

func TestGetPosts_NeverReturnsUnpublished(t *testing.T) {
	b := &memBackend{}
	b.add(post("1", "live", "published", "2024-01-01", "", nil))
	b.add(post("2", "wip", "draft", "2024-01-02", "", nil))
	b.add(post("3", "gone", "archived", "2024-01-03", "", nil))
	s := newTestStore(t, b)

	posts, err := s.GetPosts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range posts {
		if !p.IsPublished() {
			t.Fatalf("unpublished post %q returned", p.Slug)
		}
	}
	if len(posts) != 1 {
		t.Fatalf("len = %d", len(posts))
	}
}

func TestPublishedPosts_LocalRecheck(t *testing.T) {
	// a backend that ignores the status filter
	b := &ignoringBackend{memBackend: &memBackend{}}
	b.add(post("1", "live", "published", "2024-01-01", "", nil))
	b.add(post("2", "wip", "draft", "2024-01-02", "", nil))
	s := newTestStore(t, b)

	posts, err := s.GetPosts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := slugs(posts); !equal(got, []string{"live"}) {
		t.Fatalf("posts = %v", got)
	}
}

type ignoringBackend struct{ *memBackend }

func (b *ignoringBackend) Find(ctx context.Context, q cosmic.Query) (*cosmic.FindResponse, error) {
	q.Filter = nil
	return b.memBackend.Find(ctx, q)
}

func TestGetPosts_NotFoundIsEmpty(t *testing.T) {
	s := newTestStore(t, &memBackend{})
	posts, err := s.GetPosts(context.Background())
	if err != nil {
		t.Fatalf("not found should not be an error: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Fatalf("posts = %v, want empty non-nil", posts)
	}
}

func TestGetPosts_FailureIsFetchError(t *testing.T) {
	b := &memBackend{err: &cosmic.APIError{Op: "find", Status: http.StatusInternalServerError}}
	s := newTestStore(t, b)

	_, err := s.GetPosts(context.Background())
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("want ErrFetch, got %v", err)
	}
	var ce *Error
	if !errors.As(err, &ce) || ce.Op != "getPosts" {
		t.Fatalf("error = %+v", ce)
	}
	var ae *cosmic.APIError
	if !errors.As(err, &ae) || ae.Status != 500 {
		t.Fatal("cause should stay reachable")
	}
	if errors.Is(err, ErrCreate) {
		t.Fatal("fetch error must not match ErrCreate")
	}
}

func TestGetPosts_BadObjectIsFetchError(t *testing.T) {
	b := &memBackend{}
	b.add(map[string]any{"id": "x", "slug": "x", "type": TypePosts, "metadata": map[string]any{"status": "published", "mood": "happy"}})
	s := newTestStore(t, b)
	if _, err := s.GetPosts(context.Background()); !errors.Is(err, ErrFetch) {
		t.Fatalf("undecodable metadata should be a fetch error, got %v", err)
	}
}

func TestGetPostBySlug(t *testing.T) {
	b := &memBackend{}
	b.add(post("1", "live", "published", "2024-01-01", "", nil))
	b.add(post("2", "wip", "draft", "2024-01-02", "", nil))
	s := newTestStore(t, b)
	ctx := context.Background()

	p, err := s.GetPostBySlug(ctx, "live")
	if err != nil || p == nil || p.ID != "1" {
		t.Fatalf("live = %+v, %v", p, err)
	}
	q := b.queries[0]
	if q.Filter["slug"] != "live" || q.Depth != 1 {
		t.Fatalf("query = %+v", q)
	}

	if p, err := s.GetPostBySlug(ctx, "wip"); p != nil || err != nil {
		t.Fatalf("draft should be absent, got %+v, %v", p, err)
	}
	if p, err := s.GetPostBySlug(ctx, "nope"); p != nil || err != nil {
		t.Fatalf("missing should be absent, got %+v, %v", p, err)
	}
}

func TestGetPostByID_AnyStatus(t *testing.T) {
	b := &memBackend{}
	b.add(post("2", "wip", "draft", "2024-01-02", "", nil))
	s := newTestStore(t, b)
	ctx := context.Background()

	p, err := s.GetPostByID(ctx, "2")
	if err != nil || p == nil || p.Slug != "wip" {
		t.Fatalf("draft by id = %+v, %v", p, err)
	}
	if q := b.queries[0]; q.Filter["id"] != "2" || q.Type != TypePosts {
		t.Fatalf("query = %+v", q)
	}
	if p, err := s.GetPostByID(ctx, "9"); p != nil || err != nil {
		t.Fatalf("missing should be absent, got %+v, %v", p, err)
	}
}

func TestGetPostBySlug_FailureCarriesSlug(t *testing.T) {
	b := &memBackend{err: errors.New("connection reset")}
	s := newTestStore(t, b)
	_, err := s.GetPostBySlug(context.Background(), "hello")
	var ce *Error
	if !errors.As(err, &ce) || ce.Key != "hello" || ce.Kind != KindFetch {
		t.Fatalf("error = %v", err)
	}
}

func TestGetPostsByCategory(t *testing.T) {
	tech, life := category("c1", "tech"), category("c2", "life")
	b := &memBackend{}
	b.add(post("1", "t-old", "published", "2023-01-01", "", tech))
	b.add(post("2", "l-1", "published", "2024-01-01", "", life))
	b.add(post("3", "t-new", "published", "2024-05-01", "", tech))
	b.add(post("4", "t-draft", "draft", "2024-06-01", "", tech))
	b.add(post("5", "none", "published", "2024-06-01", "", nil))
	s := newTestStore(t, b)
	ctx := context.Background()

	posts, err := s.GetPostsByCategory(ctx, "tech")
	if err != nil {
		t.Fatal(err)
	}
	if got := slugs(posts); !equal(got, []string{"t-new", "t-old"}) {
		t.Fatalf("tech = %v", got)
	}

	posts, err = s.GetPostsByCategory(ctx, "unknown")
	if err != nil || len(posts) != 0 {
		t.Fatalf("unknown = %v, %v", posts, err)
	}

	// fetches the whole published set; no category filter in the query
	for _, q := range b.queries {
		if len(q.Filter) != 1 {
			t.Fatalf("unexpected filter %v", q.Filter)
		}
	}
}

func TestGetPostsByCategory_NotFoundIsEmpty(t *testing.T) {
	s := newTestStore(t, &memBackend{})
	posts, err := s.GetPostsByCategory(context.Background(), "tech")
	if err != nil || len(posts) != 0 {
		t.Fatalf("posts = %v, err = %v", posts, err)
	}
}

func TestGetCategoriesAndAuthors(t *testing.T) {
	b := &memBackend{}
	b.add(category("c2", "zeta"))
	b.add(category("c1", "alpha"))
	b.add(map[string]any{"id": "a1", "slug": "jane", "title": "Jane", "type": TypeAuthors,
		"metadata": map[string]any{"avatar": map[string]any{"url": "u", "imgix_url": "i"}}})
	s := newTestStore(t, b)
	ctx := context.Background()

	cats, err := s.GetCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// store order, unsorted
	if len(cats) != 2 || cats[0].Slug != "zeta" || cats[1].Slug != "alpha" {
		t.Fatalf("categories = %+v", cats)
	}
	authors, err := s.GetAuthors(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(authors) != 1 || authors[0].Metadata.Avatar.ImgixURL != "i" {
		t.Fatalf("authors = %+v", authors)
	}
}

func TestGetCategories_Empty(t *testing.T) {
	s := newTestStore(t, &memBackend{})
	cats, err := s.GetCategories(context.Background())
	if err != nil || len(cats) != 0 {
		t.Fatalf("cats = %v, err = %v", cats, err)
	}
	authors, err := s.GetAuthors(context.Background())
	if err != nil || len(authors) != 0 {
		t.Fatalf("authors = %v, err = %v", authors, err)
	}
}

func TestGetAuthors_Failure(t *testing.T) {
	s := newTestStore(t, &memBackend{err: errors.New("boom")})
	_, err := s.GetAuthors(context.Background())
	var ce *Error
	if !errors.As(err, &ce) || ce.Op != "getAuthors" {
		t.Fatalf("error = %v", err)
	}
}

func TestCreatePost_Defaults(t *testing.T) {
	b := &memBackend{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, b)

	p, err := s.CreatePost(context.Background(), PostInput{
		Title:   "New",
		Slug:    "new",
		Content: "top",
		Metadata: PostInputMetadata{
			Content:    "# body",
			CategoryID: "c1",
			Tags:       []string{"x"},
		},
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if p.ID == "" || p.Slug != "new" {
		t.Fatalf("post = %+v", p)
	}
	if p.Metadata.Status != StatusDraft {
		t.Fatalf("status = %q, want draft", p.Metadata.Status)
	}
	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if p.Metadata.PublishedDate == nil || !p.Metadata.PublishedDate.Equal(want) {
		t.Fatalf("published_date = %v", p.Metadata.PublishedDate)
	}

	body := b.bodies[0].(map[string]any)
	if body["type"] != TypePosts || body["content"] != "top" {
		t.Fatalf("body = %v", body)
	}
	md := body["metadata"].(map[string]any)
	if md["category"] != "c1" {
		t.Fatalf("category ref = %v", md["category"])
	}
	if _, ok := md["author"]; ok {
		t.Fatal("empty author should not be sent")
	}
}

func TestCreatePost_KeepsExplicitValues(t *testing.T) {
	b := &memBackend{}
	s := newTestStore(t, b)
	when := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	p, err := s.CreatePost(context.Background(), PostInput{
		Title: "Old", Slug: "old",
		Metadata: PostInputMetadata{Status: StatusPublished, PublishedDate: &when},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Metadata.Status != StatusPublished || !p.Metadata.PublishedDate.Equal(when) {
		t.Fatalf("metadata = %+v", p.Metadata)
	}
}

func TestCreatePost_Failure(t *testing.T) {
	s := newTestStore(t, &memBackend{err: cosmic.ErrNoWriteKey})
	_, err := s.CreatePost(context.Background(), PostInput{Slug: "x"})
	if !errors.Is(err, ErrCreate) || !errors.Is(err, cosmic.ErrNoWriteKey) {
		t.Fatalf("want ErrCreate wrapping ErrNoWriteKey, got %v", err)
	}
}

func TestUpdatePost_OnlyTitleChanges(t *testing.T) {
	b := &memBackend{}
	s := newTestStore(t, b)
	ctx := context.Background()

	created, err := s.CreatePost(ctx, PostInput{
		Title: "Before", Slug: "rt", Content: "keep me",
		Metadata: PostInputMetadata{Content: "md body", Status: StatusPublished, Summary: "sum", Tags: []string{"a", "b"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	before, err := s.GetPostBySlug(ctx, "rt")
	if err != nil || before == nil {
		t.Fatalf("before = %v, %v", before, err)
	}

	title := "After"
	if _, err := s.UpdatePost(ctx, created.ID, PostUpdate{Title: &title}); err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	sent := b.bodies[len(b.bodies)-1].(map[string]any)
	if len(sent) != 1 || sent["title"] != "After" {
		t.Fatalf("update body = %v, want only title", sent)
	}

	after, err := s.GetPostBySlug(ctx, "rt")
	if err != nil || after == nil {
		t.Fatalf("after = %v, %v", after, err)
	}
	if after.Title != "After" {
		t.Fatalf("title = %q", after.Title)
	}
	if after.Content != before.Content || after.Metadata.Content != before.Metadata.Content ||
		after.Metadata.Summary != before.Metadata.Summary || !equal(after.Metadata.Tags, before.Metadata.Tags) ||
		!after.Metadata.PublishedDate.Equal(*before.Metadata.PublishedDate) {
		t.Fatalf("unrelated fields changed:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestUpdateBody(t *testing.T) {
	empty := ""
	status := StatusArchived
	tags := []string{}
	got := updateBody(PostUpdate{
		Content: &empty,
		Metadata: &PostMetadataUpdate{
			Status: &status,
			Tags:   &tags,
		},
	})
	if _, ok := got["title"]; ok {
		t.Fatal("nil title should not be sent")
	}
	if v, ok := got["content"]; !ok || v != "" {
		t.Fatal("explicit empty content should be sent")
	}
	md := got["metadata"].(map[string]any)
	if len(md) != 2 || md["status"] != "archived" {
		t.Fatalf("metadata = %v", md)
	}

	if got := updateBody(PostUpdate{}); len(got) != 0 {
		t.Fatalf("empty update = %v", got)
	}
}

func TestUpdatePost_Failure(t *testing.T) {
	s := newTestStore(t, &memBackend{})
	title := "x"
	_, err := s.UpdatePost(context.Background(), "missing", PostUpdate{Title: &title})
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != KindUpdate || ce.Key != "missing" {
		t.Fatalf("error = %v", err)
	}
	if !errors.Is(err, ErrUpdate) {
		t.Fatal("should match ErrUpdate")
	}
}

func TestError_Message(t *testing.T) {
	e := &Error{Kind: KindFetch, Op: "getPostBySlug", Key: "hi", Err: errors.New("boom")}
	if e.Error() != `content fetch getPostBySlug "hi": boom` {
		t.Fatalf("Error() = %q", e.Error())
	}
}
