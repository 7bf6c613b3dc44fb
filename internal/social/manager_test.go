package social

import (
	"context"
	"errors"
	"testing"

	"github.com/keithlinneman/socialblog/internal/content"
)

type stubSharer struct {
	platform Platform
	ok       bool
	err      error
	calls    int
}

func (s *stubSharer) Platform() Platform { return s.platform }

func (s *stubSharer) Share(context.Context, content.Post) (bool, error) {
	s.calls++
	return s.ok, s.err
}

type spyRecorder map[string][]bool

func (r spyRecorder) IncSocialShare(platform string, ok bool) {
	r[platform] = append(r[platform], ok)
}

func TestShareToAllPlatforms_HonoursFlags(t *testing.T) {
	fb := &stubSharer{platform: Facebook, ok: true}
	yt := &stubSharer{platform: YouTube, ok: true}
	tg := &stubSharer{platform: Telegram, err: errors.New("api down")}
	rec := spyRecorder{}
	m := NewManager(ManagerOptions{Sharers: []Sharer{fb, yt, tg}, Recorder: rec})

	p := testPost()
	p.Metadata.SocialSharing = &content.SocialSharing{Facebook: true, Telegram: true, WhatsApp: true}

	got := m.ShareToAllPlatforms(context.Background(), p)

	want := map[Platform]bool{Facebook: true, Telegram: false, WhatsApp: true}
	if len(got) != len(want) {
		t.Fatalf("results = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("results[%s] = %v, want %v", k, got[k], v)
		}
	}
	if yt.calls != 0 {
		t.Fatal("youtube is not enabled and should not be called")
	}
	if len(rec["telegram"]) != 1 || rec["telegram"][0] {
		t.Fatalf("recorder = %v", rec)
	}
}

func TestShareToAllPlatforms_NoSettings(t *testing.T) {
	m := NewManager(ManagerOptions{})
	if got := m.ShareToAllPlatforms(context.Background(), testPost()); len(got) != 0 {
		t.Fatalf("results = %v", got)
	}
}

func TestShareToAllPlatforms_MissingSharer(t *testing.T) {
	m := NewManager(ManagerOptions{})
	p := testPost()
	p.Metadata.SocialSharing = &content.SocialSharing{YouTube: true}
	got := m.ShareToAllPlatforms(context.Background(), p)
	if v, ok := got[YouTube]; !ok || v {
		t.Fatalf("unregistered platform should report false, got %v", got)
	}
}

func TestStandInSharers(t *testing.T) {
	p := testPost()
	p.Metadata.SocialSharing = &content.SocialSharing{CustomMessage: "custom"}
	for _, s := range []Sharer{
		FacebookSharer{SiteURL: "https://b.example"},
		YouTubeSharer{},
		WhatsAppSharer{SiteURL: "https://b.example"},
	} {
		ok, err := s.Share(context.Background(), p)
		if !ok || err != nil {
			t.Fatalf("%s Share = (%v, %v)", s.Platform(), ok, err)
		}
	}
}

func TestStats_StablePerPost(t *testing.T) {
	m := NewManager(ManagerOptions{})
	a := m.Stats(content.Post{ID: "p1"})
	b := m.Stats(content.Post{ID: "p1"})
	if *a.Facebook != *b.Facebook || *a.Telegram != *b.Telegram {
		t.Fatal("same post should give the same numbers")
	}
	if a.Facebook.Likes < 0 || a.Facebook.Likes >= 100 || a.YouTube.Views >= 1000 ||
		a.Telegram.Members >= 1000 || a.WhatsApp.StatusViews >= 200 || a.YouTube.Subscribers >= 10 {
		t.Fatalf("out of range: %+v %+v %+v %+v", a.Facebook, a.YouTube, a.Telegram, a.WhatsApp)
	}
}

func TestDefaultFeed(t *testing.T) {
	f := DefaultFeed()
	if len(f.Entries) != 4 || len(f.Stats) != 4 {
		t.Fatalf("feed = %+v", f)
	}
	if f.Stats[0].Followers != "12.5K" || f.Stats[3].Growth != "+15.3%" {
		t.Fatalf("stats = %+v", f.Stats)
	}
}
