package social

import (
	"context"
	"hash/fnv"
	"math/rand/v2"

	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/log"
)

// ShareRecorder receives one call per attempted platform.
type ShareRecorder interface {
	IncSocialShare(platform string, ok bool)
}

type ManagerOptions struct {
	Sharers  []Sharer
	Logger   log.Logger
	Recorder ShareRecorder
}

// Manager fans a post out to the platforms it opted into.
type Manager struct {
	sharers  map[Platform]Sharer
	logger   log.Logger
	recorder ShareRecorder
}

func NewManager(opts ManagerOptions) *Manager {
	m := &Manager{
		sharers:  make(map[Platform]Sharer, len(opts.Sharers)),
		logger:   loggerOr(opts.Logger),
		recorder: opts.Recorder,
	}
	for _, s := range opts.Sharers {
		m.sharers[s.Platform()] = s
	}
	return m
}

// ShareToAllPlatforms shares p on each platform enabled in its
// social_sharing settings. Platforms that are not enabled are absent from
// the result. WhatsApp is link-based and always reports true.
func (m *Manager) ShareToAllPlatforms(ctx context.Context, p content.Post) map[Platform]bool {
	results := map[Platform]bool{}
	ss := p.Metadata.SocialSharing
	if ss == nil {
		return results
	}
	enabled := []struct {
		platform Platform
		on       bool
	}{
		{Facebook, ss.Facebook},
		{YouTube, ss.YouTube},
		{Telegram, ss.Telegram},
	}
	for _, e := range enabled {
		if !e.on {
			continue
		}
		results[e.platform] = m.shareOne(ctx, e.platform, p)
	}
	if ss.WhatsApp {
		results[WhatsApp] = true
		m.record(WhatsApp, true)
	}
	return results
}

func (m *Manager) shareOne(ctx context.Context, platform Platform, p content.Post) bool {
	s, ok := m.sharers[platform]
	if !ok {
		m.logger.Warn(ctx, "no sharer registered", "platform", string(platform))
		m.record(platform, false)
		return false
	}
	shared, err := s.Share(ctx, p)
	if err != nil {
		m.logger.Error(ctx, err, "share failed", "platform", string(platform), "slug", p.Slug)
		shared = false
	}
	m.record(platform, shared)
	return shared
}

func (m *Manager) record(p Platform, ok bool) {
	if m.recorder != nil {
		m.recorder.IncSocialShare(string(p), ok)
	}
}

type FacebookStats struct {
	Likes    int `json:"likes"`
	Shares   int `json:"shares"`
	Comments int `json:"comments"`
}

type YouTubeStats struct {
	Views       int `json:"views"`
	Likes       int `json:"likes"`
	Comments    int `json:"comments"`
	Subscribers int `json:"subscribers"`
}

type TelegramStats struct {
	Views   int `json:"views"`
	Members int `json:"members"`
}

type WhatsAppStats struct {
	StatusViews int `json:"status_views"`
}

// Stats is an engagement snapshot for one post.
type Stats struct {
	Facebook *FacebookStats `json:"facebook,omitempty"`
	YouTube  *YouTubeStats  `json:"youtube,omitempty"`
	Telegram *TelegramStats `json:"telegram,omitempty"`
	WhatsApp *WhatsAppStats `json:"whatsapp,omitempty"`
}

// Stats returns simulated engagement numbers. No platform is queried; the
// values are derived from the post id so a post always shows the same
// numbers.
func (m *Manager) Stats(p content.Post) Stats {
	h := fnv.New64a()
	_, _ = h.Write([]byte(p.ID))
	seed := h.Sum64()
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	return Stats{
		Facebook: &FacebookStats{Likes: r.IntN(100), Shares: r.IntN(50), Comments: r.IntN(25)},
		YouTube:  &YouTubeStats{Views: r.IntN(1000), Likes: r.IntN(100), Comments: r.IntN(30), Subscribers: r.IntN(10)},
		Telegram: &TelegramStats{Views: r.IntN(500), Members: r.IntN(1000)},
		WhatsApp: &WhatsAppStats{StatusViews: r.IntN(200)},
	}
}
