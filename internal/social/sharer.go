package social

import (
	"context"
	"unicode/utf8"

	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/log"
)

// Sharer announces a post on one platform. ok is false when the platform
// declined or is not configured; err carries transport failures.
type Sharer interface {
	Platform() Platform
	Share(ctx context.Context, p content.Post) (ok bool, err error)
}

// maxVideoDescription is the YouTube description limit in characters.
const maxVideoDescription = 5000

// FacebookSharer logs the Graph API payload it would send.
type FacebookSharer struct {
	SiteURL string
	Logger  log.Logger
}

func (FacebookSharer) Platform() Platform { return Facebook }

func (s FacebookSharer) Share(ctx context.Context, p content.Post) (bool, error) {
	msg := "New blog post: " + p.Title
	if ss := p.Metadata.SocialSharing; ss != nil && ss.CustomMessage != "" {
		msg = ss.CustomMessage
	}
	caption := p.Metadata.Summary
	if caption == "" {
		caption = p.Title
	}
	var picture string
	if img := p.Metadata.FeaturedImage; img != nil {
		picture = img.ImgixURL
	}
	loggerOr(s.Logger).Info(ctx, "facebook share",
		"message", msg,
		"link", PostURL(s.SiteURL, p.Slug),
		"picture", picture,
		"caption", caption,
	)
	return true, nil
}

// YouTubeSharer logs the video snippet it would publish.
type YouTubeSharer struct {
	Logger log.Logger
}

func (YouTubeSharer) Platform() Platform { return YouTube }

func (s YouTubeSharer) Share(ctx context.Context, p content.Post) (bool, error) {
	loggerOr(s.Logger).Info(ctx, "youtube share",
		"title", p.Title,
		"description", truncate(p.Metadata.Content, maxVideoDescription),
		"tags", p.Metadata.Tags,
	)
	return true, nil
}

// WhatsAppSharer has no API; sharing happens through the wa.me link.
type WhatsAppSharer struct {
	SiteURL string
	Logger  log.Logger
}

func (WhatsAppSharer) Platform() Platform { return WhatsApp }

func (s WhatsAppSharer) Share(ctx context.Context, p content.Post) (bool, error) {
	loggerOr(s.Logger).Debug(ctx, "whatsapp share link", "url", WhatsAppURL(s.SiteURL, p))
	return true, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func loggerOr(l log.Logger) log.Logger {
	if l == nil {
		return log.Nop()
	}
	return l
}
