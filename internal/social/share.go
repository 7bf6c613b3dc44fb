// Package social builds share links for posts, announces posts on the
// platforms a post opts into, and supplies the simulated engagement numbers
// and feed shown on the site.
package social

import (
	"net/url"
	"strings"

	"github.com/keithlinneman/socialblog/internal/content"
)

type Platform string

const (
	Facebook Platform = "facebook"
	YouTube  Platform = "youtube"
	Telegram Platform = "telegram"
	WhatsApp Platform = "whatsapp"
	Twitter  Platform = "twitter"
	LinkedIn Platform = "linkedin"
)

type ShareLink struct {
	Platform Platform `json:"platform"`
	Label    string   `json:"label"`
	URL      string   `json:"url"`
}

// PostURL is the canonical public URL of a post.
func PostURL(siteURL, slug string) string {
	return strings.TrimRight(siteURL, "/") + "/posts/" + url.PathEscape(slug)
}

// ShareText is the message prefilled into share dialogs.
func ShareText(p content.Post) string {
	return "Check out this blog post: " + p.Title
}

// ShareLinks returns the share-dialog URL for each supported platform in
// display order.
func ShareLinks(siteURL string, p content.Post) []ShareLink {
	u := encodeComponent(PostURL(siteURL, p.Slug))
	text := encodeComponent(ShareText(p))
	return []ShareLink{
		{Facebook, "Facebook", "https://www.facebook.com/sharer/sharer.php?u=" + u},
		{Twitter, "Twitter", "https://twitter.com/intent/tweet?url=" + u + "&text=" + text},
		{LinkedIn, "LinkedIn", "https://www.linkedin.com/sharing/share-offsite/?url=" + u},
		{Telegram, "Telegram", "https://t.me/share/url?url=" + u + "&text=" + text},
		{WhatsApp, "WhatsApp", WhatsAppURL(siteURL, p)},
	}
}

// WhatsAppURL opens a WhatsApp chat with the share text and link.
func WhatsAppURL(siteURL string, p content.Post) string {
	return "https://wa.me/?text=" + encodeComponent(ShareText(p)+" - "+PostURL(siteURL, p.Slug))
}

// encodeComponent escapes s for use as a single query value, spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
