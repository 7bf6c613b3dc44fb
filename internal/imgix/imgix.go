// Package imgix derives sized image URLs from the imgix_url the content
// store attaches to uploaded media.
package imgix

import (
	"net/url"
	"strconv"
	"strings"
)

type Params struct {
	Width  int
	Height int
	Fit    string
	Auto   string
}

const autoFormat = "format,compress"

var (
	Hero   = Params{Width: 1920, Height: 1080, Fit: "crop", Auto: autoFormat}
	Card   = Params{Width: 800, Height: 450, Fit: "crop", Auto: autoFormat}
	OG     = Params{Width: 1200, Height: 630, Fit: "crop", Auto: autoFormat}
	Avatar = Params{Width: 40, Height: 40, Fit: "crop", Auto: autoFormat}
	// AuthorCard is the larger avatar on post pages.
	AuthorCard = Params{Width: 128, Height: 128, Fit: "crop", Auto: autoFormat}
)

// URL appends p to base, replacing any w/h/fit/auto already present and
// keeping other query parameters. An empty or unparsable base yields "".
func URL(base string, p Params) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, k := range []string{"w", "h", "fit", "auto"} {
		q.Del(k)
	}

	parts := make([]string, 0, 5)
	if rest := q.Encode(); rest != "" {
		parts = append(parts, rest)
	}
	if p.Width > 0 {
		parts = append(parts, "w="+strconv.Itoa(p.Width))
	}
	if p.Height > 0 {
		parts = append(parts, "h="+strconv.Itoa(p.Height))
	}
	if p.Fit != "" {
		parts = append(parts, "fit="+url.QueryEscape(p.Fit))
	}
	if p.Auto != "" {
		// imgix reads the list unescaped
		parts = append(parts, "auto="+strings.ReplaceAll(url.QueryEscape(p.Auto), "%2C", ","))
	}
	u.RawQuery = strings.Join(parts, "&")
	return u.String()
}
