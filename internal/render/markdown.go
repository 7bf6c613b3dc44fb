package render

import (
	"bytes"
	stdhtml "html"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			// raw html passes through here and is cleaned by ugc below
			html.WithUnsafe(),
		),
	)

	ugc   = newUGCPolicy()
	strip = bluemonday.StrictPolicy()
)

func newUGCPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "span", "pre")
	p.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.RequireNoReferrerOnLinks(true)
	return p
}

// Markdown converts a post body to sanitized HTML. Bodies that are already
// HTML come through unchanged apart from sanitizing.
func Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(ugc.SanitizeBytes(buf.Bytes())), nil //nolint:gosec // sanitized above
}

// PlainText strips all markup from an HTML fragment and collapses
// whitespace.
func PlainText(htmlSrc string) string {
	// the policy entity-escapes text; callers escape for their own output
	text := stdhtml.UnescapeString(strip.Sanitize(htmlSrc))
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt cuts s to at most n runes on a word boundary, adding an ellipsis
// when anything was dropped.
func Excerpt(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := []rune(s)[:n]
	if i := strings.LastIndexByte(string(cut), ' '); i > 0 {
		return strings.TrimRight(string(cut)[:i], " ,.;:") + "…"
	}
	return string(cut) + "…"
}
