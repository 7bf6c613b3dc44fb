package render

import (
	"encoding/xml"
	"io"
	"net/url"
	"time"

	"github.com/keithlinneman/socialblog/internal/blog"
	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/social"
)

const (
	RSSContentType     = "application/rss+xml; charset=utf-8"
	SitemapContentType = "application/xml; charset=utf-8"

	rssItemLimit  = 20
	excerptLength = 200
	sitemapXMLNS  = "http://www.sitemaps.org/schemas/sitemap/0.9"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
}

// RSS writes an RSS 2.0 feed of the newest posts. posts must already be in
// display order.
func RSS(w io.Writer, site Site, posts []content.Post) error {
	n := min(len(posts), rssItemLimit)
	items := make([]rssItem, 0, n)
	var newest time.Time
	for _, p := range posts[:n] {
		link := social.PostURL(site.URL, p.Slug)
		item := rssItem{
			Title:       p.Title,
			Link:        link,
			Description: description(p),
			PubDate:     p.EffectiveDate().Format(time.RFC1123Z),
			GUID:        link,
		}
		if a := p.Metadata.Author; a != nil {
			item.Author = a.Title
		}
		if c := p.Metadata.Category; c != nil {
			item.Categories = append(item.Categories, c.Title)
		}
		item.Categories = append(item.Categories, p.Metadata.Tags...)
		if d := p.EffectiveDate(); d.After(newest) {
			newest = d
		}
		items = append(items, item)
	}

	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       site.Name,
			Link:        site.abs("/"),
			Description: site.Description,
			Language:    "en-us",
			Items:       items,
		},
	}
	if !newest.IsZero() {
		feed.Channel.LastBuildDate = newest.Format(time.RFC1123Z)
	}
	return encodeXML(w, feed)
}

func description(p content.Post) string {
	if p.Metadata.Summary != "" {
		return p.Metadata.Summary
	}
	body, err := Markdown(p.Body())
	if err != nil {
		return ""
	}
	return Excerpt(PlainText(string(body)), excerptLength)
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap lists the home page, then every category and post in paths.
func Sitemap(w io.Writer, site Site, paths *blog.Paths) error {
	urls := make([]sitemapURL, 0, 1+len(paths.Categories)+len(paths.Posts))
	urls = append(urls, sitemapURL{Loc: site.abs("/")})
	for _, slug := range paths.Categories {
		urls = append(urls, sitemapURL{Loc: site.abs("/categories/" + url.PathEscape(slug))})
	}
	for _, slug := range paths.Posts {
		urls = append(urls, sitemapURL{Loc: social.PostURL(site.URL, slug)})
	}
	return encodeXML(w, sitemapURLSet{XMLNS: sitemapXMLNS, URLs: urls})
}

func encodeXML(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
