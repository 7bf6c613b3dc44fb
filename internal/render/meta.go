package render

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/imgix"
	"github.com/keithlinneman/socialblog/internal/social"
)

// Site is the per-deployment identity shown in every page head.
type Site struct {
	Name        string
	URL         string
	Description string
	Keywords    []string
	// DefaultImage is the og:image for pages without a featured image.
	DefaultImage string
}

// Meta is everything the layout writes into <head>.
type Meta struct {
	Title         string
	Description   string
	Keywords      []string
	Canonical     string
	OGTitle       string
	OGDescription string
	OGType        string
	OGImage       string
	PublishedTime string
	Authors       []string
}

const unknownAuthor = "Unknown Author"

func (s Site) abs(p string) string {
	return strings.TrimRight(s.URL, "/") + p
}

func HomeMeta(site Site) Meta {
	return Meta{
		Title:         site.Name,
		Description:   site.Description,
		Keywords:      site.Keywords,
		Canonical:     site.abs("/"),
		OGTitle:       site.Name,
		OGDescription: site.Description,
		OGType:        "website",
		OGImage:       site.DefaultImage,
	}
}

func CategoryMeta(site Site, c content.Category) Meta {
	desc := c.Metadata.Description
	if desc == "" {
		desc = "Posts in " + c.Title
	}
	return Meta{
		Title:         c.Title + " | " + site.Name,
		Description:   desc,
		Canonical:     site.abs("/categories/" + url.PathEscape(c.Slug)),
		OGTitle:       c.Title,
		OGDescription: desc,
		OGType:        "website",
		OGImage:       site.DefaultImage,
	}
}

// PostMeta lets the post's SEO block override title, description and
// keywords, falling back to the title, summary and tags. OpenGraph always
// uses the plain title and summary.
func PostMeta(site Site, p content.Post) Meta {
	m := Meta{
		Title:         p.Title,
		Description:   p.Metadata.Summary,
		Keywords:      p.Metadata.Tags,
		Canonical:     social.PostURL(site.URL, p.Slug),
		OGTitle:       p.Title,
		OGDescription: p.Metadata.Summary,
		OGType:        "article",
		PublishedTime: p.EffectiveDate().UTC().Format(time.RFC3339),
		Authors:       []string{unknownAuthor},
	}
	if seo := p.Metadata.SEO; seo != nil {
		if seo.Title != "" {
			m.Title = seo.Title
		}
		if seo.Description != "" {
			m.Description = seo.Description
		}
		if len(seo.Keywords) > 0 {
			m.Keywords = seo.Keywords
		}
	}
	if a := p.Metadata.Author; a != nil && a.Title != "" {
		m.Authors = []string{a.Title}
	}
	if img := p.Metadata.FeaturedImage; img != nil {
		m.OGImage = imgix.URL(img.ImgixURL, imgix.OG)
	}
	return m
}

func NotFoundMeta(site Site) Meta {
	return Meta{Title: "Page Not Found | " + site.Name, OGTitle: "Page Not Found", OGType: "website"}
}

func ErrorMeta(site Site) Meta {
	return Meta{Title: "Error | " + site.Name, OGTitle: site.Name, OGType: "website"}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
