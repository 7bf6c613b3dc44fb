package pathutil

import (
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
)

// MaxSlugLen bounds slugs accepted from URLs.
const MaxSlugLen = 200

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// SlugParam reads the named chi route parameter and validates it as a slug.
// chi matches on URL.RawPath when the request carries one, so the parameter
// is still escaped exactly then; otherwise it was decoded once already and a
// literal '%' must survive.
func SlugParam(r *http.Request, key string) (string, bool) {
	raw := chi.URLParam(r, key)
	if r.URL.RawPath != "" {
		s, err := url.PathUnescape(raw)
		if err != nil {
			return "", false
		}
		raw = s
	}
	return CleanSlug(raw)
}

// CleanSlug validates an already-decoded slug. Slugs are opaque store keys,
// so anything that could be read as a path is refused rather than normalized.
func CleanSlug(s string) (string, bool) {
	if s == "" || len(s) > MaxSlugLen || !utf8.ValidString(s) {
		return "", false
	}
	// basic rejection of ambiguous/unsafe values
	if strings.ContainsAny(s, "/\\\x00?#") || strings.Contains(s, "..") {
		return "", false
	}
	if HasDotSegments(s) {
		return "", false
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f || r == ' ' {
			return "", false
		}
	}
	return s, true
}
