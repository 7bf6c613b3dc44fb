// Package render turns blog view models into HTML pages, RSS and sitemaps.
//
// Post bodies are converted with goldmark and then sanitized with a
// bluemonday UGC policy, so raw HTML in the store is allowed through only in
// its safe subset. Pages are html/template files embedded in webassets; each
// page defines "content" and is executed inside the shared "layout".
package render
