package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

// templates/ and static/ must exist and have at least one file each to satisfy go:embed
//
//go:embed templates static
var embedded embed.FS

// TemplatesFS holds the html/template sources: layout.html plus one file
// per page.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(fmt.Errorf("webassets: templates subfs: %w", err))
	}
	return sub
}

// StaticFS is served under /static/.
func StaticFS() fs.FS {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		panic(fmt.Errorf("webassets: static subfs: %w", err))
	}
	return sub
}
