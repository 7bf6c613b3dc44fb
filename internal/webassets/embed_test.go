package webassets

import (
	"io/fs"
	"strings"
	"testing"
)

func TestTemplatesFS_HasPages(t *testing.T) {
	fsys := TemplatesFS()
	for _, name := range []string{"layout.html", "home.html", "category.html", "post.html", "notfound.html", "error.html"} {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("%s is empty", name)
		}
	}
}

func TestTemplatesFS_PagesDefineContent(t *testing.T) {
	fsys := TemplatesFS()
	for _, name := range []string{"home.html", "category.html", "post.html", "notfound.html", "error.html"} {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `{{define "content"}}`) {
			t.Fatalf("%s does not define content", name)
		}
	}
}

func TestStaticFS_HasStylesheet(t *testing.T) {
	info, err := fs.Stat(StaticFS(), "site.css")
	if err != nil {
		t.Fatalf("site.css not found: %v", err)
	}
	if info.IsDir() || info.Size() == 0 {
		t.Fatal("site.css should be a non-empty file")
	}
}

func TestStaticFS_NoTemplates(t *testing.T) {
	if _, err := fs.Stat(StaticFS(), "layout.html"); err == nil {
		t.Fatal("templates must not be reachable from the static FS")
	}
}
