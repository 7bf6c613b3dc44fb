package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/keithlinneman/socialblog/internal/blog"
	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/imgix"
)

const layoutFile = "layout.html"

// page names; each maps to <name>.html in the templates FS
const (
	PageHome     = "home"
	PageCategory = "category"
	PagePost     = "post"
	PageNotFound = "notfound"
	PageError    = "error"
)

var pageNames = []string{PageHome, PageCategory, PagePost, PageNotFound, PageError}

// Renderer holds one parsed template set per page. It is safe for
// concurrent use.
type Renderer struct {
	site  Site
	pages map[string]*template.Template
	now   func() time.Time
}

// view is the root value every page template receives.
type view struct {
	Site Site
	Meta Meta
	Page any
	Body template.HTML
	Year int
}

func funcs() template.FuncMap {
	img := func(p imgix.Params) func(*content.Image) string {
		return func(i *content.Image) string {
			if i == nil {
				return ""
			}
			return imgix.URL(i.ImgixURL, p)
		}
	}
	return template.FuncMap{
		"hero":       img(imgix.Hero),
		"card":       img(imgix.Card),
		"avatar":     img(imgix.Avatar),
		"authorCard": img(imgix.AuthorCard),
		"postDate": func(p content.Post) string {
			return p.EffectiveDate().Format("January 2, 2006")
		},
		"isoDate": func(p content.Post) string {
			return p.EffectiveDate().UTC().Format(time.RFC3339)
		},
		"join":   strings.Join,
		"plural": plural,
	}
}

// NewRenderer parses the layout together with every page in fsys. A missing
// or broken template fails here rather than on first request.
func NewRenderer(site Site, fsys fs.FS) (*Renderer, error) {
	base, err := template.New(layoutFile).Funcs(funcs()).ParseFS(fsys, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", layoutFile, err)
	}
	r := &Renderer{site: site, pages: make(map[string]*template.Template, len(pageNames)), now: time.Now}
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(fsys, name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) Site() Site { return r.site }

// render executes into a buffer first so a template error never leaves a
// half-written page on w.
func (r *Renderer) render(w io.Writer, name string, v view) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("render: unknown page %q", name)
	}
	v.Site = r.site
	v.Year = r.now().Year()

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (r *Renderer) Home(w io.Writer, p *blog.HomePage) error {
	return r.render(w, PageHome, view{Meta: HomeMeta(r.site), Page: p})
}

func (r *Renderer) Category(w io.Writer, p *blog.CategoryPage) error {
	return r.render(w, PageCategory, view{Meta: CategoryMeta(r.site, p.Category), Page: p})
}

func (r *Renderer) Post(w io.Writer, p *blog.PostPage) error {
	body, err := Markdown(p.Post.Body())
	if err != nil {
		return fmt.Errorf("render post %q: %w", p.Post.Slug, err)
	}
	return r.render(w, PagePost, view{Meta: PostMeta(r.site, p.Post), Page: p, Body: body})
}

func (r *Renderer) NotFound(w io.Writer) error {
	return r.render(w, PageNotFound, view{Meta: NotFoundMeta(r.site)})
}

func (r *Renderer) Error(w io.Writer) error {
	return r.render(w, PageError, view{Meta: ErrorMeta(r.site)})
}
