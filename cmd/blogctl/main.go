// Command blogctl is the operator CLI for the blog: it lists and exports
// pages, announces posts on social platforms and writes posts to the
// content store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/keithlinneman/socialblog/internal/app"
	"github.com/keithlinneman/socialblog/internal/cfg"
	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/export"
	"github.com/keithlinneman/socialblog/internal/log"
	v "github.com/keithlinneman/socialblog/internal/version"
	"github.com/keithlinneman/socialblog/internal/webassets"
	"github.com/keithlinneman/socialblog/internal/xerrors"
)

const usage = `usage: blogctl <command> [flags]

commands:
  paths                 print every post and category slug as JSON
  export                render the site to -out or the export S3 bucket
  share <slug>          announce a published post on its enabled platforms
  create-post           create a post (needs a write key)
  update-post <id>      update fields of a post (needs a write key)
  version               print build information
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type command func(ctx context.Context, args []string, stdout, stderr io.Writer) error

var commands = map[string]command{
	"paths":       runPaths,
	"export":      runExport,
	"share":       runShare,
	"create-post": runCreatePost,
	"update-post": runUpdatePost,
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	name := args[0]
	switch name {
	case "version", "-V", "--version":
		fmt.Fprintln(stdout, v.Get().String())
		return 0
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", name, usage)
		return 2
	}
	if err := cmd(ctx, args[1:], stdout, stderr); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(stderr, "blogctl %s: %v\n", name, err)
		return 1
	}
	return 0
}

// setup parses args into conf (flags, then .env, then BLOG_ env vars) and
// builds the content pipeline. Callers register their own flags on fs first.
func setup(ctx context.Context, fs *flag.FlagSet, conf *cfg.App, args []string, stderr io.Writer) (*app.App, log.Logger, error) {
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if err := cfg.LoadDotEnv(conf.EnvFile); err != nil {
		return nil, nil, err
	}
	cfg.FillFromEnv(fs, "BLOG_", func(format string, a ...any) {
		fmt.Fprintf(stderr, format+"\n", a...)
	})
	if err := cfg.ValidateContent(*conf); err != nil {
		return nil, nil, xerrors.Wrap(err, "config")
	}

	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	stackLvl, err := log.ParseLevel(conf.StacktraceLevel)
	if err != nil {
		return nil, nil, err
	}
	L, err := log.New(log.Options{
		App:               v.App,
		Version:           v.Get().Version,
		Component:         "blogctl",
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JSON:              conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
		Writer:            stderr,
	})
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(log.WithContext(ctx, L), app.Options{Config: *conf, Logger: L})
	if err != nil {
		return nil, nil, err
	}
	return a, L, nil
}

func newFlagSet(name string, conf *cfg.App) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.Register(fs, conf)
	return fs
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runPaths(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var conf cfg.App
	fs := newFlagSet("paths", &conf)
	a, _, err := setup(ctx, fs, &conf, args, stderr)
	if err != nil {
		return err
	}
	paths, err := a.Blog.StaticPaths(ctx)
	if err != nil {
		return err
	}
	return writeJSON(stdout, paths)
}

func runExport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		conf     cfg.App
		out      string
		parallel int
	)
	fs := newFlagSet("export", &conf)
	fs.StringVar(&out, "out", "", "write to this directory instead of the export S3 bucket")
	fs.IntVar(&parallel, "parallel", 4, "concurrent renders and uploads")
	a, L, err := setup(ctx, fs, &conf, args, stderr)
	if err != nil {
		return err
	}

	var sink export.Sink
	switch {
	case out != "":
		sink = &export.DirSink{Dir: out}
	case conf.ExportS3Bucket != "":
		awsCfg, err := a.AWSConfig(ctx)
		if err != nil {
			return err
		}
		sink = &export.S3Sink{
			Client: s3.NewFromConfig(awsCfg),
			Bucket: conf.ExportS3Bucket,
			Prefix: conf.ExportS3Prefix,
		}
	default:
		fmt.Fprintln(stderr, "export: set -out or -export-s3-bucket")
		return errUsage
	}

	ex, err := export.New(export.Options{
		Logger:   L,
		Pages:    a.Blog,
		Renderer: a.Renderer,
		StaticFS: webassets.StaticFS(),
		Sink:     sink,
		Parallel: parallel,
	})
	if err != nil {
		return err
	}
	res, err := ex.Run(ctx)
	if err != nil {
		return err
	}
	return writeJSON(stdout, res)
}

func runShare(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var conf cfg.App
	fs := newFlagSet("share", &conf)
	a, _, err := setup(ctx, fs, &conf, args, stderr)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "share: expected exactly one post slug")
		return errUsage
	}
	slug := fs.Arg(0)

	p, err := a.Store.GetPostBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if p == nil {
		return xerrors.Newf("post %q not found or not published", slug)
	}
	return reportShares(stdout, a.Social.ShareToAllPlatforms(ctx, *p))
}

// reportShares prints the per-platform outcome and fails if any platform
// did.
func reportShares[K ~string](w io.Writer, results map[K]bool) error {
	if err := writeJSON(w, results); err != nil {
		return err
	}
	var failed []string
	for k, ok := range results {
		if !ok {
			failed = append(failed, string(k))
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return xerrors.Newf("share failed on %s", strings.Join(failed, ", "))
	}
	return nil
}

// postFlags are the post fields shared by create-post and update-post.
type postFlags struct {
	title, content, contentFile string
	authorID, categoryID, image string
	status, tags, summary       string
	published                   string
	seoTitle, seoDescription    string

	facebook, youtube, telegram, whatsapp, autoPost bool
	shareMessage                                    string
}

func (p *postFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&p.title, "title", "", "post title")
	fs.StringVar(&p.content, "content", "", "markdown body")
	fs.StringVar(&p.contentFile, "content-file", "", "read the markdown body from this file")
	fs.StringVar(&p.authorID, "author-id", "", "author object id")
	fs.StringVar(&p.categoryID, "category-id", "", "category object id")
	fs.StringVar(&p.image, "featured-image", "", "featured image media name")
	fs.StringVar(&p.status, "status", "", "published|draft|archived")
	fs.StringVar(&p.tags, "tags", "", "comma separated tags")
	fs.StringVar(&p.summary, "summary", "", "short summary")
	fs.StringVar(&p.published, "published-date", "", "RFC3339 or YYYY-MM-DD")
	fs.StringVar(&p.seoTitle, "seo-title", "", "SEO title override")
	fs.StringVar(&p.seoDescription, "seo-description", "", "SEO description override")
	fs.BoolVar(&p.facebook, "share-facebook", false, "enable facebook sharing")
	fs.BoolVar(&p.youtube, "share-youtube", false, "enable youtube community posts")
	fs.BoolVar(&p.telegram, "share-telegram", false, "enable telegram announcements")
	fs.BoolVar(&p.whatsapp, "share-whatsapp", false, "enable whatsapp share link")
	fs.BoolVar(&p.autoPost, "auto-post", false, "announce on enabled platforms once published")
	fs.StringVar(&p.shareMessage, "share-message", "", "custom announcement text")
}

func (p *postFlags) body() (string, error) {
	if p.contentFile == "" {
		return p.content, nil
	}
	b, err := os.ReadFile(p.contentFile)
	if err != nil {
		return "", xerrors.Wrapf(err, "read %s", p.contentFile)
	}
	return string(b), nil
}

func (p *postFlags) statusValue() (content.Status, error) {
	s := content.Status(strings.ToLower(strings.TrimSpace(p.status)))
	if s != "" && !s.Valid() {
		return "", xerrors.Newf("invalid status %q", p.status)
	}
	return s, nil
}

func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (p *postFlags) sharing() *content.SocialSharing {
	return &content.SocialSharing{
		Facebook:      p.facebook,
		YouTube:       p.youtube,
		Telegram:      p.telegram,
		WhatsApp:      p.whatsapp,
		AutoPost:      p.autoPost,
		CustomMessage: p.shareMessage,
	}
}

func (p *postFlags) seo() *content.SEO {
	if p.seoTitle == "" && p.seoDescription == "" {
		return nil
	}
	return &content.SEO{Title: p.seoTitle, Description: p.seoDescription}
}

func runCreatePost(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		conf cfg.App
		pf   postFlags
		slug string
	)
	fs := newFlagSet("create-post", &conf)
	pf.register(fs)
	fs.StringVar(&slug, "slug", "", "url slug")
	a, _, err := setup(ctx, fs, &conf, args, stderr)
	if err != nil {
		return err
	}
	if pf.title == "" || slug == "" {
		fmt.Fprintln(stderr, "create-post: -title and -slug are required")
		return errUsage
	}
	if !a.Client.CanWrite() {
		return xerrors.New("create-post needs -cosmic-write-key or -cosmic-write-key-param")
	}

	body, err := pf.body()
	if err != nil {
		return err
	}
	status, err := pf.statusValue()
	if err != nil {
		return err
	}
	in := content.PostInput{
		Title: pf.title,
		Slug:  slug,
		Metadata: content.PostInputMetadata{
			Content:       body,
			AuthorID:      pf.authorID,
			CategoryID:    pf.categoryID,
			FeaturedImage: pf.image,
			Status:        status,
			Summary:       pf.summary,
			SocialSharing: pf.sharing(),
			SEO:           pf.seo(),
		},
	}
	if pf.tags != "" {
		in.Metadata.Tags = splitTags(pf.tags)
	}
	if pf.published != "" {
		t, err := content.ParseDate(pf.published)
		if err != nil {
			return err
		}
		in.Metadata.PublishedDate = &t
	}

	post, err := a.Store.CreatePost(ctx, in)
	if err != nil {
		return err
	}
	if err := writeJSON(stdout, post); err != nil {
		return err
	}
	return autoShare(ctx, a, stdout, post)
}

func runUpdatePost(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		conf cfg.App
		pf   postFlags
	)
	fs := newFlagSet("update-post", &conf)
	pf.register(fs)
	a, _, err := setup(ctx, fs, &conf, args, stderr)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "update-post: expected exactly one post id")
		return errUsage
	}
	if !a.Client.CanWrite() {
		return xerrors.New("update-post needs -cosmic-write-key or -cosmic-write-key-param")
	}

	id := fs.Arg(0)
	set := setFlags(fs)
	// social_sharing and seo are replaced whole, so merge into what is stored
	var current *content.Post
	if anySet(set, shareFlags...) || anySet(set, seoFlags...) {
		if current, err = a.Store.GetPostByID(ctx, id); err != nil {
			return err
		}
		if current == nil {
			return xerrors.Newf("post %q not found", id)
		}
	}

	u, err := pf.update(set, current)
	if err != nil {
		return err
	}
	post, err := a.Store.UpdatePost(ctx, id, u)
	if err != nil {
		return err
	}
	if err := writeJSON(stdout, post); err != nil {
		return err
	}
	return autoShare(ctx, a, stdout, post)
}

var (
	shareFlags = []string{"share-facebook", "share-youtube", "share-telegram", "share-whatsapp", "auto-post", "share-message"}
	seoFlags   = []string{"seo-title", "seo-description"}
)

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func anySet(set map[string]bool, names ...string) bool {
	for _, n := range names {
		if set[n] {
			return true
		}
	}
	return false
}

// update turns the flags in set into a partial update. Nested settings
// start from current (nil for none) and change only the flags given.
func (p *postFlags) update(set map[string]bool, current *content.Post) (content.PostUpdate, error) {
	var (
		u  content.PostUpdate
		md content.PostMetadataUpdate
		n  int // metadata fields set
	)
	str := func(name string, v string) *string {
		if !set[name] {
			return nil
		}
		n++
		return &v
	}
	if set["title"] {
		title := p.title
		u.Title = &title
	}
	md.AuthorID = str("author-id", p.authorID)
	md.CategoryID = str("category-id", p.categoryID)
	md.FeaturedImage = str("featured-image", p.image)
	md.Summary = str("summary", p.summary)

	if set["content"] || set["content-file"] {
		body, err := p.body()
		if err != nil {
			return u, err
		}
		md.Content = &body
		n++
	}
	if set["status"] {
		s, err := p.statusValue()
		if err != nil {
			return u, err
		}
		md.Status = &s
		n++
	}
	if set["tags"] {
		tags := splitTags(p.tags)
		md.Tags = &tags
		n++
	}
	if set["published-date"] {
		t, err := content.ParseDate(p.published)
		if err != nil {
			return u, err
		}
		md.PublishedDate = &t
		n++
	}
	if anySet(set, shareFlags...) {
		var ss content.SocialSharing
		if current != nil && current.Metadata.SocialSharing != nil {
			ss = *current.Metadata.SocialSharing
		}
		for _, t := range []struct {
			name string
			dst  *bool
			v    bool
		}{
			{"share-facebook", &ss.Facebook, p.facebook},
			{"share-youtube", &ss.YouTube, p.youtube},
			{"share-telegram", &ss.Telegram, p.telegram},
			{"share-whatsapp", &ss.WhatsApp, p.whatsapp},
			{"auto-post", &ss.AutoPost, p.autoPost},
		} {
			if set[t.name] {
				*t.dst = t.v
			}
		}
		if set["share-message"] {
			ss.CustomMessage = p.shareMessage
		}
		md.SocialSharing = &ss
		n++
	}
	if anySet(set, seoFlags...) {
		var seo content.SEO
		if current != nil && current.Metadata.SEO != nil {
			seo = *current.Metadata.SEO
		}
		if set["seo-title"] {
			seo.Title = p.seoTitle
		}
		if set["seo-description"] {
			seo.Description = p.seoDescription
		}
		md.SEO = &seo
		n++
	}
	if n > 0 {
		u.Metadata = &md
	}
	if u.Title == nil && u.Metadata == nil {
		return u, xerrors.New("nothing to update")
	}
	return u, nil
}

// autoShare announces a post that is published with auto_post enabled.
func autoShare(ctx context.Context, a *app.App, stdout io.Writer, p *content.Post) error {
	ss := p.Metadata.SocialSharing
	if !p.IsPublished() || ss == nil || !ss.AutoPost {
		return nil
	}
	return reportShares(stdout, a.Social.ShareToAllPlatforms(ctx, *p))
}
