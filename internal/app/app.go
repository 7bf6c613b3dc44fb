// Package app assembles the content pipeline shared by the server and
// blogctl: credentials, store client, social integrations, view models and
// page rendering.
package app

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/socialblog/internal/blog"
	"github.com/keithlinneman/socialblog/internal/cfg"
	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/cosmic"
	"github.com/keithlinneman/socialblog/internal/log"
	"github.com/keithlinneman/socialblog/internal/render"
	"github.com/keithlinneman/socialblog/internal/secrets"
	"github.com/keithlinneman/socialblog/internal/social"
	"github.com/keithlinneman/socialblog/internal/webassets"
	"github.com/keithlinneman/socialblog/internal/xerrors"
)

type Options struct {
	Config cfg.App
	Logger log.Logger
	// Observer and Shares are usually the same *metrics.ServerMetrics.
	Observer cosmic.Observer
	Shares   social.ShareRecorder
	// AWSConfig skips config.LoadDefaultConfig when set.
	AWSConfig *aws.Config
	// SSM overrides the parameter client built from the AWS config.
	SSM secrets.ParameterAPI
}

type App struct {
	Client   *cosmic.Client
	Store    *content.Store
	Social   *social.Manager
	Telegram *social.TelegramSharer
	Blog     *blog.Service
	Renderer *render.Renderer

	logger log.Logger

	awsOnce sync.Once
	awsCfg  aws.Config
	awsErr  error
}

// New resolves store credentials and builds every content component. It
// makes no store calls.
func New(ctx context.Context, opts Options) (*App, error) {
	conf := opts.Config
	L := opts.Logger
	if L == nil {
		L = log.Nop()
	}
	a := &App{logger: L}
	if opts.AWSConfig != nil {
		a.awsOnce.Do(func() { a.awsCfg = *opts.AWSConfig })
	}

	readKey, writeKey, err := a.resolveKeys(ctx, conf, opts.SSM)
	if err != nil {
		return nil, err
	}

	a.Client, err = cosmic.New(cosmic.Config{
		BucketSlug: conf.CosmicBucketSlug,
		ReadKey:    readKey,
		WriteKey:   writeKey,
		BaseURL:    conf.CosmicBaseURL,
		Timeout:    conf.CosmicTimeout,
		Observer:   opts.Observer,
		Logger:     L.With("component", "cosmic"),
	})
	if err != nil {
		return nil, err
	}

	a.Store, err = content.NewStore(content.StoreOptions{Client: a.Client, Logger: L})
	if err != nil {
		return nil, err
	}

	socialLog := L.With("component", "social")
	a.Telegram = social.NewTelegram(social.TelegramConfig{
		Token:     conf.TelegramBotToken,
		ChannelID: conf.TelegramChannelID,
		SiteURL:   conf.SiteURL,
		Logger:    socialLog,
	})
	a.Social = social.NewManager(social.ManagerOptions{
		Sharers: []social.Sharer{
			social.FacebookSharer{SiteURL: conf.SiteURL, Logger: socialLog},
			social.YouTubeSharer{Logger: socialLog},
			a.Telegram,
			social.WhatsAppSharer{SiteURL: conf.SiteURL, Logger: socialLog},
		},
		Logger:   socialLog,
		Recorder: opts.Shares,
	})

	a.Blog, err = blog.New(blog.Options{
		Source:  a.Store,
		Logger:  L,
		SiteURL: conf.SiteURL,
		Social:  a.Social,
	})
	if err != nil {
		return nil, err
	}

	a.Renderer, err = render.NewRenderer(render.Site{
		Name:         conf.SiteName,
		URL:          conf.SiteURL,
		Description:  conf.SiteDescription,
		DefaultImage: conf.SiteImage,
	}, webassets.TemplatesFS())
	if err != nil {
		return nil, xerrors.Wrap(err, "parse page templates")
	}

	L.Info(ctx, "content pipeline ready",
		"bucket", conf.CosmicBucketSlug,
		"can_write", a.Client.CanWrite(),
		"telegram", a.Telegram.Configured(),
	)
	return a, nil
}

// AWSConfig loads the default AWS configuration once.
func (a *App) AWSConfig(ctx context.Context) (aws.Config, error) {
	a.awsOnce.Do(func() {
		a.awsCfg, a.awsErr = config.LoadDefaultConfig(ctx)
		if a.awsErr != nil {
			a.awsErr = xerrors.Wrap(a.awsErr, "load AWS config")
		}
	})
	return a.awsCfg, a.awsErr
}

func (a *App) resolveKeys(ctx context.Context, conf cfg.App, client secrets.ParameterAPI) (read, write string, err error) {
	needSSM := (conf.CosmicReadKey == "" && conf.CosmicReadKeyParam != "") ||
		(conf.CosmicWriteKey == "" && conf.CosmicWriteKeyParam != "")
	if needSSM && client == nil {
		awsCfg, err := a.AWSConfig(ctx)
		if err != nil {
			return "", "", err
		}
		client = ssm.NewFromConfig(awsCfg)
	}
	r := secrets.NewResolver(client, a.logger)

	read, err = r.Resolve(ctx, conf.CosmicReadKey, conf.CosmicReadKeyParam)
	if err != nil {
		return "", "", xerrors.Wrap(err, "resolve read key")
	}
	write, err = r.Resolve(ctx, conf.CosmicWriteKey, conf.CosmicWriteKeyParam)
	if err != nil {
		return "", "", xerrors.Wrap(err, "resolve write key")
	}
	return read, write, nil
}
