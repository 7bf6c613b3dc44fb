package social

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/log"
	"github.com/keithlinneman/socialblog/internal/xerrors"
)

type TelegramConfig struct {
	Token string
	// ChannelID is a numeric chat id or an @channel name.
	ChannelID string
	SiteURL   string
	// Endpoint is a fmt pattern taking token and method; defaults to the
	// public bot API.
	Endpoint   string
	HTTPClient *http.Client
	Logger     log.Logger
}

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSharer posts an announcement to a channel through the bot API.
// The bot is created on first use so an unreachable API never blocks
// startup.
type TelegramSharer struct {
	cfg    TelegramConfig
	logger log.Logger

	mu  sync.Mutex
	bot botSender
}

func NewTelegram(cfg TelegramConfig) *TelegramSharer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &TelegramSharer{cfg: cfg, logger: loggerOr(cfg.Logger)}
}

func (*TelegramSharer) Platform() Platform { return Telegram }

// Configured reports whether both token and channel are set.
func (s *TelegramSharer) Configured() bool {
	return s.cfg.Token != "" && s.cfg.ChannelID != ""
}

// Share returns false without error when the bot is not configured.
func (s *TelegramSharer) Share(ctx context.Context, p content.Post) (bool, error) {
	if !s.Configured() {
		s.logger.Warn(ctx, "telegram bot token or channel id not configured")
		return false, nil
	}
	bot, err := s.connect()
	if err != nil {
		return false, err
	}
	msg := s.message(p)
	if _, err := bot.Send(msg); err != nil {
		return false, xerrors.Wrapf(err, "telegram send to %s", s.cfg.ChannelID)
	}
	return true, nil
}

func (s *TelegramSharer) connect() (botSender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bot != nil {
		return s.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(s.cfg.Token, s.cfg.Endpoint, s.cfg.HTTPClient)
	if err != nil {
		return nil, xerrors.Wrap(err, "telegram connect")
	}
	s.bot = bot
	return bot, nil
}

func (s *TelegramSharer) message(p content.Post) tgbotapi.MessageConfig {
	text := AnnouncementText(s.cfg.SiteURL, p)
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(s.cfg.ChannelID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		name := s.cfg.ChannelID
		if !strings.HasPrefix(name, "@") {
			name = "@" + name
		}
		msg = tgbotapi.NewMessageToChannel(name, text)
	}
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

// AnnouncementText is the channel post for p.
func AnnouncementText(siteURL string, p content.Post) string {
	return "🆕 " + p.Title + "\n\n" + p.Metadata.Summary + "\n\nRead more: " + PostURL(siteURL, p.Slug)
}
