package cfg

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/keithlinneman/socialblog/internal/log"
)

// EnvPrefix is prepended to upper-cased flag names when reading the environment.
const EnvPrefix = "BLOG_"

type App struct {
	EnvFile           string
	LogJSON           bool
	LogLevel          string
	HTTPPort          int
	AdminPort         int
	EnablePprof       bool
	EnablePyroscope   bool
	EnableTracing     bool
	PyroServer        string
	PyroTenantID      string
	OTLPEndpoint      string
	TraceSample       float64
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int
	RateLimitRPS      float64
	RateLimitBurst    int

	SiteURL         string
	SiteName        string
	SiteDescription string
	SiteImage       string

	CosmicBaseURL       string
	CosmicBucketSlug    string
	CosmicReadKey       string
	CosmicWriteKey      string
	CosmicReadKeyParam  string
	CosmicWriteKeyParam string
	CosmicTimeout       time.Duration

	TelegramBotToken  string
	TelegramChannelID string

	ExportS3Bucket string
	ExportS3Prefix string
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.StringVar(&c.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", 20, "per-client request rate on the public port")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 40, "per-client burst on the public port")

	fs.StringVar(&c.SiteURL, "site-url", "http://localhost:8080", "public base URL used in share links, feeds and canonical URLs")
	fs.StringVar(&c.SiteName, "site-name", "Social Blog", "site title")
	fs.StringVar(&c.SiteDescription, "site-description", "Stories, guides and news shared across every channel", "default meta description")
	fs.StringVar(&c.SiteImage, "site-image", "", "default og:image URL for pages without a featured image")

	fs.StringVar(&c.CosmicBaseURL, "cosmic-base-url", "https://api.cosmicjs.com/v3", "content store API base URL")
	fs.StringVar(&c.CosmicBucketSlug, "cosmic-bucket-slug", "", "content store bucket slug")
	fs.StringVar(&c.CosmicReadKey, "cosmic-read-key", "", "content store read key")
	fs.StringVar(&c.CosmicWriteKey, "cosmic-write-key", "", "content store write key (mutations only)")
	fs.StringVar(&c.CosmicReadKeyParam, "cosmic-read-key-param", "", "ssm parameter holding the read key (used when -cosmic-read-key is empty)")
	fs.StringVar(&c.CosmicWriteKeyParam, "cosmic-write-key-param", "", "ssm parameter holding the write key (used when -cosmic-write-key is empty)")
	fs.DurationVar(&c.CosmicTimeout, "cosmic-timeout", 15*time.Second, "content store HTTP client timeout")

	fs.StringVar(&c.TelegramBotToken, "telegram-bot-token", "", "telegram bot token for channel announcements")
	fs.StringVar(&c.TelegramChannelID, "telegram-channel-id", "", "telegram channel id or @name")

	fs.StringVar(&c.ExportS3Bucket, "export-s3-bucket", "", "s3 bucket for pre-rendered pages")
	fs.StringVar(&c.ExportS3Prefix, "export-s3-prefix", "site", "s3 key prefix for pre-rendered pages")
}

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Validate checks the server configuration. Returns an error describing all
// invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	// Ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	errs = append(errs, validateLogging(c)...)

	// Tracing sample
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	// grpc exporter wants host:port, no scheme
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be > 0 (got %g)", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be >= 1 (got %d)", c.RateLimitBurst))
	}

	errs = append(errs, validateContent(c)...)

	return errors.Join(errs...)
}

// ValidateContent checks only what the operator CLI needs: logging, the
// site URL and the content store.
func ValidateContent(c App) error {
	errs := validateLogging(c)
	errs = append(errs, validateContent(c)...)
	return errors.Join(errs...)
}

func validateLogging(c App) []error {
	var errs []error
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
	}
	return errs
}

func validateContent(c App) []error {
	var errs []error
	if u, err := url.Parse(c.SiteURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("SITE_URL must be an absolute URL (got %q)", c.SiteURL))
	}
	if u, err := url.Parse(c.CosmicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("COSMIC_BASE_URL must be an absolute URL (got %q)", c.CosmicBaseURL))
	}
	if c.CosmicBucketSlug == "" {
		errs = append(errs, fmt.Errorf("COSMIC_BUCKET_SLUG is required"))
	}
	if c.CosmicReadKey == "" && c.CosmicReadKeyParam == "" {
		errs = append(errs, fmt.Errorf("COSMIC_READ_KEY or COSMIC_READ_KEY_PARAM is required"))
	}
	if c.CosmicTimeout <= 0 {
		errs = append(errs, fmt.Errorf("COSMIC_TIMEOUT must be > 0 (got %s)", c.CosmicTimeout))
	}
	return errs
}
