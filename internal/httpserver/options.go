package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/socialblog/internal/health"
	"github.com/keithlinneman/socialblog/internal/httpmw"
	"github.com/keithlinneman/socialblog/internal/log"
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions
	Health       health.Probe
	Readiness    health.Probe

	// SiteRoutes mounts the HTML pages and owns NotFound/MethodNotAllowed.
	SiteRoutes func(chi.Router)
	// APIRoutes mounts the JSON API.
	APIRoutes func(chi.Router)
}
