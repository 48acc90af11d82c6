// Package http exposes a Controller over a chi router: transport commands, status,
// server-sent snapshot diffs and Prometheus metrics. Requests are validated against the
// embedded OpenAPI document.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/cueline/internal/logging"
	"github.com/aretw0/cueline/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultAwait bounds how long a command request waits for the engine to apply it.
const DefaultAwait = 500 * time.Millisecond

// Server serves one Controller.
type Server struct {
	ctl      ports.Controller
	logger   *slog.Logger
	version  string
	await    time.Duration
	gatherer prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithVersion sets the build version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithAwait sets how long command requests wait for their result. Zero returns 202
// immediately after queueing.
func WithAwait(d time.Duration) Option {
	return func(s *Server) { s.await = d }
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewHandler creates the HTTP handler for ctl.
func NewHandler(ctl ports.Controller, opts ...Option) (http.Handler, error) {
	s := &Server{
		ctl:     ctl,
		logger:  logging.NewNop(),
		version: "dev",
		await:   DefaultAwait,
	}
	for _, opt := range opts {
		opt(s)
	}

	validator, err := newValidator()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(openapiSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(validator.middleware(s.logger))

		r.Get("/health", s.GetHealth)
		r.Get("/info", s.GetInfo)
		r.Get("/status", s.GetStatus)
		r.Get("/events", s.SubscribeEvents)
		r.Get("/cues", s.ListCues)
		r.Get("/tempo", s.GetTempo)
		r.Get("/tempo/segment", s.GetTempoSegment)

		r.Post("/commands", s.SubmitCommand)
		r.Post("/transport/{action}", s.Transport)
		r.Post("/cues/go", s.simple(domainGo))
		r.Post("/cues/next", s.simple(domainNext))
		r.Post("/cues/prev", s.simple(domainPrev))
		r.Post("/cues/{cueID}/jump", s.JumpToCue)
		r.Post("/tempo/nudge", s.NudgeTempo)
		r.Post("/tempo/playrate", s.SetPlayrate)
		r.Post("/position/seek", s.SeekBeat)
		r.Post("/cues/load", s.LoadCue)
		r.Post("/vamp/release", s.simple(domainRelease))
		r.Post("/vamp/hold", s.simple(domainHold))
		r.Post("/channels/{channel}/gain", s.SetChannelGain)
		r.Post("/channels/{channel}/mute", s.SetChannelMute)
	})
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>cueline API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := loadSpec(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"app":         "cueline-http",
		"version":     s.version,
		"api_version": apiVersion,
	})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}
