package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/tendant/jwks-resolver/internal/metrics"
)

// Server represents the HTTP server.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	logger    *slog.Logger
	rateLimit int
	cors      []string
	health    *HealthHandler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRateLimit limits key endpoints to n requests per minute per client IP.
// Zero disables limiting.
func WithRateLimit(n int) Option {
	return func(s *Server) {
		s.rateLimit = n
	}
}

// WithCORS sets the browser origins allowed to read key endpoints.
// No origins means cross-origin reads are refused.
func WithCORS(origins []string) Option {
	return func(s *Server) {
		s.cors = origins
	}
}

// WithReadinessCheck sets the check run by /readyz.
func WithReadinessCheck(check func(ctx context.Context) error) Option {
	return func(s *Server) {
		s.health = NewHealthHandler(check)
	}
}

// NewServer creates a new HTTP server serving keys from provider.
func NewServer(addr string, provider KeyProvider, opts ...Option) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		logger: slog.Default(),
		health: NewHealthHandler(nil),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Default middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.GetHead)
	r.Use(metrics.Middleware)
	r.Use(SecurityHeadersMiddleware)

	// Request logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				s.logger.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	})

	// Health endpoints
	r.Get("/healthz", s.health.Healthz)
	r.Get("/readyz", s.health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	// Key endpoints
	keys := NewKeysHandler(provider, s.logger)
	r.Group(func(r chi.Router) {
		r.Use(CORSMiddleware(s.cors))
		if s.rateLimit > 0 {
			r.Use(httprate.Limit(s.rateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					metrics.RecordRateLimitExceeded("keys")
					writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
				}),
			))
		}

		r.Get("/keys", keys.List)
		r.Get("/keys/{kid}", keys.Get)
		r.Get("/keys/{kid}/pem", keys.PEM)

		// Preflights from allowed origins are answered by the CORS middleware.
		r.Options("/keys", noContent)
		r.Options("/keys/*", noContent)
	})

	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router returns the chi router for adding routes.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server. /readyz reports not ready from
// the moment shutdown begins.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.logger.Info("shutting down server")
	return s.server.Shutdown(ctx)
}

func noContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
