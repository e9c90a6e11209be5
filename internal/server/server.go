// Package server is the HTTP surface of the proxy: routing, middleware and
// the OpenAI-compatible handlers.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jmbish04/ai-proxy-gateway/internal/config"
	"github.com/jmbish04/ai-proxy-gateway/internal/metrics"
	"github.com/jmbish04/ai-proxy-gateway/internal/models"
	"github.com/jmbish04/ai-proxy-gateway/internal/router"
	"github.com/jmbish04/ai-proxy-gateway/internal/storage"
	"github.com/jmbish04/ai-proxy-gateway/internal/tokens"
)

type Server struct {
	Router *chi.Mux
	Port   int

	logger  *slog.Logger
	proxy   *router.Router
	tokens  *tokens.Registry
	models  *models.Registry
	metrics *metrics.Metrics
	store   storage.InteractionStore

	httpServer *http.Server
}

// Options collects the server's collaborators. Store and Metrics may be nil.
type Options struct {
	Config  *config.Config
	Logger  *slog.Logger
	Proxy   *router.Router
	Tokens  *tokens.Registry
	Models  *models.Registry
	Metrics *metrics.Metrics
	Store   storage.InteractionStore
}

func New(opts Options) *Server {
	store := opts.Store
	if store == nil {
		store = storage.Nop{}
	}

	s := &Server{
		Port:    opts.Config.Server.Port,
		logger:  opts.Logger,
		proxy:   opts.Proxy,
		tokens:  opts.Tokens,
		models:  opts.Models,
		metrics: opts.Metrics,
		store:   store,
	}

	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(opts.Logger))
	r.Use(SessionIDMiddleware)
	r.Use(CORSMiddleware(opts.Config.CORS.AllowedOrigins))
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "ai-proxy-gateway")
	})

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.Route("/v1", func(r chi.Router) {
		if len(opts.Config.Auth.APIKeys) > 0 {
			r.Use(AuthMiddleware(opts.Config.Auth.APIKeys))
		}
		r.Post("/chat/completions", s.handleChatCompletions)
		r.Post("/completions", s.handleCompletions)
		r.Post("/tokenize", s.handleTokenize)
		r.Get("/model-options", s.handleModelOptions)
		r.Get("/route-check", s.handleRouteCheck)
	})

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	s.Router = r
	return s
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting new connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
