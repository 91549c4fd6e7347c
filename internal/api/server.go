package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/harrier/internal/blocklist"
	"github.com/opensource-finance/harrier/internal/detector"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
	"github.com/opensource-finance/harrier/internal/events"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/profile"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// Dependencies collects everything the API surface needs. A struct
// keeps the constructor readable as the dependency list grows.
type Dependencies struct {
	Engine     *engine.Engine
	Store      domain.KVStore
	Repo       domain.Repository
	Bus        domain.EventBus
	Blocklist  *blocklist.Manager
	Events     *events.Recorder
	Profiles   *profile.Store
	Reputation *detector.StoreReputation
	Cards      *detector.StoreCardHistory
	Rules      *detector.CustomRules
	Version    string
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Dependencies) *Server {
	handler := NewHandler(deps)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(MetricsMiddleware)      // Prometheus request metrics
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Operational endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Assessment
	router.Post("/assess", handler.Assess)
	router.Get("/assessments/{id}", handler.GetAssessment)
	router.Get("/assessments", handler.ListAssessments)
	router.Get("/stats", handler.Stats)

	// Behavior profiles
	router.Get("/profiles/{identityId}", handler.GetProfile)

	// Blocklist administration
	router.Get("/check/blocked", handler.CheckBlocked)
	router.Get("/blocklist", handler.ListBlocklist)
	router.Post("/blocklist", handler.Block)
	router.Delete("/blocklist/{type}/{value}", handler.Unblock)

	// Security events
	router.Get("/events", handler.ListEvents)

	// Signal feeds
	router.Put("/reputation", handler.SetReputation)
	router.Post("/signals/card-verification", handler.CardVerification)

	// Custom rule management
	router.Get("/rules", handler.ListRules)
	router.Get("/rules/{id}", handler.GetRule)
	router.Post("/rules", handler.CreateRule)
	router.Put("/rules/{id}", handler.UpdateRule)
	router.Delete("/rules/{id}", handler.DeleteRule)
	router.Post("/rules/reload", handler.ReloadRules)

	// Live alert stream
	router.Get("/ws/alerts", handler.StreamAlerts)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
