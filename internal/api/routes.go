// Package api provides the HTTP API for the Handout server.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/handout-labs/handout/internal/api/handlers"
	"github.com/handout-labs/handout/internal/api/middleware"
	"github.com/handout-labs/handout/internal/auth"
	"github.com/handout-labs/handout/internal/config"
	"github.com/handout-labs/handout/internal/db"
	"github.com/handout-labs/handout/internal/orgs"
)

// Config holds configuration for the API router.
type Config struct {
	// Environment controls CORS strictness.
	Environment config.Environment
	// AllowedOrigins for CORS. Empty means all origins allowed in dev mode.
	AllowedOrigins []string
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m", "1h").
	RateLimitPeriod string
	// RedisURL backs the rate limiter with Redis when set. Empty uses an
	// in-memory store.
	RedisURL string
	// Version information for the version endpoint.
	Version   string
	Commit    string
	BuildDate string
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		Environment:       config.EnvDevelopment,
		AllowedOrigins:    []string{},
		RateLimitRequests: 100,
		RateLimitPeriod:   "1m",
		Version:           "dev",
		Commit:            "unknown",
		BuildDate:         "unknown",
	}
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine   *gin.Engine
	logger   zerolog.Logger
	sessions *auth.SessionStore
	db       *db.DB
}

// NewRouter creates a new Router with the given dependencies. oidc may be
// nil when SSO is not configured.
func NewRouter(
	cfg Config,
	database *db.DB,
	service *orgs.Service,
	oidc *auth.OIDC,
	sessions *auth.SessionStore,
	logger zerolog.Logger,
) (*Router, error) {
	r := &Router{
		Engine:   gin.New(),
		logger:   logger.With().Str("component", "router").Logger(),
		sessions: sessions,
		db:       database,
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.Metrics())
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment))

	// Rate limiting
	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	// Health check endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(database, logger)
	healthHandler.RegisterPublicRoutes(r.Engine)

	// Prometheus metrics endpoint (no auth required)
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Version endpoint (no auth required)
	versionHandler := handlers.NewVersionHandler(cfg.Version, cfg.Commit, cfg.BuildDate)
	versionHandler.RegisterPublicRoutes(r.Engine)

	// Public session listing (no auth required)
	publicHandler := handlers.NewPublicHandler(database, logger)
	publicHandler.RegisterRoutes(r.Engine.Group("/public"))

	// Auth routes (no auth required)
	authHandler := handlers.NewAuthHandler(database, service, sessions, oidc, logger)
	authHandler.RegisterRoutes(r.Engine.Group("/auth"))

	orgHandler := handlers.NewOrgHandler(database, service, sessions, logger)

	// Invitation preview is reachable before login so an invitee can see
	// the organization and role the link grants.
	invitePreview := r.Engine.Group("/api/v1/invitations")
	invitePreview.Use(middleware.OptionalAuthMiddleware(sessions, logger))
	orgHandler.RegisterPublicRoutes(invitePreview)

	// API v1 routes (auth required)
	apiV1 := r.Engine.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(sessions, logger))
	apiV1.Use(middleware.UserVerifyMiddleware(database, sessions, logger))

	orgHandler.RegisterRoutes(apiV1)

	templateHandler := handlers.NewTemplateHandler(database, orgHandler, logger)
	templateHandler.RegisterRoutes(apiV1)

	sessionHandler := handlers.NewSessionHandler(database, orgHandler, logger)
	sessionHandler.RegisterRoutes(apiV1)

	r.logger.Info().Msg("API router initialized")
	return r, nil
}
