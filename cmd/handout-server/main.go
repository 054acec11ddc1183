// Package main is the entrypoint for the Handout server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/handout-labs/handout/internal/api"
	"github.com/handout-labs/handout/internal/auth"
	"github.com/handout-labs/handout/internal/config"
	"github.com/handout-labs/handout/internal/db"
	"github.com/handout-labs/handout/internal/maintenance"
	"github.com/handout-labs/handout/internal/orgs"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if os.Getenv("ENV") != string(config.EnvProduction) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("Starting Handout server")

	// Load configuration
	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
		return 1
	}

	// Connect to database
	database, err := db.New(ctx, db.DefaultConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
		return 1
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run database migrations")
		return 1
	}

	// Initialize session store
	isSecure := cfg.Environment == config.EnvProduction
	sessionCfg := auth.DefaultSessionConfig([]byte(cfg.SessionSecret), isSecure)
	sessionCfg.MaxAge = cfg.SessionMaxAge
	sessions, err := auth.NewSessionStore(sessionCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize session store")
		return 1
	}

	// Initialize OIDC when configured
	var oidcProvider *auth.OIDC
	if cfg.OIDCEnabled() {
		oidcCfg := auth.DefaultOIDCConfig(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
		oidcProvider, err = auth.NewOIDC(ctx, oidcCfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize OIDC provider")
			return 1
		}
		logger.Info().Str("issuer", cfg.OIDCIssuer).Msg("OIDC provider initialized")
	} else {
		logger.Info().Msg("OIDC not configured - password login only")
	}

	// Organization and invitation lifecycle service
	service := orgs.NewService(database, cfg.BaseURL, logger)

	routerCfg := api.Config{
		Environment:       cfg.Environment,
		AllowedOrigins:    cfg.CORSOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitPeriod:   cfg.RateLimitPeriod,
		RedisURL:          cfg.RedisURL,
		Version:           Version,
		Commit:            Commit,
		BuildDate:         BuildDate,
	}

	router, err := api.NewRouter(routerCfg, database, service, oidcProvider, sessions, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize router")
		return 1
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Start the maintenance sweeper
	sweeper := maintenance.NewSweeper(database, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start maintenance sweeper")
	}
	defer sweeper.Stop()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		return 1
	}

	logger.Info().Msg("Server stopped gracefully")
	return 0
}
