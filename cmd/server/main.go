package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"companion/internal/app"
	"companion/internal/config"
	"companion/internal/handler"
	"companion/internal/logging"
	"companion/internal/matching"
	"companion/internal/middleware"
	internalRedis "companion/internal/redis"
	"companion/internal/repository/postgres"
	"companion/internal/service"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logging.Warn().Err(err).Msg("failed to initialize New Relic")
		} else {
			logging.Info().Str("app", cfg.NewRelic.AppName).Msg("New Relic enabled")
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	logging.Info().Str("host", cfg.Database.Host).Msg("connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	logging.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")

	// Wire dependencies.
	server, cleanup := wireServer(db, redisClient, nrApp, cfg)
	defer cleanup()

	// Start server in goroutine.
	go func() {
		logging.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server forced to shutdown")
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logging.Info().Msg("server exited")
}

// wireServer wires all dependencies and returns the HTTP server and a
// function releasing background resources.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, func()) {
	m := cfg.Matching
	breakerOpts := service.BreakerOptions{
		Timeout:          m.BreakerTimeout,
		FailureThreshold: m.BreakerFailureThreshold,
	}

	// Initialize repositories.
	profileRepo := postgres.NewProfileRepository(db)
	skipRepo := postgres.NewSkipRepository(db)
	interestRepo := postgres.NewInterestRepository(db)
	reportRepo := postgres.NewReportRepository(db)

	// Initialize Redis stores.
	sessionStore := service.NewGuardedSessionStore(internalRedis.NewSessionStore(redisClient), breakerOpts)
	profileCache := internalRedis.NewProfileCache(redisClient, m.ProfileCacheTTL)

	profileLoader := service.NewProfileLoader(profileCache, profileRepo, m.ProfileBatchWait, m.LookupTimeout)
	profileStore := service.NewGuardedProfileStore(profileLoader, breakerOpts)

	var scorerOpts []matching.Option
	if m.DateOverlapBonus {
		scorerOpts = append(scorerOpts, matching.WithDateOverlap(m.DateOverlapWeight))
	}
	scorer := matching.NewScorer(scorerOpts...)

	// Initialize services.
	notifier := service.NewLogNotifier()
	matchingService := service.NewMatchingService(sessionStore, profileStore, skipRepo, scorer, service.MatchingOptions{
		LookupTimeout:  m.LookupTimeout,
		MaxConcurrency: m.MaxConcurrency,
		MaxBudgetGap:   m.MaxBudgetGap,
	}).WithExclusions(interestRepo, reportRepo)
	tripService := service.NewTripIntentService(sessionStore, notifier, cfg.Session.TTL)
	profileService := service.NewProfileService(profileRepo, profileLoader)
	skipService := service.NewSkipService(sessionStore, skipRepo)
	interestService := service.NewInterestService(sessionStore, interestRepo, notifier)
	reportService := service.NewReportService(reportRepo, notifier)

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateBurst)
	}
	if cfg.Auth.JWTSecret == "" {
		logging.Warn().Msg("JWT_SECRET is empty, traveler routes are unauthenticated")
	}

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		MatchHandler:    handler.NewMatchHandler(matchingService),
		TripHandler:     handler.NewTripHandler(tripService),
		ProfileHandler:  handler.NewProfileHandler(profileService),
		SkipHandler:     handler.NewSkipHandler(skipService),
		InterestHandler: handler.NewInterestHandler(interestService),
		ReportHandler:   handler.NewReportHandler(reportService),
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
		RateLimiter:     limiter,
		CORSOrigins:     cfg.Server.CORSOrigins,
		JWTSecret:       cfg.Auth.JWTSecret,
	})

	cleanup := func() {
		if limiter != nil {
			limiter.Stop()
		}
	}

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, cleanup
}
