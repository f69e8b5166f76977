package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"companion/internal/handler"
	"companion/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	MatchHandler    *handler.MatchHandler
	TripHandler     *handler.TripHandler
	ProfileHandler  *handler.ProfileHandler
	SkipHandler     *handler.SkipHandler
	InterestHandler *handler.InterestHandler
	ReportHandler   *handler.ReportHandler
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
	RateLimiter     *middleware.RateLimiter
	CORSOrigins     []string
	JWTSecret       string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware(deps.CORSOrigins))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	if deps.RateLimiter != nil {
		v1.Use(deps.RateLimiter.Middleware())
	}
	{
		// Replays must only ever reach a caller that already passed auth.
		travelers := v1.Group("/travelers/:id")
		travelers.Use(middleware.RequireTraveler(deps.JWTSecret))
		travelers.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
		{
			travelers.GET("/matches", deps.MatchHandler.GetMatches)

			travelers.PUT("/trip", deps.TripHandler.DeclareTrip)
			travelers.GET("/trip", deps.TripHandler.GetTrip)
			travelers.DELETE("/trip", deps.TripHandler.CancelTrip)

			travelers.PUT("/profile", deps.ProfileHandler.UpsertProfile)
			travelers.GET("/profile", deps.ProfileHandler.GetProfile)

			travelers.POST("/skips", deps.SkipHandler.CreateSkip)

			travelers.POST("/interests", deps.InterestHandler.ExpressInterest)
			travelers.GET("/interests", deps.InterestHandler.ListInterests)
			travelers.POST("/interests/:interestId/respond", deps.InterestHandler.RespondInterest)

			travelers.POST("/reports", deps.ReportHandler.CreateReport)
		}
	}

	return router
}
