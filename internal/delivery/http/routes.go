package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ptzburn/junction25/config"
)

// maxBodySize bounds request bodies, inline images included
const maxBodySize = 10 << 20

// SetupRouter creates and configures the Gin router. metricsHandler may be
// nil to leave /metrics unregistered.
func SetupRouter(cfg *config.Config, handler *Handler, metricsHandler http.Handler, logger *zap.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(BodySizeLimit(maxBodySize), RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		dishes := v1.Group("/dishes")
		{
			dishes.POST("/search", handler.SearchDishes)
			dishes.POST("/analyze", handler.AnalyzeDish)
		}

		v1.POST("/orders/suggest", handler.SuggestOrder)
		v1.POST("/stock/match", handler.MatchStock)
		v1.POST("/market/recommend", handler.RecommendMarket)
	}

	return router
}
