package http

import (
	"github.com/couponlens/backend/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		coupons := v1.Group("/coupons")
		{
			coupons.POST("/extract", handler.ExtractCoupons)
			coupons.POST("/extract/batch", handler.ExtractCouponsBatch)
		}

		dedup := v1.Group("/dedup")
		{
			dedup.GET("/stats", handler.DedupStats)
			dedup.GET("/contains", handler.DedupContains)
		}
	}

	return router
}
