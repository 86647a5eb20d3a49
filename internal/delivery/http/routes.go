package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/horecawatch/engine/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, log zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(MetricsMiddleware())

	// Health check and metrics endpoints
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	{
		resolve := v1.Group("/resolve")
		{
			resolve.POST("", handler.Resolve)
			resolve.POST("/batch", handler.ResolveBatch)
			resolve.POST("/candidates", handler.Candidates)
		}

		v1.POST("/duplicates", handler.Duplicates)
		v1.POST("/observations", handler.Observe)
		v1.POST("/sites/:site/new", handler.NewProducts)

		changes := v1.Group("/changes")
		{
			changes.GET("/summary", handler.DailySummary)
			changes.GET("/unnotified", handler.UnnotifiedChanges)
			changes.POST("/notified", handler.MarkNotified)
		}

		products := v1.Group("/products")
		{
			products.GET("/:id/leader", handler.PriceLeader)
			products.GET("/:id/trend", handler.PriceTrend)
		}

		v1.GET("/comparison", handler.PriceComparison)
		v1.GET("/analysis", handler.CompetitorAnalysis)

		mappings := v1.Group("/mappings")
		{
			mappings.GET("", handler.ListMappings)
			mappings.POST("", handler.AddMapping)
		}
	}

	return router
}
