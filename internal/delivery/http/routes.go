package http

import (
	"github.com/drape/backend/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = 12 << 20

	// Global middleware
	router.Use(LoggerMiddleware(logger))
	router.Use(RecoveryMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		products := v1.Group("/products")
		{
			products.POST("/search", handler.SearchProducts)
		}

		outfits := v1.Group("/outfits")
		{
			outfits.POST("/suggest", handler.SuggestOutfit)
			outfits.POST("/shop", handler.ShopOutfit)
		}

		v1.POST("/media/upload", handler.UploadImage)

		notifications := v1.Group("/notifications")
		{
			notifications.POST("", handler.SendNotification)
			notifications.PUT("/preferences", handler.SavePreferences)
		}

		v1.GET("/dashboard/updates", handler.DashboardUpdates)
	}

	return router
}
