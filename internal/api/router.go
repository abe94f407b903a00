package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"estatehub/listings/internal/api/handlers"
	"estatehub/listings/internal/api/middleware"
	"estatehub/listings/internal/config"
	"estatehub/listings/internal/metrics"
	"estatehub/listings/internal/services"
	"estatehub/listings/internal/storage"
)

// SetupRouter configures and returns the main Gin engine. imageStorage and m
// may be nil. ctx bounds background goroutines started by middleware.
func SetupRouter(ctx context.Context, cfg *config.Config, listingService services.IListingService, imageStorage storage.IImageStorage, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg.RateLimitRefillRate, cfg.RateLimitBucketSize, logger)

	// Apply global middleware first (order matters)
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	if m != nil {
		r.Use(m.GinMiddleware())
	}
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())
	r.Use(middleware.OptionalAuthMiddleware(cfg.JwtSecret, logger))

	restListingHandler := handlers.NewRestListingHandler(listingService, imageStorage, cfg.HideErrorDetails)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	listings := r.Group("/listings")
	{
		listings.GET("", restListingHandler.ListListings)
		listings.GET("/status", restListingHandler.ListUserListingsByStatus)
		listings.GET("/status/:status", restListingHandler.ListUserListingsByStatus)
		listings.POST("/check-duplicate", restListingHandler.CheckDuplicateDraft)
		listings.POST("/uploads", middleware.AuthMiddleware(cfg.JwtSecret), restListingHandler.CreateImageUpload)
		listings.GET("/:id", restListingHandler.GetListingByID)
		listings.POST("", restListingHandler.CreateListing)
		listings.PATCH("/:id", restListingHandler.UpdateListing)
		listings.DELETE("/:id", restListingHandler.DeleteListing)

		moderation := listings.Group("/:id")
		if cfg.ModerationRequiresAdmin {
			moderation.Use(middleware.AdminMiddleware())
		}
		moderation.PATCH("/approve", restListingHandler.ApproveListing)
		moderation.PATCH("/reject", restListingHandler.RejectListing)
	}

	return r
}
