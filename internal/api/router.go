package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/api/handlers"
	"github.com/jafarshop/dropsim/internal/api/middleware"
	"github.com/jafarshop/dropsim/internal/config"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, services *service.Services, repos *repository.Repositories, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", middleware.IdempotencyMiddleware(repos, logger), handlers.HandleCreateOrder(services.Orders, logger))
			orders.GET("", handlers.HandleListOrders(services.Orders, logger))
			orders.GET("/:id", handlers.HandleGetOrder(services.Orders, logger))
			orders.POST("/:id/process", handlers.HandleProcessOrder(services.Orders, logger))
			orders.POST("/:id/retry", handlers.HandleRetryOrder(services.Orders, logger))
			orders.POST("/:id/cancel", handlers.HandleCancelOrder(services.Orders, logger))
			orders.POST("/:id/fulfillment", handlers.HandleUpdateFulfillment(services.Orders, logger))
			orders.GET("/:id/profit", handlers.HandleOrderProfit(services.Orders, logger))
		}

		v1.GET("/analytics/orders", handlers.HandleOrderAnalytics(services.Analytics, logger))
		v1.POST("/shipping/quote", handlers.HandleQuoteShipping(services.Orders, logger))

		discounts := v1.Group("/discounts")
		{
			discounts.POST("", handlers.HandleCreateDiscount(services.Discounts, logger))
			discounts.GET("", handlers.HandleListDiscounts(services.Discounts, logger))
			discounts.POST("/validate", handlers.HandleValidateDiscount(services.Discounts, logger))
			discounts.POST("/apply", handlers.HandleApplyDiscount(services.Discounts, logger))
			discounts.POST("/:id/deactivate", handlers.HandleDeactivateDiscount(services.Discounts, logger))
		}

		products := v1.Group("/products")
		{
			products.GET("", handlers.HandleListProducts(services.Catalog, logger))
			products.POST("/import", handlers.HandleImportProduct(services.Catalog, logger))
			products.POST("/sync", handlers.HandleBulkSync(services.Catalog, logger))
			products.GET("/:id", handlers.HandleGetProduct(services.Catalog, logger))
			products.DELETE("/:id", handlers.HandleDeleteProduct(services.Catalog, logger))
			products.POST("/:id/sync", handlers.HandleSyncProduct(services.Catalog, logger))
			products.GET("/:id/margin", handlers.HandleProductMargin(services.Catalog, logger))
			products.POST("/:id/reprice", handlers.HandleRepriceProduct(services.Catalog, logger))
		}

		carts := v1.Group("/carts")
		{
			carts.POST("", handlers.HandleCreateCart(services.Carts, logger))
			carts.GET("", handlers.HandleListCarts(services.Carts, logger))
			carts.POST("/sweep", handlers.HandleSweepCarts(services.Carts, logger))
			carts.GET("/:id", handlers.HandleGetCart(services.Carts, logger))
			carts.POST("/:id/recover", handlers.HandleRecoverCart(services.Carts, logger))
			carts.POST("/:id/remind", handlers.HandleSendReminder(services.Carts, logger))
		}

		campaigns := v1.Group("/campaigns")
		{
			campaigns.POST("", handlers.HandleCreateCampaign(services.Campaigns, logger))
			campaigns.GET("", handlers.HandleListCampaigns(services.Campaigns, logger))
			campaigns.GET("/:id", handlers.HandleGetCampaign(services.Campaigns, logger))
			campaigns.PATCH("/:id", handlers.HandleUpdateCampaign(services.Campaigns, logger))
			campaigns.DELETE("/:id", handlers.HandleDeleteCampaign(services.Campaigns, logger))
			campaigns.POST("/:id/execute", handlers.HandleExecuteCampaign(services.Campaigns, logger))
		}

		settings := v1.Group("/settings")
		{
			settings.GET("", handlers.HandleGetSettings(services.Settings, logger))
			settings.PUT("/markup", handlers.HandleUpdateMarkup(services.Settings, logger))
			settings.PUT("/automation", handlers.HandleUpdateAutomation(services.Settings, logger))
			settings.PUT("/tax", handlers.HandleUpdateTax(services.Settings, logger))
		}
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
