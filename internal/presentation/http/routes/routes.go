package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkatsoulis/tillpoint/internal/config"
	"github.com/mkatsoulis/tillpoint/internal/presentation/http/handler"
	"github.com/mkatsoulis/tillpoint/internal/presentation/http/middleware"
	"github.com/mkatsoulis/tillpoint/pkg/utils"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth      *handler.AuthHandler
	Session   *handler.SessionHandler
	Sale      *handler.SaleHandler
	Product   *handler.ProductHandler
	Dashboard *handler.DashboardHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager *utils.JWTManager
	Cfg        *config.Config
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public routes (no authentication required)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))

		rateLimiter := middleware.NewUserRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(deps.Cfg.RateLimit.Requests) / float64(deps.Cfg.RateLimit.Duration),
			BurstSize:         deps.Cfg.RateLimit.Requests,
			CleanupInterval:   5 * time.Minute,
			EntryTTL:          10 * time.Minute,
		})
		protected.Use(rateLimiter.Middleware())

		registerProtectedRoutes(protected, h)
	}

	return router
}

func registerProtectedRoutes(protected *gin.RouterGroup, h *Handlers) {
	protected.GET("/profile", h.Auth.GetProfile)

	// Register sessions
	sessions := protected.Group("/sessions")
	{
		sessions.POST("/open", h.Session.Open)
		sessions.GET("/active", h.Session.GetActive)
		sessions.GET("", h.Session.List)
		sessions.GET("/:id", h.Session.Get)
		sessions.GET("/:id/report", h.Session.Report)
		sessions.POST("/:id/close", h.Session.Close)
	}

	// Sales
	sales := protected.Group("/sales")
	{
		sales.POST("", h.Sale.Create)
		sales.GET("", h.Sale.List)
		sales.GET("/:id", h.Sale.Get)
		sales.GET("/:id/receipt", h.Sale.Receipt)
		sales.POST("/:id/items", h.Sale.AppendItem)
		sales.PUT("/items/:itemId", h.Sale.EditItem)
		sales.DELETE("/items/:itemId", h.Sale.DeleteItem)
	}

	// Catalog
	products := protected.Group("/products")
	{
		products.GET("", h.Product.List)
		products.POST("", h.Product.Create)
		products.GET("/:id", h.Product.Get)
		products.PUT("/:id", h.Product.Update)
	}
	categories := protected.Group("/categories")
	{
		categories.GET("", h.Product.ListCategories)
		categories.POST("", h.Product.CreateCategory)
	}

	// Dashboard
	protected.GET("/dashboard", h.Dashboard.GetStats)
}
