package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mkatsoulis/tillpoint/internal/application/service"
	"github.com/mkatsoulis/tillpoint/internal/config"
	"github.com/mkatsoulis/tillpoint/internal/infrastructure/database"
	"github.com/mkatsoulis/tillpoint/internal/infrastructure/repository"
	"github.com/mkatsoulis/tillpoint/internal/presentation/http/handler"
	"github.com/mkatsoulis/tillpoint/internal/presentation/http/routes"
	"github.com/mkatsoulis/tillpoint/pkg/printer"
	"github.com/mkatsoulis/tillpoint/pkg/utils"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed default data
	if err := database.SeedDefaultData(db); err != nil {
		log.Printf("Warning: Failed to seed default data: %v", err)
	}

	// Initialize JWT manager
	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.ExpiryHours,
		cfg.JWT.RefreshExpiryHours,
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	closingRepo := repository.NewClosingRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	lineItemRepo := repository.NewLineItemRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	// Initialize thermal printer
	closingPrinter, err := printer.NewPrinterFromConfig(cfg.Printer.Type, cfg.Printer.Address)
	if err != nil {
		log.Printf("Warning: Failed to initialize printer: %v", err)
		closingPrinter = printer.NewNullPrinter()
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager)
	reconService := service.NewReconciliationService(sessionRepo, orderRepo, closingRepo, cfg.Settlement.CouponValue)
	statsService := service.NewStatisticsService(orderRepo, cfg.Settlement)
	sessionService := service.NewSessionService(sessionRepo, closingRepo, orderRepo, reconService, statsService, closingPrinter, cfg.App.Name)
	saleService := service.NewSaleService(orderRepo, lineItemRepo, productRepo, sessionService, cfg.Settlement)
	productService := service.NewProductService(productRepo, categoryRepo)

	// Initialize handlers
	handlers := &routes.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Session:   handler.NewSessionHandler(sessionService, reconService),
		Sale:      handler.NewSaleHandler(saleService, reconService),
		Product:   handler.NewProductHandler(productService),
		Dashboard: handler.NewDashboardHandler(statsService),
	}

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		JWTManager: jwtManager,
		Cfg:        cfg,
	})

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting %s server on port %s...", cfg.App.Name, port)
	log.Printf("Environment: %s", cfg.App.Env)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
