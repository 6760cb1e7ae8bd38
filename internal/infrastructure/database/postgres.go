package database

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkatsoulis/tillpoint/internal/config"
	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	logLevel := logger.Info

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true, // surfaces unique violations as gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL DB to set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Println("Successfully connected to PostgreSQL database")
	return db, nil
}

// AutoMigrate runs GORM auto-migration for all entities and installs the
// constraints the settlement invariants rely on
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&entity.User{},
		&entity.Category{},
		&entity.Product{},
		&entity.RegisterSession{},
		&entity.RegisterClosing{},
		&entity.Order{},
		&entity.SaleLineItem{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// At most one open session system-wide. The partial unique index makes
	// concurrent opens race at the storage level instead of in application
	// code; the loser gets a unique violation and re-reads.
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS one_open_register_session
		 ON register_sessions ((closed_at IS NULL)) WHERE closed_at IS NULL`,
	).Error; err != nil {
		return fmt.Errorf("failed to create open-session index: %w", err)
	}

	// Monetary sanity checks mirroring the entity invariants
	if err := db.Exec(
		`ALTER TABLE orders ADD CONSTRAINT orders_final_amount_non_negative
		 CHECK (final_amount >= 0)`,
	).Error; err != nil {
		log.Printf("Note: final_amount check not added (may already exist): %v", err)
	}
	if err := db.Exec(
		`ALTER TABLE sale_line_items ADD CONSTRAINT line_items_quantity_positive
		 CHECK (quantity > 0)`,
	).Error; err != nil {
		log.Printf("Note: quantity check not added (may already exist): %v", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// SeedDefaultData seeds an admin user when configured via environment variables
func SeedDefaultData(db *gorm.DB) error {
	adminEmail := viper.GetString("ADMIN_EMAIL")
	adminPassword := viper.GetString("ADMIN_PASSWORD")
	adminName := viper.GetString("ADMIN_NAME")

	if adminEmail == "" || adminPassword == "" {
		return nil
	}

	var existing entity.User
	if err := db.Where("email = ?", adminEmail).First(&existing).Error; err == nil {
		log.Printf("Admin user already exists: %s", adminEmail)
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	if adminName == "" {
		adminName = "Admin"
	}

	admin := entity.User{
		Name:     adminName,
		Email:    adminEmail,
		Password: string(hashed),
		Role:     "admin",
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Printf("Admin user created: %s", adminEmail)
	return nil
}
