package config

import (
	"os"
	"time"

	"canteen-order-api/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config carries everything the services need, constructed once in main
// and passed down. No package-level state.
type Config struct {
	Port         string
	DatabasePath string
	JWTSecret    []byte

	GatewayBaseURL       string
	GatewayKeyID         string
	GatewayKeySecret     string
	GatewayWebhookSecret string

	SweepInterval         time.Duration
	ExtendedSweepInterval time.Duration
	MenuCacheTTL          time.Duration
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "canteen_orders.db"),
		JWTSecret:    []byte(getEnv("JWT_SECRET", "canteen_order_super_secret_2024")),

		GatewayBaseURL:       getEnv("GATEWAY_BASE_URL", "https://api.razorpay.com"),
		GatewayKeyID:         getEnv("GATEWAY_KEY_ID", ""),
		GatewayKeySecret:     getEnv("GATEWAY_KEY_SECRET", ""),
		GatewayWebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", ""),

		SweepInterval:         time.Minute,
		ExtendedSweepInterval: time.Hour,
		MenuCacheTTL:          5 * time.Minute,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// OpenDB opens the sqlite database and migrates all models. The returned
// handle is injected into the stores; tests open their own.
func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.Canteen{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
