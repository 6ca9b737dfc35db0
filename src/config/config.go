package config

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// const dsn = "host=localhost user=postgres password=password dbname=marketdb port=5432 sslmode=disable TimeZone=Asia/Manila"

type Config struct {
	APIEnv          string
	Port            string
	AppHost         string
	LogDir          string
	MaintenanceMode bool
	JWTSecret       []byte

	DatabaseDriver string
	DSN            string

	RedisURL string

	KafkaBroker      string
	TransitionsTopic string

	PusherAppID   string
	PusherKey     string
	PusherSecret  string
	PusherCluster string

	// PendingBookingTTL is how long a reservation request may wait for the
	// seller before the sweep expires it. Zero disables the sweep.
	PendingBookingTTL    time.Duration
	BookingSweepInterval time.Duration
}

func Load() (*Config, error) {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			return nil, fmt.Errorf("could not load .env: %w", err)
		}
	}

	cfg := &Config{
		APIEnv:           os.Getenv("API_ENV"),
		Port:             getEnv("PORT", "8080"),
		AppHost:          os.Getenv("APP_HOST"),
		LogDir:           getEnv("LOG_DIR", "logs"),
		JWTSecret:        []byte(os.Getenv("JWT_SECRET")),
		DatabaseDriver:   getEnv("DATABASE_DRIVER", "postgres"),
		RedisURL:         os.Getenv("REDIS_URL"),
		KafkaBroker:      os.Getenv("KAFKA_BROKER"),
		TransitionsTopic: getEnv("KAFKA_TRANSITIONS_TOPIC", "marketplace-transitions"),
		PusherAppID:      os.Getenv("PUSHER_APP_ID"),
		PusherKey:        os.Getenv("PUSHER_KEY"),
		PusherSecret:     os.Getenv("PUSHER_SECRET"),
		PusherCluster:    os.Getenv("PUSHER_CLUSTER"),
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	mm, err := strconv.ParseBool(getEnv("MAINTENANCE_MODE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAINTENANCE_MODE: %w", err)
	}
	cfg.MaintenanceMode = mm

	cfg.PendingBookingTTL, err = time.ParseDuration(getEnv("BOOKING_PENDING_TTL", "72h"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_PENDING_TTL: %w", err)
	}
	cfg.BookingSweepInterval, err = time.ParseDuration(getEnv("BOOKING_SWEEP_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_SWEEP_INTERVAL: %w", err)
	}

	cfg.DSN = os.Getenv("DATABASE_URL")
	if cfg.DSN == "" {
		cfg.DSN = GetDSN(cfg.DatabaseDriver)
	}
	return cfg, nil
}

func (c *Config) IsProd() bool {
	return c.APIEnv == "production"
}

func (c *Config) PusherEnabled() bool {
	return c.PusherAppID != "" && c.PusherKey != "" && c.PusherSecret != ""
}

func GetDSN(driver string) string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	switch driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local", DATABASE_USER, DATABASE_PASSWORD, DATABASE_HOST, DATABASE_PORT, DATABASE_NAME)
	case "sqlite":
		return DATABASE_NAME
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
