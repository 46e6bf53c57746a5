package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DB holds the connection settings for the record store.
type DB struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Config carries everything the generation pipeline needs. It is built once
// and passed explicitly so tests can substitute endpoints and keys without
// touching process environment.
type Config struct {
	APIHost       string
	Engine        string
	Bucket        string
	Distribution  string
	PublicBaseURL string

	MaxPrompts  int
	MaxAttempts int
	BaseDelay   time.Duration

	DefaultWidth    int
	DefaultHeight   int
	DefaultCfgScale float64
	DefaultSteps    int
	DefaultSamples  int

	GalleryLimit int

	DB DB
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIHost:       envOr("STABILITY_API_HOST", "https://api.stability.ai"),
		Engine:        envOr("STABILITY_ENGINE", "stable-diffusion-xl-1024-v1-0"),
		Bucket:        os.Getenv("BUCKET"),
		Distribution:  os.Getenv("DISTRIBUTION"),
		PublicBaseURL: envOr("PUBLIC_BASE_URL", "https://example.com/images"),

		MaxPrompts:  intOr("MAX_PROMPTS", 3),
		MaxAttempts: intOr("MAX_ATTEMPTS", 3),
		BaseDelay:   time.Duration(intOr("BASE_DELAY_SECONDS", 5)) * time.Second,

		DefaultWidth:    intOr("DEFAULT_IMAGE_WIDTH", 1024),
		DefaultHeight:   intOr("DEFAULT_IMAGE_HEIGHT", 1024),
		DefaultCfgScale: floatOr("DEFAULT_CFG_SCALE", 7.0),
		DefaultSteps:    intOr("DEFAULT_STEPS", 30),
		DefaultSamples:  intOr("DEFAULT_SAMPLES", 1),

		GalleryLimit: intOr("GALLERY_LIMIT", 25),

		DB: DB{
			Host:            os.Getenv("DB_HOST"),
			Port:            intOr("DB_PORT", 5432),
			User:            os.Getenv("DB_USER"),
			Password:        os.Getenv("DB_PASSWORD"),
			Database:        os.Getenv("DB_NAME"),
			SSLMode:         envOr("DB_SSL_MODE", "require"),
			MaxOpenConns:    intOr("DB_MAX_OPEN_CONNS", 5),
			MaxIdleConns:    intOr("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(intOr("DB_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("BUCKET is required")
	}
	for _, v := range []struct{ name, value string }{
		{"DB_HOST", cfg.DB.Host},
		{"DB_USER", cfg.DB.User},
		{"DB_PASSWORD", cfg.DB.Password},
		{"DB_NAME", cfg.DB.Database},
	} {
		if v.value == "" {
			return nil, fmt.Errorf("%s is required", v.name)
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string for the record store.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func floatOr(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}
