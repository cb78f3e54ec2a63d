package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Storage StorageConfig
	Pricing PricingConfig
	Log     LogConfig
}

type StorageConfig struct {
	DataDir        string
	HistoryFile    string
	CalcDir        string
	UploadDir      string
	ArchiveUploads bool
}

type PricingConfig struct {
	FreeServiceMinutes      int
	ServiceIncrementMinutes int
	Rounding                string // "legacy" or "single"
}

type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

const (
	RoundingLegacy = "legacy"
	RoundingSingle = "single"
)

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	dataDir := getEnv("PUMPQUOTE_DATA_DIR", "./data")

	cfg := &Config{
		Storage: StorageConfig{
			DataDir:        dataDir,
			HistoryFile:    getEnv("PUMPQUOTE_HISTORY_FILE", filepath.Join(dataDir, "laskuhistoria.csv")),
			CalcDir:        getEnv("PUMPQUOTE_CALC_DIR", filepath.Join(dataDir, "laskennat")),
			UploadDir:      getEnv("PUMPQUOTE_UPLOAD_DIR", filepath.Join(dataDir, "uploads")),
			ArchiveUploads: getEnvAsBool("PUMPQUOTE_ARCHIVE_UPLOADS", true),
		},
		Pricing: PricingConfig{
			FreeServiceMinutes:      getEnvAsInt("PRICING_FREE_SERVICE_MINUTES", 25),
			ServiceIncrementMinutes: getEnvAsInt("PRICING_SERVICE_INCREMENT_MINUTES", 5),
			Rounding:                strings.ToLower(getEnv("PRICING_ROUNDING", RoundingLegacy)),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges that env parsing cannot express
func (c *Config) Validate() error {
	if c.Pricing.FreeServiceMinutes < 0 {
		return errors.New("PRICING_FREE_SERVICE_MINUTES must not be negative")
	}
	if c.Pricing.ServiceIncrementMinutes <= 0 {
		return errors.New("PRICING_SERVICE_INCREMENT_MINUTES must be positive")
	}
	switch c.Pricing.Rounding {
	case RoundingLegacy, RoundingSingle:
	default:
		return fmt.Errorf("PRICING_ROUNDING must be %q or %q, got %q", RoundingLegacy, RoundingSingle, c.Pricing.Rounding)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
