package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mfDealFlow/internal/adapters/logger"
	"mfDealFlow/internal/adapters/nse"
	"mfDealFlow/internal/ports"
)

// SourceMode selects which feeds a fetch cycle queries.
type SourceMode string

const (
	SourceModeArchive SourceMode = "archive" // Archive CSV files only
	SourceModeAPI     SourceMode = "api"     // JSON API only (needs a session)
	SourceModeBoth    SourceMode = "both"
)

// StoreBackend selects the persistence adapter.
type StoreBackend string

const (
	StoreSQLite  StoreBackend = "sqlite"
	StoreMsgpack StoreBackend = "msgpack"
)

// Config holds all application configuration.
type Config struct {
	// Sources
	SourceMode      SourceMode
	BulkArchiveURL  string
	BlockArchiveURL string
	BulkAPIURL      string
	BlockAPIURL     string

	// HTTP session
	HomeURL     string
	UserAgent   string
	Referer     string
	HTTPTimeout time.Duration

	// Store
	StoreBackend StoreBackend
	DBPath       string
	SnapshotPath string

	// Classification
	KeywordsFile string // Empty means the embedded default set

	// Logging
	LogLevel  logger.LogLevel
	LogFormat logger.Format

	// Serving
	APIPort        int
	CacheTTL       time.Duration
	IngestSchedule string // Cron spec; empty disables scheduled ingestion
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Sources
	cfg.SourceMode = SourceMode(strings.ToLower(getEnv("SOURCE_MODE", string(SourceModeArchive))))
	switch cfg.SourceMode {
	case SourceModeArchive, SourceModeAPI, SourceModeBoth:
	default:
		errs = append(errs, fmt.Sprintf("SOURCE_MODE must be one of archive, api, both (got %q)", cfg.SourceMode))
	}

	cfg.BulkArchiveURL = getEnv("BULK_ARCHIVE_URL", nse.DefaultBulkArchiveURL)
	cfg.BlockArchiveURL = getEnv("BLOCK_ARCHIVE_URL", nse.DefaultBlockArchiveURL)
	cfg.BulkAPIURL = getEnv("BULK_API_URL", nse.DefaultBulkAPIURL)
	cfg.BlockAPIURL = getEnv("BLOCK_API_URL", nse.DefaultBlockAPIURL)
	cfg.HomeURL = getEnv("NSE_HOME_URL", nse.DefaultHomeURL)
	for key, v := range map[string]string{
		"BULK_ARCHIVE_URL":  cfg.BulkArchiveURL,
		"BLOCK_ARCHIVE_URL": cfg.BlockArchiveURL,
		"BULK_API_URL":      cfg.BulkAPIURL,
		"BLOCK_API_URL":     cfg.BlockAPIURL,
		"NSE_HOME_URL":      cfg.HomeURL,
	} {
		if !validURL(v) {
			errs = append(errs, fmt.Sprintf("%s must be an absolute http(s) URL", key))
		}
	}

	// HTTP session
	cfg.UserAgent = getEnv("HTTP_USER_AGENT", nse.DefaultUserAgent)
	cfg.Referer = getEnv("HTTP_REFERER", nse.DefaultReferer)

	timeoutSeconds, err := getEnvAsIntRequired("HTTP_TIMEOUT_SECONDS", 15)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid HTTP_TIMEOUT_SECONDS: %v", err))
	} else if timeoutSeconds <= 0 {
		errs = append(errs, "HTTP_TIMEOUT_SECONDS must be positive")
	}
	cfg.HTTPTimeout = time.Duration(timeoutSeconds) * time.Second

	// Store
	cfg.StoreBackend = StoreBackend(strings.ToLower(getEnv("STORE_BACKEND", string(StoreSQLite))))
	cfg.DBPath = getEnv("DB_PATH", "./data/bulk_block.db")
	cfg.SnapshotPath = getEnv("SNAPSHOT_PATH", "./data/bulk_block_master.msgpack")
	switch cfg.StoreBackend {
	case StoreSQLite:
		if cfg.DBPath == "" {
			errs = append(errs, "DB_PATH must be set")
		}
	case StoreMsgpack:
		if cfg.SnapshotPath == "" {
			errs = append(errs, "SNAPSHOT_PATH must be set")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND must be sqlite or msgpack (got %q)", cfg.StoreBackend))
	}

	// Classification
	cfg.KeywordsFile = getEnv("KEYWORDS_FILE", "")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = logger.ParseFormat(getEnv("LOG_FORMAT", "text"))

	// Serving
	cfg.APIPort, err = getEnvAsIntRequired("API_PORT", 8080)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid API_PORT: %v", err))
	} else if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		errs = append(errs, "API_PORT must be between 1 and 65535")
	}

	ttlSeconds := getEnvAsInt("CACHE_TTL_SECONDS", 300)
	if ttlSeconds < 0 {
		errs = append(errs, "CACHE_TTL_SECONDS cannot be negative")
	}
	cfg.CacheTTL = time.Duration(ttlSeconds) * time.Second

	cfg.IngestSchedule = strings.TrimSpace(getEnv("INGEST_SCHEDULE", ""))

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s: %w", strings.Join(errs, "; "), ports.ErrConfigurationError)
	}

	return cfg, nil
}

// UsesArchive reports whether the archive CSV feeds are queried.
func (c *Config) UsesArchive() bool {
	return c.SourceMode == SourceModeArchive || c.SourceMode == SourceModeBoth
}

// UsesAPI reports whether the JSON API feeds are queried.
func (c *Config) UsesAPI() bool {
	return c.SourceMode == SourceModeAPI || c.SourceMode == SourceModeBoth
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
