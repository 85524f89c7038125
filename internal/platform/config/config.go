// Package config loads application configuration from environment variables.
// All variables use the GRADEVIEW_ prefix. A .env file in the working
// directory is read first; variables already set win over it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/p-n-ai/gradeview/internal/analytics"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Log        LogConfig
	Report     ReportConfig
	Analytics  AnalyticsConfig
	Sync       SyncConfig
	CoursePath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins []string // websocket origin patterns
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL turns
// usage analytics off.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings.
type CacheConfig struct {
	URL      string
	PoolSize int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// ReportConfig holds report computation settings.
type ReportConfig struct {
	Concurrency int
}

// AnalyticsConfig holds usage-event settings.
type AnalyticsConfig struct {
	PseudonymKey string
}

// SyncConfig holds spreadsheet import settings used by gradesync.
type SyncConfig struct {
	Workbook     string
	Sheet        string
	BinsSheet    string
	BinsStartRow int
	BinsEndRow   int
}

// Load reads configuration from environment variables with GRADEVIEW_ prefix.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           envInt("GRADEVIEW_SERVER_PORT", 8080),
			Host:           envStr("GRADEVIEW_SERVER_HOST", "0.0.0.0"),
			AllowedOrigins: envList("GRADEVIEW_SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:      envStr("GRADEVIEW_DATABASE_URL", ""),
			MaxConns: envInt("GRADEVIEW_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("GRADEVIEW_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL:      envStr("GRADEVIEW_CACHE_URL", "redis://localhost:6379"),
			PoolSize: envInt("GRADEVIEW_CACHE_POOL_SIZE", 20),
		},
		Log: LogConfig{
			Level:  envStr("GRADEVIEW_LOG_LEVEL", "info"),
			Format: envStr("GRADEVIEW_LOG_FORMAT", "json"),
		},
		Report: ReportConfig{
			Concurrency: envInt("GRADEVIEW_REPORT_CONCURRENCY", 8),
		},
		Analytics: AnalyticsConfig{
			PseudonymKey: envStr("GRADEVIEW_ANALYTICS_PSEUDONYM_KEY", ""),
		},
		Sync: SyncConfig{
			Workbook:     envStr("GRADEVIEW_SYNC_WORKBOOK", ""),
			Sheet:        envStr("GRADEVIEW_SYNC_SHEET", ""),
			BinsSheet:    envStr("GRADEVIEW_SYNC_BINS_SHEET", ""),
			BinsStartRow: envInt("GRADEVIEW_SYNC_BINS_START_ROW", 2),
			BinsEndRow:   envInt("GRADEVIEW_SYNC_BINS_END_ROW", 0),
		},
		CoursePath: envStr("GRADEVIEW_COURSE_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Cache.URL == "" {
		return fmt.Errorf("GRADEVIEW_CACHE_URL is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("GRADEVIEW_SERVER_PORT must be 1-65535, got %d", c.Server.Port)
	}

	if c.Report.Concurrency <= 0 {
		return fmt.Errorf("GRADEVIEW_REPORT_CONCURRENCY must be positive, got %d", c.Report.Concurrency)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("GRADEVIEW_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	if c.HasDatabase() && c.Analytics.PseudonymKey == "" {
		return fmt.Errorf("GRADEVIEW_ANALYTICS_PSEUDONYM_KEY is required when GRADEVIEW_DATABASE_URL is set")
	}

	if n := len(c.Analytics.PseudonymKey); n > analytics.MaxKeySize {
		return fmt.Errorf("GRADEVIEW_ANALYTICS_PSEUDONYM_KEY must be at most %d bytes, got %d", analytics.MaxKeySize, n)
	}

	return nil
}

// HasDatabase returns true if usage analytics should be stored in PostgreSQL.
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
