// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Recipe source kinds
const (
	RecipeSourceDir = "dir"
	RecipeSourceS3  = "s3"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the history database and backups staging (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	RequestTimeout time.Duration

	// StreamOriginPatterns lists the extra Origin hosts allowed to open the websocket stream.
	// The serving host is always allowed.
	StreamOriginPatterns []string

	Recipes   RecipeConfig
	Tolerance ToleranceConfig
	Additives AdditiveConfig
	SMTP      SMTPConfig
	Storage   ObjectStoreConfig
	Jobs      JobsConfig
}

// RecipeConfig selects where recipes are read from
type RecipeConfig struct {
	Source          string // "dir" or "s3"
	Dir             string
	Prefix          string // key prefix in the bucket when Source is "s3"
	CacheTTL        time.Duration
	Watch           bool // watch Dir for changes
	RefreshSchedule string
}

// ToleranceConfig locates the tolerance file inside the recipe source
type ToleranceConfig struct {
	Key     string
	Default float64
}

// AdditiveConfig holds the fallback additive concentrations used when a recipe omits one
type AdditiveConfig struct {
	FallbacksEnabled bool
	Compo1           float64
	Compo2           float64
	Compo3           float64
}

// SMTPConfig holds outgoing mail settings. An empty Host disables SMTP.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	StartTLS bool
	Timeout  time.Duration
}

// ObjectStoreConfig holds S3-compatible bucket settings. An empty Bucket disables it.
type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// JobsConfig holds scheduled job settings. Empty schedules disable a job.
type JobsConfig struct {
	BackupSchedule       string
	BackupPrefix         string
	BackupRetentionDays  int
	MaintenanceSchedule  string
	RetentionSchedule    string
	HistoryRetentionDays int // 0 keeps history forever
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("ECOWASH_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnvAsInt("PORT", 5000),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),

		StreamOriginPatterns: getEnvAsList("STREAM_ORIGIN_PATTERNS"),

		Recipes: RecipeConfig{
			Source:          strings.ToLower(getEnv("RECIPE_SOURCE", RecipeSourceDir)),
			Dir:             getEnv("RECIPE_DIR", filepath.Join(absDataDir, "recette")),
			Prefix:          getEnv("RECIPE_PREFIX", "recette"),
			CacheTTL:        getEnvAsDuration("RECIPE_CACHE_TTL", 5*time.Minute),
			Watch:           getEnvAsBool("RECIPE_WATCH", true),
			RefreshSchedule: getEnv("RECIPE_REFRESH_SCHEDULE", "0 */5 * * * *"),
		},
		Tolerance: ToleranceConfig{
			Key:     getEnv("TOLERANCE_KEY", "tolerance.txt"),
			Default: getEnvAsFloat("DEFAULT_TOLERANCE", 0.005),
		},
		Additives: AdditiveConfig{
			FallbacksEnabled: getEnvAsBool("ADDITIVE_FALLBACKS_ENABLED", true),
			Compo1:           getEnvAsFloat("ADDITIVE_FALLBACK_COMPO1", 0.852),
			Compo2:           getEnvAsFloat("ADDITIVE_FALLBACK_COMPO2", 0.81),
			Compo3:           getEnvAsFloat("ADDITIVE_FALLBACK_COMPO3", 0.83),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
			StartTLS: getEnvAsBool("SMTP_STARTTLS", true),
			Timeout:  getEnvAsDuration("SMTP_TIMEOUT", 15*time.Second),
		},
		Storage: ObjectStoreConfig{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "auto"),
			Bucket:          getEnv("S3_BUCKET", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
		Jobs: JobsConfig{
			BackupSchedule:       getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
			BackupPrefix:         getEnv("BACKUP_PREFIX", "backups"),
			BackupRetentionDays:  getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
			MaintenanceSchedule:  getEnv("MAINTENANCE_SCHEDULE", "0 15 * * * *"),
			RetentionSchedule:    getEnv("HISTORY_RETENTION_SCHEDULE", "0 0 4 * * *"),
			HistoryRetentionDays: getEnvAsInt("HISTORY_RETENTION_DAYS", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	switch c.Recipes.Source {
	case RecipeSourceDir:
		if c.Recipes.Dir == "" {
			return fmt.Errorf("RECIPE_DIR is required when RECIPE_SOURCE=dir")
		}
	case RecipeSourceS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when RECIPE_SOURCE=s3")
		}
	default:
		return fmt.Errorf("invalid RECIPE_SOURCE %q (expected %q or %q)", c.Recipes.Source, RecipeSourceDir, RecipeSourceS3)
	}

	if !positive(c.Tolerance.Default) {
		return fmt.Errorf("DEFAULT_TOLERANCE must be a positive number, got %v", c.Tolerance.Default)
	}

	if c.Additives.FallbacksEnabled {
		for name, v := range map[string]float64{
			"ADDITIVE_FALLBACK_COMPO1": c.Additives.Compo1,
			"ADDITIVE_FALLBACK_COMPO2": c.Additives.Compo2,
			"ADDITIVE_FALLBACK_COMPO3": c.Additives.Compo3,
		} {
			if !positive(v) {
				return fmt.Errorf("%s must be a positive number, got %v", name, v)
			}
		}
	}

	if c.SMTPEnabled() {
		if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP_PORT %d", c.SMTP.Port)
		}
		if c.SMTP.From == "" {
			return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
		}
	}

	if c.Jobs.HistoryRetentionDays < 0 {
		return fmt.Errorf("HISTORY_RETENTION_DAYS must not be negative")
	}
	if c.Jobs.BackupRetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative")
	}

	return nil
}

// SMTPEnabled reports whether result emails go through an SMTP relay
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != ""
}

// ObjectStoreEnabled reports whether a bucket is configured
func (c *Config) ObjectStoreEnabled() bool {
	return c.Storage.Bucket != ""
}

// HistoryDBPath returns the calculation history database file
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// StagingDir returns the scratch directory for backup archives
func (c *Config) StagingDir() string {
	return filepath.Join(c.DataDir, "backup-staging")
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		value = strings.Replace(strings.TrimSpace(value), ",", ".", 1)
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var list []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
