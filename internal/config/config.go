package config

import (
	"os"
	"strconv"
	"time"

	"qcportal/internal/logger"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// BlobConfig selects where record images are kept.
// Driver is "minio" or "local"; Root is the key prefix (minio) or directory (local)
// every returned relative path is resolved against.
type BlobConfig struct {
	Driver string
	Root   string
}

// NotifyConfig configures the optional outbound webhook.
type NotifyConfig struct {
	WebhookURL string
	TimeoutSec int
}

// SearchConfig bounds result caps.
type SearchConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost        string
	Port           string
	StoreDriver    string // postgres or memory
	DefaultUser    string
	VocabularyFile string
	PreviewRows    int
	// Location is the time zone used for log timestamps (APP_TIMEZONE).
	Location       *time.Location
	Database       DatabaseConfig
	MinIO          MinIOConfig
	Blob           BlobConfig
	Notify         NotifyConfig
	Search         SearchConfig
	Log            logger.Config

	// ImportSessionTTLMin drops idle import sessions; 0 disables expiry.
	ImportSessionTTLMin int
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	logCfg := logger.DefaultConfig()
	logCfg.Level = getEnv("LOG_LEVEL", logCfg.Level)
	logCfg.Format = getEnv("LOG_FORMAT", logCfg.Format)
	logCfg.Output = getEnv("LOG_OUTPUT", logCfg.Output)
	logCfg.File.Filename = getEnv("LOG_FILE", logCfg.File.Filename)
	loc := getEnvLocation("APP_TIMEZONE", time.UTC)
	logCfg.Location = loc

	return &AppConfig{
		AppHost:        getEnv("APP_HOST", "localhost:8080"),
		Port:           getEnv("PORT", "8080"),
		StoreDriver:    getEnv("STORE_DRIVER", "postgres"),
		DefaultUser:    getEnv("QC_USER", "qc"),
		VocabularyFile: getEnv("VOCABULARY_FILE", ""),
		PreviewRows:    getEnvInt("IMPORT_PREVIEW_ROWS", 20),
		Location:       loc,
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Blob: BlobConfig{
			Driver: getEnv("BLOB_DRIVER", "minio"),
			Root:   getEnv("BLOB_ROOT", "images"),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			TimeoutSec: getEnvInt("NOTIFY_TIMEOUT_SEC", 5),
		},
		Search: SearchConfig{
			DefaultLimit: getEnvInt("SEARCH_DEFAULT_LIMIT", 100),
			MaxLimit:     getEnvInt("SEARCH_MAX_LIMIT", 1000),
		},
		Log: logCfg,

		ImportSessionTTLMin: getEnvInt("IMPORT_SESSION_TTL_MIN", 60),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvLocation loads an IANA time zone name, falling back to def when the
// variable is unset or unknown.
func getEnvLocation(key string, def *time.Location) *time.Location {
	if v := os.Getenv(key); v != "" {
		if loc, err := time.LoadLocation(v); err == nil {
			return loc
		}
	}
	return def
}
