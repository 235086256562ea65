package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	SourceSheets   = "sheets"
	SourceDatabase = "database"
)

// Config holds process configuration read from the environment.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	StudioName  string

	Logger LoggerConfig

	OTELEnabled  bool
	OTLPEndpoint string

	Source SourceConfig
	Redis  RedisConfig

	// PushgatewayURL, when set, receives refresh metrics after every run.
	PushgatewayURL string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

type LoggerConfig struct {
	Level string
}

// SourceConfig selects where snapshots are fetched from.
type SourceConfig struct {
	Type string
	// Mirror writes successful sheet fetches to the database and serves the
	// last mirrored copy when a sheet fetch fails.
	Mirror bool
	Sheets SheetsConfig
}

type SheetsConfig struct {
	SpreadsheetID      string
	CredentialsFile    string
	LeadsRange         string
	EventsRange        string
	PaymentsRange      string
	PhotographersRange string
}

// RedisConfig is optional; an empty Addr keeps results in memory only.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// DatabaseEnabled reports whether a database connection is needed.
func (c Config) DatabaseEnabled() bool {
	return c.Source.Type == SourceDatabase || c.Source.Mirror
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "studioledger"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		StudioName:   getenv("STUDIO_NAME", "Studio"),
		Logger:       LoggerConfig{Level: strings.ToLower(getenv("LOG_LEVEL", "info"))},
		OTELEnabled:  getenvBool("OTEL_ENABLED", false),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4318"),
		Source: SourceConfig{
			Type:   normalizeSource(getenv("SOURCE_TYPE", SourceSheets)),
			Mirror: getenvBool("SOURCE_MIRROR", false),
			Sheets: SheetsConfig{
				SpreadsheetID:      strings.TrimSpace(getenv("SHEETS_SPREADSHEET_ID", "")),
				CredentialsFile:    strings.TrimSpace(getenv("SHEETS_CREDENTIALS_FILE", "")),
				LeadsRange:         getenv("SHEETS_RANGE_LEADS", "Leads"),
				EventsRange:        getenv("SHEETS_RANGE_EVENTS", "Events"),
				PaymentsRange:      getenv("SHEETS_RANGE_PAYMENTS", "Payments"),
				PhotographersRange: getenv("SHEETS_RANGE_PHOTOGRAPHERS", "Photographers"),
			},
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		PushgatewayURL:    strings.TrimSpace(getenv("PUSHGATEWAY_URL", "")),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "studioledger"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 3600)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 600)),
	}

	return cfg
}

func normalizeSource(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SourceDatabase:
		return SourceDatabase
	default:
		return SourceSheets
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
