package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Supported allocation store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverNone     = "none"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// WebPort is the port the HTTP API listens on.
	WebPort string
	// LogLevel is the zerolog level name (debug, info, warn, error).
	LogLevel string
	// LogFile optionally mirrors log output to a file.
	LogFile string

	// RefreshSchedule is the cron spec for catalog refreshes (e.g. "@every 10m").
	RefreshSchedule string
	// HistoryCacheTTL is how long fetched history series are cached.
	HistoryCacheTTL time.Duration

	// TablesFile is an optional YAML file overriding DefaultTables.
	TablesFile string

	// StoreDriver selects where allocation records are persisted.
	StoreDriver string
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Every variable has a default; malformed values are rejected.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	WebPort = getEnvOrDefault("WEB_PORT", "8080")
	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	LogFile = getEnvOrDefault("LOG_FILE", "")
	RefreshSchedule = getEnvOrDefault("REFRESH_SCHEDULE", "@every 10m")
	TablesFile = getEnvOrDefault("TABLES_FILE", "")
	SQLitePath = getEnvOrDefault("SQLITE_PATH", "curator.db")

	if _, err := strconv.ParseUint(WebPort, 10, 16); err != nil {
		return errors.New("environment variable WEB_PORT must be a valid port, got: " + WebPort)
	}

	ttlMinutes, err := getEnvAsFloat64OrDefault("HISTORY_CACHE_TTL_MINUTES", 30)
	if err != nil {
		return err
	}
	if ttlMinutes < 0 {
		return errors.New("environment variable HISTORY_CACHE_TTL_MINUTES must not be negative")
	}
	HistoryCacheTTL = time.Duration(ttlMinutes * float64(time.Minute))

	StoreDriver = strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreDriverNone))
	switch StoreDriver {
	case StoreDriverPostgres, StoreDriverSQLite, StoreDriverNone:
	default:
		return errors.New("environment variable STORE_DRIVER must be one of postgres, sqlite, none, got: " + StoreDriver)
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	// Expand the tilde (~) in file paths to the user's home directory.
	for _, path := range []*string{&TablesFile, &SQLitePath, &LogFile} {
		if strings.HasPrefix(*path, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			*path = filepath.Join(home, (*path)[2:])
		}
	}

	log.Debug().
		Str("WebPort", WebPort).
		Str("MarketAPIURL", MarketAPIURL).
		Str("RefreshSchedule", RefreshSchedule).
		Str("StoreDriver", StoreDriver).
		Dur("HistoryCacheTTL", HistoryCacheTTL).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, falling back when unset or empty.
func getEnvOrDefault(key, fallback string) string {
	value, err := getEnv(key)
	if err != nil || value == "" {
		return fallback
	}
	return value
}

// getEnvAsFloat64OrDefault retrieves an environment variable as a float64. Returns error if set but invalid.
func getEnvAsFloat64OrDefault(key string, fallback float64) (float64, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid float64, got: " + valueStr)
	}
	return value, nil
}
