package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/elys-network/curator/internal/config"
	"github.com/elys-network/curator/internal/logger"
	"github.com/elys-network/curator/internal/state"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// resettable is implemented by every persistent allocation store.
type resettable interface {
	Reset(ctx context.Context) error
	Close() error
}

func main() {
	// Initialize logger
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger.Initialize(logLevel)
	log.Info().Msg("Starting allocation store reset script...")

	// Load environment variables from .env file
	err := godotenv.Load()
	if err != nil {
		log.Warn().Msg("Warning: .env file not found or error loading .env file. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var store resettable
	switch config.StoreDriver {
	case config.StoreDriverPostgres:
		store = connectPostgres(ctx)
	case config.StoreDriverSQLite:
		log.Info().Str("path", config.SQLitePath).Msg("Opening SQLite database")
		sqliteStore, err := state.NewSQLiteStore(config.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open SQLite database")
		}
		store = sqliteStore
	default:
		log.Fatal().Str("driver", config.StoreDriver).Msg("STORE_DRIVER must be 'postgres' or 'sqlite' to reset a store.")
	}
	defer store.Close()

	log.Info().Msg("Connected. Dropping the allocations table and recreating the schema...")
	if err := store.Reset(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to reset allocation store")
	}

	log.Info().Msg("Allocation store reset complete!")
}

func connectPostgres(ctx context.Context) *state.PostgresStore {
	// Get database configuration from environment variables
	dbHost := os.Getenv("DB_HOST")
	dbPortStr := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSSLMode := os.Getenv("DB_SSLMODE")

	// Set defaults for missing values
	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbUser == "" {
		log.Fatal().Msg("DB_USER environment variable not set.")
	}
	if dbName == "" {
		log.Fatal().Msg("DB_NAME environment variable not set.")
	}
	if dbSSLMode == "" {
		dbSSLMode = "disable"
	}

	// Convert dbPort to integer
	dbPort := 5432
	if dbPortStr != "" {
		fmt.Sscanf(dbPortStr, "%d", &dbPort)
	}

	dbCfg := state.DBConfig{
		Host:     dbHost,
		Port:     dbPort,
		User:     dbUser,
		Password: dbPassword,
		DBName:   dbName,
		SSLMode:  dbSSLMode,
	}

	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("user", dbCfg.User).
		Str("dbname", dbCfg.DBName).
		Msg("Connecting to database")

	store, err := state.NewPostgresStore(ctx, dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database connection")
	}
	return store
}
