package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/elys-network/curator/internal/config"
	"github.com/elys-network/curator/internal/curator"
	"github.com/elys-network/curator/internal/datafetcher"
	"github.com/elys-network/curator/internal/logger"
	"github.com/elys-network/curator/internal/state"
	"github.com/elys-network/curator/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	SHUTDOWN_TIMEOUT = 15 * time.Second
)

// main is the entry point for the curator service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if config.LogFile != "" {
		fileWriter, err := logger.FileWriter(config.LogFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", config.LogFile).Msg("Failed to open log file")
		}
		logger.Initialize(config.LogLevel, fileWriter)
	} else {
		logger.Initialize(config.LogLevel)
	}
	log.Info().Msg("Yield Curator Starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load allocation templates, protocol registry and curated catalog
	tables, err := config.LoadTables(config.TablesFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", config.TablesFile).Msg("Failed to load curator tables")
	}
	log.Info().
		Int("templates", len(tables.Templates)).
		Int("protocols", len(tables.Protocols)).
		Int("catalog", len(tables.Catalog)).
		Msg("Curator tables loaded successfully.")

	// Initialize the allocation store
	store, err := openStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("driver", config.StoreDriver).Msg("Failed to initialize allocation store")
	}
	defer store.Close()

	// Market data source
	source, err := datafetcher.NewDefiLlamaClient(config.MarketAPIURL, config.HistoryCacheTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create market data client")
	}
	defer source.Close()

	// --- 2. Create Curator Instance with Dependency Injection ---
	curatorInstance, err := curator.NewCurator(curator.Config{
		Source:   source,
		Store:    store,
		Tables:   tables,
		Schedule: config.RefreshSchedule,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create curator instance")
	}

	if err := curatorInstance.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start catalog refresh scheduler")
	}
	defer curatorInstance.Stop()

	// --- 3. Start Web Server ---
	webServer := web.NewWebServer(config.WebPort, curatorInstance, config.AllowedOrigin)
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting curator API")
		if err := webServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- 4. Wait for shutdown ---
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("Web server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Web server shutdown failed")
	}
	log.Info().Msg("Curator stopped")
}

// openStore builds the allocation store selected by STORE_DRIVER.
func openStore(ctx context.Context) (state.AllocationStore, error) {
	switch config.StoreDriver {
	case config.StoreDriverPostgres:
		dbCfg := state.DBConfig{
			Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
			User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
			DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
		}
		store, err := state.NewPostgresStore(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreDriverSQLite:
		store, err := state.NewSQLiteStore(config.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		log.Warn().Msg("STORE_DRIVER is 'none'. Recommendations will not be persisted.")
		return state.NoopStore{}, nil
	}
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
