package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultMarketAPIURL is the public DefiLlama yields API.
const DefaultMarketAPIURL = "https://yields.llama.fi"

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// MarketAPIURL is the base URL of the yields API serving pools and history charts.
	MarketAPIURL string
	// AllowedOrigin is the CORS origin accepted by the web API.
	AllowedOrigin string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	MarketAPIURL = strings.TrimRight(getEnvOrDefault("MARKET_API_URL", DefaultMarketAPIURL), "/")
	parsed, err := url.Parse(MarketAPIURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("environment variable MARKET_API_URL must be an absolute URL, got: " + MarketAPIURL)
	}

	AllowedOrigin = getEnvOrDefault("CORS_ALLOWED_ORIGIN", "*")

	log.Debug().
		Str("MarketAPIURL", MarketAPIURL).
		Str("AllowedOrigin", AllowedOrigin).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
