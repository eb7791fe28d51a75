/*
This file fetches pool metrics and daily yield history from the DefiLlama yields API.

Endpoints:
  - GET {base}/pools            current metrics for every tracked pool
  - GET {base}/chart/{poolID}   daily history of one pool

Requests are retried with a linear backoff. History series are cached in memory for the configured TTL
because they only change once a day.
*/

package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/elys-network/curator/internal/types"
)

const (
	MAX_RETRIES     = 3
	TIMEOUT_SECONDS = 30
)

var ErrInvalidMarketData = errors.New("invalid market data received")

type defiLlamaPoolsResponse struct {
	Status string          `json:"status"`
	Data   []defiLlamaPool `json:"data"`
}

type defiLlamaPool struct {
	Pool       string   `json:"pool"`
	Chain      string   `json:"chain"`
	Project    string   `json:"project"`
	Symbol     string   `json:"symbol"`
	TVLUsd     float64  `json:"tvlUsd"`
	APY        *float64 `json:"apy"`
	APYBase    *float64 `json:"apyBase"`
	APYReward  *float64 `json:"apyReward"`
	StableCoin bool     `json:"stablecoin"`
	ILRisk     string   `json:"ilRisk"`
}

type defiLlamaChartResponse struct {
	Status string           `json:"status"`
	Data   []defiLlamaPoint `json:"data"`
}

type defiLlamaPoint struct {
	Timestamp time.Time `json:"timestamp"`
	TVLUsd    float64   `json:"tvlUsd"`
	APY       *float64  `json:"apy"`
	APYBase   *float64  `json:"apyBase"`
	APYReward *float64  `json:"apyReward"`
}

// DefiLlamaClient implements MarketSource against the DefiLlama yields API.
type DefiLlamaClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *ristretto.Cache
	cacheTTL   time.Duration
	retryDelay time.Duration
}

// NewDefiLlamaClient creates a client for the given base URL. A zero cacheTTL disables history caching.
func NewDefiLlamaClient(baseURL string, cacheTTL time.Duration) (*DefiLlamaClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid market API URL %q: %w", baseURL, err)
	}

	client := &DefiLlamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: TIMEOUT_SECONDS * time.Second},
		cacheTTL:   cacheTTL,
		retryDelay: time.Second,
	}

	if cacheTTL > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 10_000,
			MaxCost:     1_000_000, // Cost is the number of history points
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create history cache: %w", err)
		}
		client.cache = cache
	}

	return client, nil
}

// Close releases the history cache.
func (c *DefiLlamaClient) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// GetPoolMetrics fetches every pool and indexes it by pool ID and by PoolKey.
// When several pools share a PoolKey, the one with the deepest TVL wins.
func (c *DefiLlamaClient) GetPoolMetrics(ctx context.Context) (map[string]types.PoolMetrics, error) {
	var resp defiLlamaPoolsResponse
	if err := c.getJSON(ctx, c.baseURL+"/pools", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch pools: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: pools response is empty (status %q)", ErrInvalidMarketData, resp.Status)
	}

	metrics := make(map[string]types.PoolMetrics, len(resp.Data)*2)
	skipped := 0
	for _, p := range resp.Data {
		if p.Pool == "" {
			skipped++
			continue
		}
		m := types.PoolMetrics{
			ID:           p.Pool,
			TvlUSD:       p.TVLUsd,
			APY:          valueOrZero(p.APY),
			APYBase:      valueOrZero(p.APYBase),
			APYReward:    valueOrZero(p.APYReward),
			IsStablecoin: p.StableCoin,
			ILRisk:       types.ParseILRisk(p.ILRisk),
			Protocol:     p.Project,
			Symbol:       p.Symbol,
			Chain:        p.Chain,
		}
		metrics[p.Pool] = m

		key := PoolKey(p.Project, p.Chain, p.Symbol)
		if existing, ok := metrics[key]; !ok || m.TvlUSD > existing.TvlUSD {
			metrics[key] = m
		}
	}

	sourceLogger.Info().
		Int("pools", len(resp.Data)).
		Int("skipped", skipped).
		Msg("Pool metrics fetched")

	return metrics, nil
}

// GetPoolHistory fetches the daily history of one pool, serving from cache when possible.
func (c *DefiLlamaClient) GetPoolHistory(ctx context.Context, poolID string) ([]types.HistoryPoint, error) {
	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return nil, fmt.Errorf("%w: empty pool id", ErrPoolNotFound)
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(poolID); ok {
			if history, ok := cached.([]types.HistoryPoint); ok {
				sourceLogger.Debug().Str("poolID", poolID).Int("points", len(history)).Msg("History served from cache")
				return history, nil
			}
		}
	}

	var resp defiLlamaChartResponse
	if err := c.getJSON(ctx, c.baseURL+"/chart/"+url.PathEscape(poolID), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", poolID, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no history for %s", ErrPoolNotFound, poolID)
	}

	history := make([]types.HistoryPoint, 0, len(resp.Data))
	for _, p := range resp.Data {
		if p.Timestamp.IsZero() || p.APY == nil || math.IsNaN(*p.APY) || math.IsInf(*p.APY, 0) {
			continue
		}
		history = append(history, types.HistoryPoint{
			Timestamp: p.Timestamp,
			APY:       *p.APY,
			APYBase:   valueOrZero(p.APYBase),
			APYReward: valueOrZero(p.APYReward),
			TvlUSD:    p.TVLUsd,
		})
	}

	if c.cache != nil {
		c.cache.SetWithTTL(poolID, history, int64(len(history))+1, c.cacheTTL)
	}

	sourceLogger.Debug().
		Str("poolID", poolID).
		Int("points", len(history)).
		Int("raw", len(resp.Data)).
		Msg("History fetched")

	return history, nil
}

// getJSON performs a GET with retries and decodes the JSON body into out.
func (c *DefiLlamaClient) getJSON(ctx context.Context, endpoint string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		sourceLogger.Debug().
			Str("url", endpoint).
			Int("attempt", attempt).
			Int("maxRetries", MAX_RETRIES).
			Msg("Making API request")

		lastErr = c.fetchOnce(ctx, endpoint, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return errors.Join(lastErr, ctx.Err())
		}

		sourceLogger.Warn().
			Err(lastErr).
			Str("url", endpoint).
			Int("attempt", attempt).
			Msg("API request failed, will retry if attempts remain")

		if attempt < MAX_RETRIES {
			select {
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}
	}

	sourceLogger.Error().
		Err(lastErr).
		Str("url", endpoint).
		Int("maxRetries", MAX_RETRIES).
		Msg("All retry attempts failed")
	return fmt.Errorf("request failed after %d attempts: %w", MAX_RETRIES, lastErr)
}

func (c *DefiLlamaClient) fetchOnce(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: empty response body", ErrInvalidMarketData)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMarketData, err)
	}
	return nil
}

func valueOrZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}
