package datafetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/elys-network/curator/internal/logger"
	"github.com/elys-network/curator/internal/types"
)

var sourceLogger = logger.GetForComponent("market_source")

// ErrPoolNotFound is returned when the source has no history for a pool.
var ErrPoolNotFound = errors.New("pool not found")

// MarketSource supplies pool metrics and per-pool yield history.
type MarketSource interface {
	// GetPoolMetrics returns the current metrics keyed by pool ID and by PoolKey.
	GetPoolMetrics(ctx context.Context) (map[string]types.PoolMetrics, error)
	// GetPoolHistory returns the daily history of one pool, in any order.
	GetPoolHistory(ctx context.Context, poolID string) ([]types.HistoryPoint, error)
}

// PoolKey builds the "<project>/<chain>/<symbol>" lookup key used by the curated catalog.
func PoolKey(project, chain, symbol string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", strings.TrimSpace(project), strings.TrimSpace(chain), strings.TrimSpace(symbol)))
}

// FetchHistories fetches the history of every pool concurrently. A failed fetch is logged and
// yields an empty series; it never cancels or fails the other fetches.
func FetchHistories(ctx context.Context, source MarketSource, poolIDs []string) map[string][]types.HistoryPoint {
	histories := make(map[string][]types.HistoryPoint, len(poolIDs))
	unique := make([]string, 0, len(poolIDs))
	for _, id := range poolIDs {
		if _, dup := histories[id]; dup {
			continue
		}
		histories[id] = nil
		unique = append(unique, id)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range unique {
		wg.Add(1)
		go func(poolID string) {
			defer wg.Done()

			history, err := source.GetPoolHistory(ctx, poolID)
			if err != nil {
				sourceLogger.Warn().
					Err(err).
					Str("poolID", poolID).
					Msg("History unavailable, continuing with an empty series")
				history = nil
			}

			mu.Lock()
			histories[poolID] = history
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return histories
}
