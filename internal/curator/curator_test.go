package curator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/elys-network/curator/internal/config"
	"github.com/elys-network/curator/internal/state"
	"github.com/elys-network/curator/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu           sync.Mutex
	metrics      map[string]types.PoolMetrics
	metricsErr   error
	metricsCalls int
	histories    map[string][]types.HistoryPoint
	historyCalls []string
}

func (f *fakeSource) GetPoolMetrics(context.Context) (map[string]types.PoolMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metricsCalls++
	if f.metricsErr != nil {
		return nil, f.metricsErr
	}
	return f.metrics, nil
}

func (f *fakeSource) GetPoolHistory(_ context.Context, poolID string) ([]types.HistoryPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls = append(f.historyCalls, poolID)
	history, ok := f.histories[poolID]
	if !ok {
		return nil, errors.New("upstream unavailable")
	}
	return history, nil
}

type memoryStore struct {
	state.NoopStore
	saved   []types.AllocationRecord
	saveErr error
}

func (m *memoryStore) SaveAllocation(_ context.Context, record types.AllocationRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, record)
	return nil
}

// marketFor returns healthy metrics for every default catalog entry, keyed like the live feed.
func marketFor() map[string]types.PoolMetrics {
	metrics := map[string]types.PoolMetrics{}
	for _, entry := range config.DefaultTables.Catalog {
		m := types.PoolMetrics{
			ID:       "uuid-" + entry.ID,
			TvlUSD:   500_000_000,
			APY:      6,
			APYBase:  6,
			Protocol: entry.Protocol,
		}
		switch entry.Category {
		case types.CategoryStablecoinLending:
			m.IsStablecoin = true
		case types.CategoryLiquidityPool:
			m.ILRisk = types.ILRiskHigh
			m.APY = 25
			m.TvlUSD = 50_000_000
		}
		metrics[entry.ID] = m
	}
	return metrics
}

func flatHistory(days int, apy float64) []types.HistoryPoint {
	points := make([]types.HistoryPoint, 0, days)
	for i := 0; i < days; i++ {
		points = append(points, types.HistoryPoint{Timestamp: fixedNow.AddDate(0, 0, -i), APY: apy})
	}
	return points
}

func newTestCurator(t *testing.T, source *fakeSource, store state.AllocationStore) *Curator {
	t.Helper()
	c, err := NewCurator(Config{
		Source:   source,
		Store:    store,
		Tables:   config.DefaultTables.Clone(),
		Schedule: "@every 1h",
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return c
}

func TestNewCurator_Validation(t *testing.T) {
	_, err := NewCurator(Config{Tables: config.DefaultTables, Schedule: "@every 1h"})
	assert.Error(t, err)

	_, err = NewCurator(Config{Source: &fakeSource{}, Schedule: "@every 1h"})
	assert.Error(t, err)

	tables := config.DefaultTables.Clone()
	tables.Templates = tables.Templates[:1]
	_, err = NewCurator(Config{Source: &fakeSource{}, Tables: tables, Schedule: "@every 1h"})
	assert.Error(t, err)
}

func TestRefreshCatalog_PublishesScoredCatalog(t *testing.T) {
	source := &fakeSource{metrics: marketFor()}
	c := newTestCurator(t, source, nil)

	assert.Empty(t, c.Catalog())
	require.NoError(t, c.RefreshCatalog(context.Background()))

	catalog := c.Catalog()
	require.Len(t, catalog, len(config.DefaultTables.Catalog))
	assert.Equal(t, config.DefaultTables.Catalog[0].ID, catalog[0].ID)
	assert.Equal(t, "uuid-"+catalog[0].ID, catalog[0].SourceID)
	assert.Equal(t, fixedNow, c.LastRefresh())

	// Established stablecoin lending with deep TVL: 10 (TVL) + 2 (trust)
	assert.Equal(t, 12, catalog[0].RiskScore)

	// The returned slice is a copy.
	catalog[0].ID = "mutated"
	assert.NotEqual(t, "mutated", c.Catalog()[0].ID)
}

func TestRefreshCatalog_FailureKeepsPreviousCatalog(t *testing.T) {
	source := &fakeSource{metrics: marketFor()}
	c := newTestCurator(t, source, nil)
	require.NoError(t, c.RefreshCatalog(context.Background()))
	before := c.Catalog()

	source.metricsErr = errors.New("feed down")
	assert.Error(t, c.RefreshCatalog(context.Background()))
	assert.Equal(t, before, c.Catalog())

	source.metricsErr = nil
	source.metrics = map[string]types.PoolMetrics{}
	err := c.RefreshCatalog(context.Background())
	assert.ErrorIs(t, err, types.ErrDataUnavailable)
	assert.Equal(t, before, c.Catalog())
}

func TestRecommend_PersistsRecord(t *testing.T) {
	store := &memoryStore{}
	c := newTestCurator(t, &fakeSource{metrics: marketFor()}, store)

	_, err := c.Recommend(context.Background(), RecommendRequest{Amount: 1_000, RiskTolerance: "conservative"})
	assert.ErrorIs(t, err, ErrCatalogUnavailable)

	require.NoError(t, c.RefreshCatalog(context.Background()))

	record, err := c.Recommend(context.Background(), RecommendRequest{Amount: 5_000, RiskTolerance: "Balanced", UserID: " user-7 "})
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "user-7", record.UserID)
	assert.Equal(t, types.RiskTierModerate, record.RiskTier)
	assert.Equal(t, fixedNow, record.CreatedAt)
	assert.NotEmpty(t, record.Recommendation.Allocations)
	require.Len(t, store.saved, 1)
	assert.Equal(t, record, store.saved[0])
}

func TestRecommend_Errors(t *testing.T) {
	c := newTestCurator(t, &fakeSource{metrics: marketFor()}, nil)
	require.NoError(t, c.RefreshCatalog(context.Background()))

	_, err := c.Recommend(context.Background(), RecommendRequest{Amount: 1_000, RiskTolerance: "reckless"})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = c.Recommend(context.Background(), RecommendRequest{Amount: 50, RiskTolerance: "moderate"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestRecommend_StoreFailureStillReturnsRecommendation(t *testing.T) {
	store := &memoryStore{saveErr: errors.New("disk full")}
	c := newTestCurator(t, &fakeSource{metrics: marketFor()}, store)
	require.NoError(t, c.RefreshCatalog(context.Background()))

	record, err := c.Recommend(context.Background(), RecommendRequest{Amount: 1_000, RiskTolerance: "aggressive"})
	require.NoError(t, err)
	assert.Empty(t, record.ID)
	assert.NotEmpty(t, record.Recommendation.Allocations)
}

func TestBacktest_ResolvesCatalogIDsAndIsolatesFailures(t *testing.T) {
	catalogID := config.DefaultTables.Catalog[0].ID
	source := &fakeSource{
		metrics: marketFor(),
		histories: map[string][]types.HistoryPoint{
			"uuid-" + catalogID: flatHistory(30, 10),
			"raw-feed-id":       flatHistory(30, 4),
		},
	}
	c := newTestCurator(t, source, nil)
	require.NoError(t, c.RefreshCatalog(context.Background()))

	resp, err := c.Backtest(context.Background(), BacktestRequest{
		PoolIDs:       []string{catalogID, "raw-feed-id", "unknown"},
		InitialAmount: 10_000,
		Days:          30,
		Compounding:   "daily",
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 3)
	assert.Equal(t, catalogID, resp.Results[0].PoolID)
	assert.InDelta(t, 10082.5, resp.Results[0].FinalAmount, 0.5)
	assert.Equal(t, 10_000.0, resp.Results[2].FinalAmount)
	assert.Equal(t, catalogID, resp.Winner)
	assert.ElementsMatch(t, []string{"uuid-" + catalogID, "raw-feed-id", "unknown"}, source.historyCalls)
}

func TestBacktest_RepeatedPoolsShareOneFetch(t *testing.T) {
	catalogID := config.DefaultTables.Catalog[0].ID
	source := &fakeSource{
		metrics:   marketFor(),
		histories: map[string][]types.HistoryPoint{"uuid-" + catalogID: flatHistory(7, 5)},
	}
	c := newTestCurator(t, source, nil)
	require.NoError(t, c.RefreshCatalog(context.Background()))

	resp, err := c.Backtest(context.Background(), BacktestRequest{
		PoolIDs:       []string{catalogID, "uuid-" + catalogID, catalogID},
		InitialAmount: 1_000,
		Days:          7,
		Compounding:   "none",
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 3)
	for _, result := range resp.Results {
		assert.Len(t, result.DataPoints, 7)
		assert.Equal(t, resp.Results[0].FinalAmount, result.FinalAmount)
	}
	assert.Equal(t, []string{"uuid-" + catalogID}, source.historyCalls)
}

func TestBacktest_ValidatesBeforeFetching(t *testing.T) {
	source := &fakeSource{metrics: marketFor()}
	c := newTestCurator(t, source, nil)

	tests := []BacktestRequest{
		{PoolIDs: nil, InitialAmount: 1_000, Days: 30, Compounding: "daily"},
		{PoolIDs: []string{"a", "b", "c", "d", "e", "f"}, InitialAmount: 1_000, Days: 30, Compounding: "daily"},
		{PoolIDs: []string{"a"}, InitialAmount: 1_000, Days: 15, Compounding: "daily"},
		{PoolIDs: []string{"a"}, InitialAmount: 1_000, Days: 30, Compounding: "monthly"},
		{PoolIDs: []string{"a"}, InitialAmount: 10, Days: 30, Compounding: "none"},
	}
	for _, req := range tests {
		_, err := c.Backtest(context.Background(), req)
		assert.ErrorIs(t, err, types.ErrValidation)
	}
	assert.Empty(t, source.historyCalls)
}

func TestStartStop_RefreshesImmediately(t *testing.T) {
	source := &fakeSource{metrics: marketFor()}
	c := newTestCurator(t, source, nil)

	require.NoError(t, c.Start(context.Background()))
	c.Stop()

	assert.Equal(t, 1, source.metricsCalls)
	assert.NotEmpty(t, c.Catalog())
}

func TestStart_RejectsInvalidSchedule(t *testing.T) {
	c, err := NewCurator(Config{
		Source:   &fakeSource{metrics: marketFor()},
		Tables:   config.DefaultTables.Clone(),
		Schedule: "every now and then",
	})
	require.NoError(t, err)
	assert.Error(t, c.Start(context.Background()))
}

func TestScore(t *testing.T) {
	c := newTestCurator(t, &fakeSource{}, nil)
	scored := c.Score(types.PoolMetrics{ID: "p", TvlUSD: 5_000_000, APY: 60, APYReward: 50, ILRisk: types.ILRiskHigh, Protocol: "unknown"})

	assert.Equal(t, "p", scored.PoolID)
	// 30 + 25 + 10 + 15 + 5
	assert.Equal(t, 85, scored.RiskScore)
	assert.Equal(t, scored.RiskScore, scored.Breakdown.Total())
	assert.Equal(t, types.RiskLevelVeryHigh, scored.RiskLevel)
}
