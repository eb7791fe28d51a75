package curator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/elys-network/curator/internal/analyzer"
	"github.com/elys-network/curator/internal/config"
	"github.com/elys-network/curator/internal/datafetcher"
	"github.com/elys-network/curator/internal/logger"
	"github.com/elys-network/curator/internal/planner"
	"github.com/elys-network/curator/internal/simulations"
	"github.com/elys-network/curator/internal/state"
	"github.com/elys-network/curator/internal/types"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrCatalogUnavailable means no scored catalog has been published yet.
var ErrCatalogUnavailable = errors.New("pool catalog is not available yet")

// Curator wires the market source, the scorer, the allocation engine, the simulator and the store.
type Curator struct {
	// Core dependencies
	logger    zerolog.Logger
	source    datafetcher.MarketSource
	store     state.AllocationStore
	registry  analyzer.ProtocolRegistry
	templates planner.Templates
	entries   []types.CatalogEntry

	// Configuration
	schedule string
	now      func() time.Time

	// Runtime state
	cron         *cron.Cron
	mu           sync.RWMutex
	catalog      []types.CuratedPool
	lastRefresh  time.Time
	refreshCount int
}

// Config holds the configuration for creating a new Curator instance
type Config struct {
	Source   datafetcher.MarketSource
	Store    state.AllocationStore // Defaults to state.NoopStore
	Tables   config.Tables
	Schedule string           // Cron spec for catalog refreshes, e.g. "@every 10m"
	Now      func() time.Time // Defaults to time.Now
}

// RecommendRequest is the input of an allocation request.
type RecommendRequest struct {
	Amount        float64
	RiskTolerance string // Template tier or product tier name
	UserID        string
}

// BacktestRequest is the input of a backtest request.
type BacktestRequest struct {
	PoolIDs       []string
	InitialAmount float64
	Days          int
	Compounding   string
}

// NewCurator creates a new Curator instance with dependency injection
func NewCurator(cfg Config) (*Curator, error) {
	if err := validateCuratorConfig(cfg); err != nil {
		return nil, fmt.Errorf("curator configuration validation failed: %w", err)
	}

	templates, err := planner.NewTemplates(cfg.Tables.Templates)
	if err != nil {
		return nil, fmt.Errorf("curator configuration validation failed: %w", err)
	}

	store := cfg.Store
	if store == nil {
		store = state.NoopStore{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	c := &Curator{
		logger:    logger.GetForComponent("curator_core"),
		source:    cfg.Source,
		store:     store,
		registry:  analyzer.NewProtocolRegistry(cfg.Tables.Protocols),
		templates: templates,
		entries:   cfg.Tables.Catalog,
		schedule:  cfg.Schedule,
		now:       now,
	}

	c.logger.Info().
		Int("catalogEntries", len(c.entries)).
		Int("protocols", c.registry.Len()).
		Str("schedule", c.schedule).
		Msg("Curator instance created successfully with dependency injection")

	return c, nil
}

// validateCuratorConfig validates the Curator configuration
func validateCuratorConfig(cfg Config) error {
	if cfg.Source == nil {
		return fmt.Errorf("market source cannot be nil")
	}
	if len(cfg.Tables.Catalog) == 0 {
		return fmt.Errorf("catalog cannot be empty")
	}
	if cfg.Schedule == "" {
		return fmt.Errorf("refresh schedule cannot be empty")
	}
	return nil
}

// Start refreshes the catalog once, then keeps refreshing it on the configured schedule.
// A failed first refresh is logged; the schedule still starts so the service can recover.
func (c *Curator) Start(ctx context.Context) error {
	c.cron = cron.New()
	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RefreshCatalog(ctx); err != nil {
			c.logger.Error().Err(err).Msg("Scheduled catalog refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}

	if err := c.RefreshCatalog(ctx); err != nil {
		c.logger.Error().Err(err).Msg("Initial catalog refresh failed")
	}

	c.cron.Start()
	c.logger.Info().Str("schedule", c.schedule).Msg("Catalog refresh scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (c *Curator) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
	c.logger.Info().Msg("Catalog refresh scheduler stopped")
}

// RefreshCatalog fetches fresh metrics, scores the curated pools and publishes the new catalog.
// On failure the previous catalog stays published.
func (c *Curator) RefreshCatalog(ctx context.Context) error {
	refreshStart := c.now()

	// Unique refresh ID for tracing logs across the refresh
	refreshID := uuid.New().String()
	refreshLogger := c.logger.With().Str("refresh_id", refreshID).Logger()
	refreshLogger.Info().Msg("--- Starting catalog refresh ---")

	metrics, err := c.source.GetPoolMetrics(ctx)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", refreshID, err)
	}

	catalog, missing := analyzer.ScoreCatalog(c.entries, metrics, c.registry)
	if len(catalog) == 0 {
		return fmt.Errorf("refresh %s: %w: none of the %d curated pools has market data", refreshID, types.ErrDataUnavailable, len(c.entries))
	}

	c.mu.Lock()
	c.catalog = catalog
	c.lastRefresh = refreshStart
	c.refreshCount++
	count := c.refreshCount
	c.mu.Unlock()

	refreshLogger.Info().
		Int("refresh", count).
		Int("scored", len(catalog)).
		Strs("missing", missing).
		Dur("duration", c.now().Sub(refreshStart)).
		Msg("--- Catalog refresh completed ---")
	return nil
}

// Catalog returns a copy of the current scored catalog in priority order.
func (c *Curator) Catalog() []types.CuratedPool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.CuratedPool, len(c.catalog))
	copy(out, c.catalog)
	return out
}

// LastRefresh returns when the published catalog was built; zero if never.
func (c *Curator) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

// Score scores ad-hoc metrics against the configured protocol registry.
func (c *Curator) Score(pool types.PoolMetrics) types.ScoredPool {
	score, breakdown := analyzer.CalculateRiskScore(pool, c.registry)
	return types.ScoredPool{
		PoolID:    pool.ID,
		RiskScore: score,
		RiskLevel: analyzer.RiskLevelFor(score),
		Breakdown: breakdown,
	}
}

// Recommend builds an allocation from the current catalog and hands it to the store.
// A store failure is logged and the recommendation is returned without an ID.
func (c *Curator) Recommend(ctx context.Context, req RecommendRequest) (types.AllocationRecord, error) {
	tier, err := types.ParseRiskTier(req.RiskTolerance)
	if err != nil {
		return types.AllocationRecord{}, err
	}

	catalog := c.Catalog()
	if len(catalog) == 0 {
		return types.AllocationRecord{}, ErrCatalogUnavailable
	}

	recommendation, err := planner.Recommend(req.Amount, tier, catalog, c.templates)
	if err != nil {
		return types.AllocationRecord{}, err
	}

	record := types.AllocationRecord{
		ID:             uuid.New().String(),
		UserID:         strings.TrimSpace(req.UserID),
		RiskTier:       tier,
		Amount:         req.Amount,
		Recommendation: recommendation,
		CreatedAt:      c.now().UTC(),
	}

	if err := c.store.SaveAllocation(ctx, record); err != nil {
		c.logger.Error().Err(err).Str("allocation_id", record.ID).Msg("Failed to persist allocation")
		record.ID = ""
	}
	return record, nil
}

// GetAllocation returns a persisted allocation.
func (c *Curator) GetAllocation(ctx context.Context, id string) (types.AllocationRecord, error) {
	return c.store.GetAllocation(ctx, id)
}

// ListAllocations returns recent persisted allocations, optionally for one user.
func (c *Curator) ListAllocations(ctx context.Context, userID string, limit int) ([]types.AllocationRecord, error) {
	return c.store.ListAllocations(ctx, strings.TrimSpace(userID), limit)
}

// Backtest fetches history for the requested pools concurrently and runs the simulator.
// Catalog IDs are resolved to their market feed IDs; other IDs are passed to the feed as is.
func (c *Curator) Backtest(ctx context.Context, req BacktestRequest) (types.BacktestResponse, error) {
	compounding, err := types.ParseCompounding(req.Compounding)
	if err != nil {
		return types.BacktestResponse{}, err
	}

	simReq := simulations.Request{
		Pools:         make([]simulations.PoolSeries, 0, len(req.PoolIDs)),
		InitialAmount: req.InitialAmount,
		Compounding:   compounding,
		Days:          req.Days,
		Now:           c.now().UTC(),
	}
	for _, id := range req.PoolIDs {
		simReq.Pools = append(simReq.Pools, simulations.PoolSeries{ID: strings.TrimSpace(id)})
	}

	// Reject bad batches before any upstream call.
	if err := simReq.Validate(); err != nil {
		return types.BacktestResponse{}, err
	}

	sourceIDs := c.resolveSourceIDs(simReq.Pools)
	histories := datafetcher.FetchHistories(ctx, c.source, sourceIDs)
	for i := range simReq.Pools {
		simReq.Pools[i].History = histories[sourceIDs[i]]
	}

	return simulations.RunBacktest(simReq)
}

func (c *Curator) resolveSourceIDs(pools []simulations.PoolSeries) []string {
	bySourceID := make(map[string]string)
	for _, pool := range c.Catalog() {
		bySourceID[pool.ID] = pool.SourceID
	}

	ids := make([]string, len(pools))
	for i, pool := range pools {
		if sourceID, ok := bySourceID[pool.ID]; ok && sourceID != "" {
			ids[i] = sourceID
			continue
		}
		ids[i] = pool.ID
	}
	return ids
}

// Ping reports whether the store is reachable.
func (c *Curator) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
