/*

This file contains the greedy, template-driven allocation engine that turns a capital amount and a risk tier
into a multi-pool allocation.

The step order is significant: stablecoin anchor, primary volatile exposure, secondary stablecoin,
secondary liquid staking, liquidity pool, then the residual goes to the first position.

*/

package planner

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/curator/internal/logger"
	"github.com/elys-network/curator/internal/types"
	"github.com/elys-network/curator/internal/utils"
	"github.com/rs/zerolog"
)

// Error definitions for the allocation engine
var (
	ErrAmountBelowMinimum = errors.New("amount is below the minimum deposit")
	ErrNoEligiblePools    = errors.New("no eligible pools")
	ErrTemplateNotFound   = errors.New("allocation template not found")
)

const (
	// MinimumAmount is the product floor for a recommendation, in currency units.
	MinimumAmount = 100.0
	// SplitDepositThreshold triggers the split-deposit warning.
	SplitDepositThreshold = 100_000.0
)

var hundred = sdkmath.LegacyNewDec(100)

// step identifies a stage of the greedy sequence.
type step int

const (
	stepAnchor step = iota
	stepPrimary
	stepSecondaryStable
	stepSecondaryLST
	stepLiquidityPool
)

// position is a pool selected by the builder along with its exact percentage.
type position struct {
	pool    types.CuratedPool
	percent sdkmath.LegacyDec
	step    step
}

// allocationBuilder tracks the remaining budget and selected pools while the steps run.
type allocationBuilder struct {
	template  types.AllocationTemplate
	eligible  []types.CuratedPool
	remaining sdkmath.LegacyDec
	positions []position
	used      map[string]bool
	log       zerolog.Logger
}

// Recommend converts a capital amount and risk tier into a normalized multi-pool allocation.
// Inputs:
//   - amount: Capital to allocate, in currency units. Must be at least MinimumAmount.
//   - tier: The template band to apply.
//   - catalog: Candidate pools with precomputed scores. Order is priority: the first match wins.
//   - templates: The static allocation templates.
//
// Output:
//   - The recommendation; its allocation percentages sum to exactly 100 and never repeat a pool.
//   - A validation error if the amount is too small or nothing in the catalog is eligible.
func Recommend(amount float64, tier types.RiskTier, catalog []types.CuratedPool, templates Templates) (types.AllocationRecommendation, error) {
	actionLogger := logger.GetForComponent("allocation_planner").With().Str("tier", string(tier)).Logger()

	if !(amount >= MinimumAmount) {
		return types.AllocationRecommendation{}, fmt.Errorf("%w: %w: amount must be at least %.0f, got %.2f",
			types.ErrValidation, ErrAmountBelowMinimum, MinimumAmount, amount)
	}

	template, ok := templates.Get(tier)
	if !ok {
		return types.AllocationRecommendation{}, fmt.Errorf("%w: %w: %q", types.ErrValidation, ErrTemplateNotFound, tier)
	}

	// ===== STEP 1: ELIGIBILITY =====
	eligible := filterEligible(catalog, template.MaxRiskScore)
	if len(eligible) == 0 {
		actionLogger.Warn().Int("catalogSize", len(catalog)).Int("maxRiskScore", template.MaxRiskScore).Msg("No eligible pools for tier")
		return types.AllocationRecommendation{}, fmt.Errorf("%w: %w for %s tier", types.ErrValidation, ErrNoEligiblePools, tier)
	}

	b := &allocationBuilder{
		template:  template,
		eligible:  eligible,
		remaining: hundred,
		used:      make(map[string]bool),
		log:       actionLogger,
	}

	for _, s := range stepsFor(tier) {
		b.run(s, tier)
	}

	if len(b.positions) == 0 {
		actionLogger.Warn().Int("eligible", len(eligible)).Msg("Greedy steps produced no positions")
		return types.AllocationRecommendation{}, fmt.Errorf("%w: %w for %s tier", types.ErrValidation, ErrNoEligiblePools, tier)
	}

	// ===== STEP 7: RESIDUAL TO FIRST POSITION =====
	if b.remaining.IsPositive() {
		actionLogger.Debug().Str("residual", b.remaining.String()).Str("poolID", b.positions[0].pool.ID).Msg("Residual added to first position")
		b.positions[0].percent = b.positions[0].percent.Add(b.remaining)
		b.remaining = sdkmath.LegacyZeroDec()
	}

	allocations, err := b.toAllocations(amount)
	if err != nil {
		return types.AllocationRecommendation{}, err
	}

	summary := summarize(amount, allocations)
	insights, warnings := narrate(amount, tier, template, allocations, summary)

	actionLogger.Info().
		Float64("amount", amount).
		Int("positions", len(allocations)).
		Float64("weightedAPY", summary.WeightedAPY).
		Str("overallRisk", string(summary.OverallRisk)).
		Msg("Allocation recommendation generated")

	return types.AllocationRecommendation{
		RiskTier:    tier,
		Allocations: allocations,
		Summary:     summary,
		Insights:    insights,
		Warnings:    warnings,
	}, nil
}

// stepsFor returns the greedy sequence that applies to a tier.
func stepsFor(tier types.RiskTier) []step {
	switch tier {
	case types.RiskTierConservative:
		return []step{stepAnchor, stepPrimary, stepSecondaryStable}
	case types.RiskTierModerate:
		return []step{stepAnchor, stepPrimary, stepSecondaryStable, stepSecondaryLST}
	case types.RiskTierAggressive:
		return []step{stepAnchor, stepPrimary, stepSecondaryLST, stepLiquidityPool}
	}
	return nil
}

// primaryPreference lists the categories tried for the primary volatile exposure, in order.
func primaryPreference(tier types.RiskTier) []types.Category {
	switch tier {
	case types.RiskTierConservative:
		return []types.Category{types.CategoryVolatileLending, types.CategoryLiquidStaking}
	case types.RiskTierModerate, types.RiskTierAggressive:
		return []types.Category{types.CategoryLiquidStaking, types.CategoryVolatileLending, types.CategoryVault}
	}
	return nil
}

func (b *allocationBuilder) run(s step, tier types.RiskTier) {
	if s != stepAnchor && len(b.positions) >= b.template.TargetPoolCount {
		b.log.Debug().Int("step", int(s)).Int("positions", len(b.positions)).Msg("Target pool count reached, skipping step")
		return
	}

	switch s {
	case stepAnchor:
		b.add(s, b.template.AnchorPercent, types.CategoryStablecoinLending)
	case stepPrimary:
		b.add(s, b.template.PrimaryPercent, primaryPreference(tier)...)
	case stepSecondaryStable:
		b.add(s, b.template.SecondaryStable, types.CategoryStablecoinLending)
	case stepSecondaryLST:
		b.add(s, b.template.SecondaryLST, types.CategoryLiquidStaking)
	case stepLiquidityPool:
		b.add(s, b.template.LiquidityPoolPct, types.CategoryLiquidityPool)
	}
}

// add picks the first unused eligible pool from the preferred categories and allocates
// min(target, remaining, category headroom) to it. Missing candidates skip the step silently.
func (b *allocationBuilder) add(s step, targetPercent float64, preferred ...types.Category) {
	if targetPercent <= 0 || !b.remaining.IsPositive() {
		return
	}

	pool, found := b.pick(preferred...)
	if !found {
		b.log.Debug().Int("step", int(s)).Interface("categories", preferred).Msg("No candidate for step, skipping")
		return
	}

	target, err := utils.Float64ToDec(targetPercent)
	if err != nil {
		b.log.Error().Err(err).Float64("target", targetPercent).Msg("Invalid target percentage, skipping step")
		return
	}

	share := sdkmath.LegacyMinDec(target, b.remaining)
	share = sdkmath.LegacyMinDec(share, b.headroom(pool.Category))
	if !share.IsPositive() {
		b.log.Debug().Str("poolID", pool.ID).Str("category", string(pool.Category)).Msg("Category ceiling reached, skipping step")
		return
	}

	b.positions = append(b.positions, position{pool: pool, percent: share, step: s})
	b.used[pool.ID] = true
	b.remaining = b.remaining.Sub(share)

	b.log.Debug().
		Int("step", int(s)).
		Str("poolID", pool.ID).
		Str("category", string(pool.Category)).
		Str("percent", share.String()).
		Str("remaining", b.remaining.String()).
		Msg("Position added")
}

// pick returns the first unused pool in catalog order, trying categories by preference.
func (b *allocationBuilder) pick(preferred ...types.Category) (types.CuratedPool, bool) {
	for _, category := range preferred {
		for _, pool := range b.eligible {
			if pool.Category == category && !b.used[pool.ID] {
				return pool, true
			}
		}
	}
	return types.CuratedPool{}, false
}

// headroom is how much more a category may receive under the template ceilings.
func (b *allocationBuilder) headroom(category types.Category) sdkmath.LegacyDec {
	var ceiling float64
	switch category {
	case types.CategoryStablecoinLending:
		ceiling = b.template.StablecoinCeil
	case types.CategoryLiquidStaking:
		ceiling = b.template.LSTCeiling
	case types.CategoryLiquidityPool:
		ceiling = b.template.LPCeiling
	case types.CategoryVolatileLending, types.CategoryVault:
		return hundred
	default:
		return sdkmath.LegacyZeroDec()
	}

	limit, err := utils.Float64ToDec(ceiling)
	if err != nil {
		return sdkmath.LegacyZeroDec()
	}
	left := limit.Sub(b.share(category))
	if left.IsNegative() {
		return sdkmath.LegacyZeroDec()
	}
	return left
}

func (b *allocationBuilder) share(category types.Category) sdkmath.LegacyDec {
	total := sdkmath.LegacyZeroDec()
	for _, p := range b.positions {
		if p.pool.Category == category {
			total = total.Add(p.percent)
		}
	}
	return total
}

func (b *allocationBuilder) toAllocations(amount float64) ([]types.RecommendedAllocation, error) {
	allocations := make([]types.RecommendedAllocation, 0, len(b.positions))
	for _, p := range b.positions {
		percent, err := utils.DecToFloat64(p.percent)
		if err != nil {
			return nil, fmt.Errorf("failed to convert allocation for pool %s: %w", p.pool.ID, err)
		}
		allocations = append(allocations, types.RecommendedAllocation{
			PoolID:            p.pool.ID,
			Name:              p.pool.Name,
			Protocol:          p.pool.Protocol,
			Asset:             p.pool.Asset,
			Category:          p.pool.Category,
			AllocationPercent: percent,
			AmountUSD:         utils.Round(amount*percent/100, 2),
			APY:               p.pool.APY,
			RiskScore:         p.pool.RiskScore,
			RiskLevel:         p.pool.RiskLevel,
			Reasoning:         reasoning(p),
		})
	}
	return allocations, nil
}

func filterEligible(catalog []types.CuratedPool, maxRiskScore int) []types.CuratedPool {
	eligible := make([]types.CuratedPool, 0, len(catalog))
	for _, pool := range catalog {
		if pool.RiskScore <= maxRiskScore {
			eligible = append(eligible, pool)
		}
	}
	return eligible
}
