package planner

import (
	"fmt"

	"github.com/elys-network/curator/internal/types"
)

const (
	anchorInsightShare     = 50.0
	diversifiedProtocolMin = 3
	marketAverageAPY       = 10.0

	pastPerformanceDisclaimer = "Past performance does not guarantee future returns; APYs change with market conditions."
	financialAdviceDisclaimer = "This recommendation is informational only and is not financial advice."
)

// narrate assembles the rule-based insight and warning strings of a recommendation.
func narrate(amount float64, tier types.RiskTier, template types.AllocationTemplate, allocations []types.RecommendedAllocation, summary types.AllocationSummary) ([]string, []string) {
	insights := []string{}
	warnings := []string{}

	shares := make(map[types.Category]float64)
	protocols := make(map[string]bool)
	for _, a := range allocations {
		shares[a.Category] += a.AllocationPercent
		protocols[a.Protocol] = true
	}
	stableShare := shares[types.CategoryStablecoinLending]

	if stableShare >= anchorInsightShare {
		insights = append(insights, fmt.Sprintf("%.0f%% is anchored in stablecoin lending, limiting exposure to price swings.", stableShare))
	}
	if len(protocols) >= diversifiedProtocolMin {
		insights = append(insights, fmt.Sprintf("Capital is spread across %d protocols, reducing single-protocol risk.", len(protocols)))
	}
	if lst := shares[types.CategoryLiquidStaking]; lst > 0 {
		insights = append(insights, fmt.Sprintf("%.0f%% earns staking yield through liquid staking tokens.", lst))
	}
	if summary.WeightedAPY > marketAverageAPY {
		insights = append(insights, fmt.Sprintf("Expected APY of %.2f%% is above the market average.", summary.WeightedAPY))
	}

	if stableShare < template.StablecoinFloor {
		warnings = append(warnings, fmt.Sprintf("Stablecoin share of %.0f%% is below the %.0f%% target for the %s profile; not enough eligible stablecoin pools were available.",
			stableShare, template.StablecoinFloor, tier))
	}
	if tier == types.RiskTierAggressive {
		warnings = append(warnings, "Aggressive allocations carry higher risk, including smart contract and market risk; only invest what you can afford to lose.")
	}
	if shares[types.CategoryLiquidityPool] > 0 {
		warnings = append(warnings, "Liquidity pool positions are exposed to impermanent loss when asset prices diverge.")
	}
	if amount >= SplitDepositThreshold {
		warnings = append(warnings, "For large amounts, consider splitting the deposit over several transactions to limit slippage.")
	}
	warnings = append(warnings, pastPerformanceDisclaimer, financialAdviceDisclaimer)

	return insights, warnings
}

// reasoning explains why a position was selected.
func reasoning(p position) string {
	var role string
	switch p.step {
	case stepAnchor:
		role = "Stablecoin anchor for capital preservation"
	case stepPrimary:
		role = "Primary exposure to volatile-asset yield"
	case stepSecondaryStable:
		role = "Second stablecoin position for protocol diversification"
	case stepSecondaryLST:
		role = "Additional liquid staking exposure"
	case stepLiquidityPool:
		role = "Liquidity pool position for trading fee yield"
	}
	if p.pool.Rationale == "" {
		return fmt.Sprintf("%s (%s risk).", role, p.pool.RiskLevel)
	}
	return fmt.Sprintf("%s (%s risk). %s", role, p.pool.RiskLevel, p.pool.Rationale)
}
