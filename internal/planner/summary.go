package planner

import (
	"github.com/elys-network/curator/internal/types"
	"github.com/elys-network/curator/internal/utils"
)

// Overall risk bands on the capital-weighted risk score.
const (
	lowOverallRiskMax    = 20.0
	mediumOverallRiskMax = 40.0
)

// summarize computes capital-weighted figures and the diversification score of an allocation.
func summarize(amount float64, allocations []types.RecommendedAllocation) types.AllocationSummary {
	var weightedAPY, weightedRisk float64
	protocols := make(map[string]bool)
	categories := make(map[types.Category]bool)

	for _, a := range allocations {
		weightedAPY += a.AllocationPercent * a.APY / 100
		weightedRisk += a.AllocationPercent * float64(a.RiskScore) / 100
		protocols[a.Protocol] = true
		categories[a.Category] = true
	}

	return types.AllocationSummary{
		TotalAmount:          amount,
		WeightedAPY:          utils.Round(weightedAPY, 2),
		ExpectedAnnualYield:  utils.Round(amount*weightedAPY/100, 2),
		WeightedRiskScore:    utils.Round(weightedRisk, 2),
		OverallRisk:          OverallRiskFor(weightedRisk),
		DiversificationScore: DiversificationScore(len(protocols), len(categories), len(allocations)),
	}
}

// OverallRiskFor bands a capital-weighted risk score.
func OverallRiskFor(weightedRisk float64) types.OverallRisk {
	switch {
	case weightedRisk <= lowOverallRiskMax:
		return types.OverallRiskLow
	case weightedRisk <= mediumOverallRiskMax:
		return types.OverallRiskMedium
	default:
		return types.OverallRiskHigh
	}
}

// DiversificationScore rewards distinct protocols, distinct categories and position count, capped at 100.
func DiversificationScore(protocols, categories, positions int) int {
	return min(100, 15*protocols+20*categories+10*positions)
}
