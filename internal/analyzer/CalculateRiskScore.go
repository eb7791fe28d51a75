/*

This file contains the main function for calculating the 0-100 risk score for a pool.

*/

package analyzer

import (
	"math"

	"github.com/elys-network/curator/internal/logger"
	"github.com/elys-network/curator/internal/types"
)

var scoreLogger = logger.GetForComponent("risk_scorer")

// Bucket thresholds for the TVL and APY factors.
const (
	tvlSmall  = 10_000_000
	tvlMedium = 100_000_000
	tvlLarge  = 1_000_000_000

	apyExtreme  = 50.0
	apyHigh     = 20.0
	apyElevated = 10.0

	rewardDominanceRatio   = 0.7
	rewardDominancePenalty = 5
	nonStablecoinRisk      = 10
)

// CalculateRiskScore scores a pool's risk on a 0-100 scale and returns the factor breakdown.
// It never fails: non-finite or negative metrics are clamped to zero before bucketing.
// Inputs:
//   - pool: The raw market metrics of the pool.
//   - registry: The protocol trust registry used for the protocol-trust factor.
//
// Output:
//   - The total risk score, equal to the sum of the breakdown.
//   - The per-factor breakdown.
func CalculateRiskScore(pool types.PoolMetrics, registry ProtocolRegistry) (int, types.RiskBreakdown) {
	breakdown := types.RiskBreakdown{
		TvlRisk:               CalculateTvlRisk(pool.TvlUSD),
		APYSustainabilityRisk: CalculateAPYRisk(pool.APY, pool.APYReward),
		AssetVolatilityRisk:   CalculateAssetVolatilityRisk(pool.IsStablecoin),
		ImpermanentLossRisk:   CalculateImpermanentLossRisk(pool.ILRisk),
		ProtocolTrustRisk:     registry.RiskPoints(pool.Protocol),
	}

	total := breakdown.Total()
	if total > types.MaxRiskScore {
		// Every factor is individually capped so this is unreachable with the default maxima,
		// but trim protocol trust first to keep the breakdown summing to the total.
		breakdown.ProtocolTrustRisk -= total - types.MaxRiskScore
		total = types.MaxRiskScore
	}

	scoreLogger.Debug().
		Str("poolID", pool.ID).
		Str("protocol", pool.Protocol).
		Int("tvlRisk", breakdown.TvlRisk).
		Int("apyRisk", breakdown.APYSustainabilityRisk).
		Int("volatilityRisk", breakdown.AssetVolatilityRisk).
		Int("ilRisk", breakdown.ImpermanentLossRisk).
		Int("protocolRisk", breakdown.ProtocolTrustRisk).
		Int("total", total).
		Msg("Pool risk score calculated")

	return total, breakdown
}

// CalculateTvlRisk buckets liquidity depth. Deeper liquidity never increases risk.
func CalculateTvlRisk(tvlUSD float64) int {
	tvl := sanitize(tvlUSD)
	switch {
	case tvl < tvlSmall:
		return 30
	case tvl < tvlMedium:
		return 20
	case tvl < tvlLarge:
		return 10
	default:
		return 0
	}
}

// CalculateAPYRisk buckets the total APY and adds a flat penalty for reward-dominated pools.
// The factor is clamped to its maximum.
func CalculateAPYRisk(totalAPY, rewardAPY float64) int {
	apy := sanitize(totalAPY)
	reward := sanitize(rewardAPY)

	risk := 0
	switch {
	case apy > apyExtreme:
		risk = 25
	case apy > apyHigh:
		risk = 15
	case apy > apyElevated:
		risk = 10
	}

	if RewardDependency(apy, reward) > rewardDominanceRatio {
		risk += rewardDominancePenalty
	}

	if risk > types.MaxAPYSustainability {
		risk = types.MaxAPYSustainability
	}
	return risk
}

// RewardDependency is the share of the yield paid out as emissions.
// A non-positive total APY yields a ratio of zero.
func RewardDependency(totalAPY, rewardAPY float64) float64 {
	if totalAPY <= 0 || math.IsNaN(totalAPY) {
		return 0
	}
	return sanitize(rewardAPY) / math.Max(totalAPY, 1)
}

// CalculateAssetVolatilityRisk is the binary stablecoin check.
func CalculateAssetVolatilityRisk(isStablecoin bool) int {
	if isStablecoin {
		return 0
	}
	return nonStablecoinRisk
}

// CalculateImpermanentLossRisk maps the external IL indicator to points.
func CalculateImpermanentLossRisk(il types.ILRisk) int {
	switch il {
	case types.ILRiskHigh:
		return types.MaxImpermanentLossRisk
	case types.ILRiskLow, types.ILRiskNone:
		return 0
	}
	return 0
}

// RiskLevelFor bands a risk score for display: low <=25, medium <=40, high <=60, very_high above.
func RiskLevelFor(score int) types.RiskLevel {
	switch {
	case score <= 25:
		return types.RiskLevelLow
	case score <= 40:
		return types.RiskLevelMedium
	case score <= 60:
		return types.RiskLevelHigh
	default:
		return types.RiskLevelVeryHigh
	}
}

// sanitize clamps NaN, infinities and negatives to zero.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
