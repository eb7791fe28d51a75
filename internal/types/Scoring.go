/*

This file contains the types for risk scoring pools.

*/

package types

import (
	"fmt"
	"strings"
)

// Maximum points each risk factor can contribute.
const (
	MaxTvlRisk             = 30
	MaxAPYSustainability   = 25
	MaxAssetVolatilityRisk = 20
	MaxImpermanentLossRisk = 15
	MaxProtocolTrustRisk   = 10
	MaxRiskScore           = 100
)

// RiskBreakdown holds the five factor sub-scores. They always sum to the total risk score.
type RiskBreakdown struct {
	TvlRisk               int `json:"tvl_risk"`
	APYSustainabilityRisk int `json:"apy_sustainability_risk"`
	AssetVolatilityRisk   int `json:"asset_volatility_risk"`
	ImpermanentLossRisk   int `json:"impermanent_loss_risk"`
	ProtocolTrustRisk     int `json:"protocol_trust_risk"`
}

// Total sums the five sub-scores.
func (b RiskBreakdown) Total() int {
	return b.TvlRisk + b.APYSustainabilityRisk + b.AssetVolatilityRisk + b.ImpermanentLossRisk + b.ProtocolTrustRisk
}

// RiskLevel is the display band derived from a risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelVeryHigh RiskLevel = "very_high"
)

// TrustTier is the coarse trust classification of a protocol in the registry.
type TrustTier string

const (
	TrustEstablished TrustTier = "established"
	TrustMedium      TrustTier = "medium"
	TrustEmerging    TrustTier = "emerging"
)

// ParseTrustTier converts a configuration string to a TrustTier, rejecting unknown values.
func ParseTrustTier(s string) (TrustTier, error) {
	switch TrustTier(strings.ToLower(strings.TrimSpace(s))) {
	case TrustEstablished:
		return TrustEstablished, nil
	case TrustMedium:
		return TrustMedium, nil
	case TrustEmerging:
		return TrustEmerging, nil
	}
	return "", fmt.Errorf("%w: unknown trust tier %q", ErrValidation, s)
}

// ScoredPool is the response shape for ad-hoc scoring requests.
type ScoredPool struct {
	PoolID    string        `json:"pool_id"`
	RiskScore int           `json:"risk_score"`
	RiskLevel RiskLevel     `json:"risk_level"`
	Breakdown RiskBreakdown `json:"breakdown"`
}
