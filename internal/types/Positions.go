/*

This file contains the types for allocation recommendations, the positions a user is advised to hold.

*/

package types

import (
	"fmt"
	"strings"
	"time"
)

// RiskTier is the template band a user's risk preference maps onto.
type RiskTier string

const (
	RiskTierConservative RiskTier = "conservative"
	RiskTierModerate     RiskTier = "moderate"
	RiskTierAggressive   RiskTier = "aggressive"
)

// ParseRiskTier accepts the three template tiers as well as the five product tiers
// (preserver, steady, balanced, growth, maximizer) and maps them onto a template band.
func ParseRiskTier(s string) (RiskTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conservative", "preserver", "steady":
		return RiskTierConservative, nil
	case "moderate", "balanced":
		return RiskTierModerate, nil
	case "aggressive", "growth", "maximizer":
		return RiskTierAggressive, nil
	}
	return "", fmt.Errorf("%w: riskTolerance must be one of conservative, moderate, aggressive, got %q", ErrValidation, s)
}

// OverallRisk is the coarse band of a whole recommendation.
type OverallRisk string

const (
	OverallRiskLow    OverallRisk = "low"
	OverallRiskMedium OverallRisk = "medium"
	OverallRiskHigh   OverallRisk = "high"
)

// AllocationTemplate is the static configuration behind one risk tier.
// Percentages are expressed on a 0-100 scale.
type AllocationTemplate struct {
	Tier             RiskTier `json:"tier" yaml:"tier"`
	TargetRiskScore  int      `json:"target_risk_score" yaml:"target_risk_score"`
	MaxRiskScore     int      `json:"max_risk_score" yaml:"max_risk_score"` // Eligibility ceiling for individual pools
	StablecoinFloor  float64  `json:"stablecoin_floor" yaml:"stablecoin_floor"`
	StablecoinCeil   float64  `json:"stablecoin_ceiling" yaml:"stablecoin_ceiling"`
	LSTCeiling       float64  `json:"lst_ceiling" yaml:"lst_ceiling"`
	LPCeiling        float64  `json:"lp_ceiling" yaml:"lp_ceiling"`
	TargetPoolCount  int      `json:"target_pool_count" yaml:"target_pool_count"`
	AnchorPercent    float64  `json:"anchor_percent" yaml:"anchor_percent"`         // Stablecoin anchor share
	PrimaryPercent   float64  `json:"primary_percent" yaml:"primary_percent"`       // Primary volatile-asset share
	SecondaryStable  float64  `json:"secondary_stable" yaml:"secondary_stable"`     // 0 disables the step
	SecondaryLST     float64  `json:"secondary_lst" yaml:"secondary_lst"`           // 0 disables the step
	LiquidityPoolPct float64  `json:"liquidity_pool_pct" yaml:"liquidity_pool_pct"` // 0 disables the step
}

// RecommendedAllocation is one selected pool within a recommendation.
type RecommendedAllocation struct {
	PoolID            string    `json:"pool_id"`
	Name              string    `json:"name"`
	Protocol          string    `json:"protocol"`
	Asset             string    `json:"asset"`
	Category          Category  `json:"category"`
	AllocationPercent float64   `json:"allocation_percent"`
	AmountUSD         float64   `json:"amount_usd"`
	APY               float64   `json:"apy"`
	RiskScore         int       `json:"risk_score"`
	RiskLevel         RiskLevel `json:"risk_level"`
	Reasoning         string    `json:"reasoning"`
}

// AllocationSummary aggregates a recommendation into capital-weighted figures.
type AllocationSummary struct {
	TotalAmount          float64     `json:"total_amount"`
	WeightedAPY          float64     `json:"weighted_apy"`
	ExpectedAnnualYield  float64     `json:"expected_annual_yield"`
	WeightedRiskScore    float64     `json:"weighted_risk_score"`
	OverallRisk          OverallRisk `json:"overall_risk"`
	DiversificationScore int         `json:"diversification_score"`
}

// AllocationRecommendation is the full output of the allocation engine.
type AllocationRecommendation struct {
	RiskTier    RiskTier                `json:"risk_tier"`
	Allocations []RecommendedAllocation `json:"allocations"`
	Summary     AllocationSummary       `json:"summary"`
	Insights    []string                `json:"insights"`
	Warnings    []string                `json:"warnings"`
}

// AllocationRecord is a finalized recommendation handed to the persistence store.
type AllocationRecord struct {
	ID             string                   `json:"id"`
	UserID         string                   `json:"user_id,omitempty"`
	RiskTier       RiskTier                 `json:"risk_tier"`
	Amount         float64                  `json:"amount"`
	Recommendation AllocationRecommendation `json:"recommendation"`
	CreatedAt      time.Time                `json:"created_at"`
}

// PoolIDs returns the pool identifiers of the recommendation in allocation order.
func (r AllocationRecord) PoolIDs() []string {
	ids := make([]string, 0, len(r.Recommendation.Allocations))
	for _, a := range r.Recommendation.Allocations {
		ids = append(ids, a.PoolID)
	}
	return ids
}
