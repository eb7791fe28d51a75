/*

This is a custom type for pools which contains all the state needed for scoring and curating pools

*/

package types

import (
	"fmt"
	"strings"
)

// ILRisk is the externally sourced impermanent-loss indicator for a pool.
type ILRisk string

const (
	ILRiskNone ILRisk = "none"
	ILRiskLow  ILRisk = "low"
	ILRiskHigh ILRisk = "high"
)

// ParseILRisk accepts both the canonical names and the "no"/"yes" flags used by market feeds.
// Anything unrecognised is treated as none.
func ParseILRisk(s string) ILRisk {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "high", "true":
		return ILRiskHigh
	case "low":
		return ILRiskLow
	default:
		return ILRiskNone
	}
}

// PoolMetrics holds the raw market metrics of a yield pool as delivered by the market source.
type PoolMetrics struct {
	ID           string  `json:"id"`            // Stable pool identifier from the market source
	TvlUSD       float64 `json:"tvl_usd"`       // Total Value Locked in USD
	APY          float64 `json:"apy"`           // Total APY, in percent
	APYBase      float64 `json:"apy_base"`      // Organic yield component
	APYReward    float64 `json:"apy_reward"`    // Emission-driven yield component
	IsStablecoin bool    `json:"is_stablecoin"` // True when every asset of the pool is a stablecoin
	ILRisk       ILRisk  `json:"il_risk"`
	Protocol     string  `json:"protocol"` // e.g., "kamino-lend"
	Symbol       string  `json:"symbol,omitempty"`
	Chain        string  `json:"chain,omitempty"`
}

// Category is the closed set of pool categories the allocation templates understand.
type Category string

const (
	CategoryStablecoinLending Category = "stablecoin_lending"
	CategoryVolatileLending   Category = "volatile_lending"
	CategoryLiquidStaking     Category = "liquid_staking"
	CategoryLiquidityPool     Category = "liquidity_pool"
	CategoryVault             Category = "vault"
)

// AllCategories lists every category in a stable order.
var AllCategories = []Category{
	CategoryStablecoinLending,
	CategoryVolatileLending,
	CategoryLiquidStaking,
	CategoryLiquidityPool,
	CategoryVault,
}

// ParseCategory converts a configuration string to a Category, rejecting unknown values.
func ParseCategory(s string) (Category, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch normalized {
	case "stablecoin_lending", "stable_lending":
		return CategoryStablecoinLending, nil
	case "volatile_lending", "lending":
		return CategoryVolatileLending, nil
	case "liquid_staking", "liquid_staking_token", "lst":
		return CategoryLiquidStaking, nil
	case "liquidity_pool", "lp":
		return CategoryLiquidityPool, nil
	case "vault":
		return CategoryVault, nil
	}
	return "", fmt.Errorf("%w: unknown pool category %q", ErrValidation, s)
}

// Label is the human readable name of the category.
func (c Category) Label() string {
	switch c {
	case CategoryStablecoinLending:
		return "stablecoin lending"
	case CategoryVolatileLending:
		return "lending"
	case CategoryLiquidStaking:
		return "liquid staking"
	case CategoryLiquidityPool:
		return "liquidity pool"
	case CategoryVault:
		return "vault"
	}
	return string(c)
}

// CatalogEntry is a curated pool as configured, before market metrics are attached.
type CatalogEntry struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Protocol  string   `json:"protocol" yaml:"protocol"`
	Asset     string   `json:"asset" yaml:"asset"`
	Category  Category `json:"category" yaml:"category"`
	Rationale string   `json:"rationale" yaml:"rationale"`
}

// CuratedPool is a catalog entry enriched with its current APY and risk score.
type CuratedPool struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Protocol  string    `json:"protocol"`
	Asset     string    `json:"asset"`
	APY       float64   `json:"apy"`
	RiskScore int       `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
	Category  Category  `json:"category"`
	Rationale string    `json:"rationale"`

	Breakdown RiskBreakdown `json:"breakdown"`
	TvlUSD    float64       `json:"tvl_usd"`
	SourceID  string        `json:"source_id"` // Market feed identifier, used for history lookups
}
