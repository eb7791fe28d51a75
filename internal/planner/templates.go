package planner

import (
	"errors"
	"fmt"

	"github.com/elys-network/curator/internal/types"
)

var ErrInvalidTemplate = errors.New("invalid allocation template")

// Templates holds one allocation template per risk tier. Treat it as read-only once built.
type Templates map[types.RiskTier]types.AllocationTemplate

// NewTemplates validates a template list and indexes it by tier.
// Every tier must be present exactly once.
func NewTemplates(list []types.AllocationTemplate) (Templates, error) {
	templates := make(Templates, len(list))
	for _, tpl := range list {
		if _, dup := templates[tpl.Tier]; dup {
			return nil, fmt.Errorf("%w: duplicate template for tier %q", ErrInvalidTemplate, tpl.Tier)
		}
		if err := validateTemplate(tpl); err != nil {
			return nil, err
		}
		templates[tpl.Tier] = tpl
	}

	for _, tier := range []types.RiskTier{types.RiskTierConservative, types.RiskTierModerate, types.RiskTierAggressive} {
		if _, ok := templates[tier]; !ok {
			return nil, fmt.Errorf("%w: missing template for tier %q", ErrInvalidTemplate, tier)
		}
	}
	return templates, nil
}

// Get returns the template of a tier.
func (t Templates) Get(tier types.RiskTier) (types.AllocationTemplate, bool) {
	tpl, ok := t[tier]
	return tpl, ok
}

func validateTemplate(tpl types.AllocationTemplate) error {
	switch tpl.Tier {
	case types.RiskTierConservative, types.RiskTierModerate, types.RiskTierAggressive:
	default:
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidTemplate, tpl.Tier)
	}

	percents := []struct {
		value float64
		name  string
	}{
		{tpl.StablecoinFloor, "stablecoin_floor"},
		{tpl.StablecoinCeil, "stablecoin_ceiling"},
		{tpl.LSTCeiling, "lst_ceiling"},
		{tpl.LPCeiling, "lp_ceiling"},
		{tpl.AnchorPercent, "anchor_percent"},
		{tpl.PrimaryPercent, "primary_percent"},
		{tpl.SecondaryStable, "secondary_stable"},
		{tpl.SecondaryLST, "secondary_lst"},
		{tpl.LiquidityPoolPct, "liquidity_pool_pct"},
	}
	for _, p := range percents {
		if p.value < 0 || p.value > 100 {
			return fmt.Errorf("%w: %s for tier %q must be within [0, 100], got %f", ErrInvalidTemplate, p.name, tpl.Tier, p.value)
		}
	}

	if tpl.StablecoinFloor > tpl.StablecoinCeil {
		return fmt.Errorf("%w: stablecoin floor (%.2f) above ceiling (%.2f) for tier %q",
			ErrInvalidTemplate, tpl.StablecoinFloor, tpl.StablecoinCeil, tpl.Tier)
	}
	if tpl.MaxRiskScore < 0 || tpl.MaxRiskScore > types.MaxRiskScore {
		return fmt.Errorf("%w: max_risk_score for tier %q must be within [0, 100]", ErrInvalidTemplate, tpl.Tier)
	}
	if tpl.TargetRiskScore > tpl.MaxRiskScore {
		return fmt.Errorf("%w: target_risk_score above max_risk_score for tier %q", ErrInvalidTemplate, tpl.Tier)
	}
	if tpl.TargetPoolCount < 1 {
		return fmt.Errorf("%w: target_pool_count for tier %q must be at least 1", ErrInvalidTemplate, tpl.Tier)
	}
	return nil
}
