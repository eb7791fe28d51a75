package planner

import (
	"testing"

	"github.com/elys-network/curator/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTemplates() []types.AllocationTemplate {
	base := types.AllocationTemplate{
		MaxRiskScore: 50, TargetRiskScore: 20, StablecoinFloor: 10, StablecoinCeil: 60,
		TargetPoolCount: 3, AnchorPercent: 40, PrimaryPercent: 30,
	}
	list := make([]types.AllocationTemplate, 0, 3)
	for _, tier := range []types.RiskTier{types.RiskTierConservative, types.RiskTierModerate, types.RiskTierAggressive} {
		tpl := base
		tpl.Tier = tier
		list = append(list, tpl)
	}
	return list
}

func TestNewTemplates(t *testing.T) {
	templates, err := NewTemplates(validTemplates())
	require.NoError(t, err)
	tpl, ok := templates.Get(types.RiskTierModerate)
	require.True(t, ok)
	assert.Equal(t, 40.0, tpl.AnchorPercent)
}

func TestNewTemplates_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]types.AllocationTemplate) []types.AllocationTemplate
	}{
		{"missing tier", func(l []types.AllocationTemplate) []types.AllocationTemplate { return l[:2] }},
		{"duplicate tier", func(l []types.AllocationTemplate) []types.AllocationTemplate { return append(l, l[0]) }},
		{"unknown tier", func(l []types.AllocationTemplate) []types.AllocationTemplate { l[0].Tier = "balanced"; return l }},
		{"percent above 100", func(l []types.AllocationTemplate) []types.AllocationTemplate { l[1].AnchorPercent = 120; return l }},
		{"negative ceiling", func(l []types.AllocationTemplate) []types.AllocationTemplate { l[1].LPCeiling = -1; return l }},
		{"floor above ceiling", func(l []types.AllocationTemplate) []types.AllocationTemplate { l[2].StablecoinFloor = 70; return l }},
		{"target above max", func(l []types.AllocationTemplate) []types.AllocationTemplate { l[2].TargetRiskScore = 60; return l }},
		{"no pools", func(l []types.AllocationTemplate) []types.AllocationTemplate { l[0].TargetPoolCount = 0; return l }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTemplates(tt.mutate(validTemplates()))
			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}
