package analyzer

import (
	"testing"

	"github.com/elys-network/curator/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreCatalog_PreservesOrderAndSkipsMissing(t *testing.T) {
	entries := []types.CatalogEntry{
		{ID: "b", Name: "B", Protocol: "kamino-lend", Category: types.CategoryStablecoinLending},
		{ID: "missing", Name: "Gone", Category: types.CategoryVault},
		{ID: "a", Name: "A", Protocol: "marginfi", Category: types.CategoryVolatileLending},
		{ID: "b", Name: "B again", Category: types.CategoryStablecoinLending},
	}
	metrics := map[string]types.PoolMetrics{
		"a": {ID: "a", TvlUSD: 50_000_000, APY: 5.2, Protocol: "feed-slug"},
		"b": {ID: "b", TvlUSD: 500_000_000, APY: 6.5, IsStablecoin: true, Protocol: "feed-slug"},
	}

	catalog, missing := ScoreCatalog(entries, metrics, testRegistry())

	require.Len(t, catalog, 2)
	assert.Equal(t, "b", catalog[0].ID)
	assert.Equal(t, "a", catalog[1].ID)
	assert.Equal(t, []string{"missing"}, missing)

	assert.Equal(t, 12, catalog[0].RiskScore)
	assert.Equal(t, "kamino-lend", catalog[0].Protocol)
	// 20 (tvl) + 10 (volatile asset) + 5 (marginfi)
	assert.Equal(t, 35, catalog[1].RiskScore)
	assert.Equal(t, types.RiskLevelMedium, catalog[1].RiskLevel)
	assert.Equal(t, catalog[1].RiskScore, catalog[1].Breakdown.Total())
}
