/*

This file joins the curated catalog with fresh market metrics and scores every pool.

*/

package analyzer

import (
	"github.com/elys-network/curator/internal/logger"
	"github.com/elys-network/curator/internal/types"
)

var catalogLogger = logger.GetForComponent("catalog_builder")

// ScoreCatalog builds the scored catalog in configured order. Entries without metrics are skipped
// and reported as missing; the allocation engine relies on the order being preserved.
func ScoreCatalog(
	entries []types.CatalogEntry,
	metrics map[string]types.PoolMetrics,
	registry ProtocolRegistry,
) (catalog []types.CuratedPool, missing []string) {
	catalog = make([]types.CuratedPool, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		if seen[entry.ID] {
			catalogLogger.Warn().Str("poolID", entry.ID).Msg("Duplicate catalog entry ignored")
			continue
		}
		seen[entry.ID] = true

		m, ok := metrics[entry.ID]
		if !ok {
			catalogLogger.Warn().
				Str("poolID", entry.ID).
				Str("name", entry.Name).
				Msg("No market metrics for curated pool, skipping")
			missing = append(missing, entry.ID)
			continue
		}

		// The configured protocol wins over the feed's project slug for trust lookups.
		if entry.Protocol != "" {
			m.Protocol = entry.Protocol
		}
		score, breakdown := CalculateRiskScore(m, registry)

		catalog = append(catalog, types.CuratedPool{
			ID:        entry.ID,
			Name:      entry.Name,
			Protocol:  m.Protocol,
			Asset:     entry.Asset,
			APY:       m.APY,
			RiskScore: score,
			RiskLevel: RiskLevelFor(score),
			Category:  entry.Category,
			Rationale: entry.Rationale,
			Breakdown: breakdown,
			TvlUSD:    m.TvlUSD,
			SourceID:  sourceID(entry.ID, m.ID),
		})
	}

	catalogLogger.Info().
		Int("configured", len(entries)).
		Int("scored", len(catalog)).
		Int("missing", len(missing)).
		Msg("Catalog scored")

	return catalog, missing
}

func sourceID(entryID, metricsID string) string {
	if metricsID == "" {
		return entryID
	}
	return metricsID
}
