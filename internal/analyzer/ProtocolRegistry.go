package analyzer

import (
	"strings"

	"github.com/elys-network/curator/internal/types"
)

// UnknownProtocolRisk is charged to protocols missing from the registry (medium trust).
const UnknownProtocolRisk = 5

var trustTierRisk = map[types.TrustTier]int{
	types.TrustEstablished: 2,
	types.TrustMedium:      5,
	types.TrustEmerging:    8,
}

// ProtocolRegistry maps protocol identifiers to trust tiers. It is immutable after construction.
type ProtocolRegistry struct {
	tiers map[string]types.TrustTier
}

// NewProtocolRegistry copies the given table, normalising protocol keys to lower case.
func NewProtocolRegistry(tiers map[string]types.TrustTier) ProtocolRegistry {
	copied := make(map[string]types.TrustTier, len(tiers))
	for protocol, tier := range tiers {
		copied[normalizeProtocol(protocol)] = tier
	}
	return ProtocolRegistry{tiers: copied}
}

// Tier returns the trust tier of a protocol and whether it is registered.
func (r ProtocolRegistry) Tier(protocol string) (types.TrustTier, bool) {
	tier, ok := r.tiers[normalizeProtocol(protocol)]
	return tier, ok
}

// RiskPoints returns the protocol-trust factor (0-10) for a protocol.
func (r ProtocolRegistry) RiskPoints(protocol string) int {
	tier, ok := r.Tier(protocol)
	if !ok {
		scoreLogger.Debug().Str("protocol", protocol).Msg("Protocol not in registry, using medium trust")
		return UnknownProtocolRisk
	}
	points, ok := trustTierRisk[tier]
	if !ok {
		return UnknownProtocolRisk
	}
	if points > types.MaxProtocolTrustRisk {
		return types.MaxProtocolTrustRisk
	}
	return points
}

// Len reports the number of registered protocols.
func (r ProtocolRegistry) Len() int {
	return len(r.tiers)
}

func normalizeProtocol(protocol string) string {
	return strings.ToLower(strings.TrimSpace(protocol))
}
