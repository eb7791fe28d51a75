/*

This file contains the default configuration tables for the curator: allocation templates,
the protocol trust registry and the curated pool catalog.

Catalog IDs use the "<project>/<chain>/<symbol>" form, lowercased, so they can be matched against
the yields feed without pinning feed-specific pool identifiers. Raw feed pool IDs are accepted too.
Catalog order is priority order: the allocation engine takes the first match in each category.

*/

package config

import (
	"github.com/elys-network/curator/internal/types"
)

// DefaultTables provides the baseline tables used when no TABLES_FILE is configured
// or when the file omits a section.
var DefaultTables = Tables{
	Templates: []types.AllocationTemplate{
		{
			Tier:            types.RiskTierConservative,
			TargetRiskScore: 15,
			MaxRiskScore:    25, // Only low-risk pools are eligible.
			StablecoinFloor: 50,
			StablecoinCeil:  80,
			LSTCeiling:      20,
			LPCeiling:       0, // No impermanent loss exposure.
			TargetPoolCount: 3,
			AnchorPercent:   50,
			PrimaryPercent:  25,
			SecondaryStable: 15,
		},
		{
			Tier:            types.RiskTierModerate,
			TargetRiskScore: 30,
			MaxRiskScore:    45,
			StablecoinFloor: 35,
			StablecoinCeil:  60,
			LSTCeiling:      50,
			LPCeiling:       10,
			TargetPoolCount: 4,
			AnchorPercent:   35,
			PrimaryPercent:  30,
			SecondaryStable: 15,
			SecondaryLST:    20,
		},
		{
			Tier:             types.RiskTierAggressive,
			TargetRiskScore:  50,
			MaxRiskScore:     types.MaxRiskScore, // Everything is eligible.
			StablecoinFloor:  20,
			StablecoinCeil:   40,
			LSTCeiling:       60,
			LPCeiling:        25,
			TargetPoolCount:  4,
			AnchorPercent:    20,
			PrimaryPercent:   25,
			SecondaryLST:     20,
			LiquidityPoolPct: 25,
		},
	},

	Protocols: map[string]types.TrustTier{
		"kamino-lend":             types.TrustEstablished,
		"marginfi-lending":        types.TrustEstablished,
		"jito-liquid-staking":     types.TrustEstablished,
		"marinade-liquid-staking": types.TrustEstablished,
		"raydium-amm":             types.TrustEstablished,
		"orca-dex":                types.TrustEstablished,
		"save":                    types.TrustMedium,
		"jupiter-staked-sol":      types.TrustMedium,
		"kamino-liquidity":        types.TrustMedium,
		"drift-staked-sol":        types.TrustEmerging,
	},

	Catalog: []types.CatalogEntry{
		// --- Stablecoin lending ---
		{
			ID: "kamino-lend/solana/usdc", Name: "Kamino USDC Lending", Protocol: "kamino-lend", Asset: "USDC",
			Category:  types.CategoryStablecoinLending,
			Rationale: "Deepest USDC lending market on Solana with overcollateralized borrowers.",
		},
		{
			ID: "marginfi-lending/solana/usdc", Name: "marginfi USDC Lending", Protocol: "marginfi-lending", Asset: "USDC",
			Category:  types.CategoryStablecoinLending,
			Rationale: "Independent lending protocol, diversifies smart contract risk away from the anchor.",
		},
		{
			ID: "kamino-lend/solana/usdt", Name: "Kamino USDT Lending", Protocol: "kamino-lend", Asset: "USDT",
			Category:  types.CategoryStablecoinLending,
			Rationale: "Second stablecoin issuer on an established lending market.",
		},
		{
			ID: "save/solana/usdc", Name: "Save USDC Lending", Protocol: "save", Asset: "USDC",
			Category:  types.CategoryStablecoinLending,
			Rationale: "Long-running Solana lending market.",
		},

		// --- Volatile lending ---
		{
			ID: "kamino-lend/solana/sol", Name: "Kamino SOL Lending", Protocol: "kamino-lend", Asset: "SOL",
			Category:  types.CategoryVolatileLending,
			Rationale: "SOL exposure with lending interest and no impermanent loss.",
		},
		{
			ID: "marginfi-lending/solana/sol", Name: "marginfi SOL Lending", Protocol: "marginfi-lending", Asset: "SOL",
			Category:  types.CategoryVolatileLending,
			Rationale: "SOL lending on a second protocol.",
		},

		// --- Liquid staking ---
		{
			ID: "jito-liquid-staking/solana/jitosol", Name: "Jito Staked SOL", Protocol: "jito-liquid-staking", Asset: "JitoSOL",
			Category:  types.CategoryLiquidStaking,
			Rationale: "Staking yield boosted by MEV rewards, highly liquid LST.",
		},
		{
			ID: "marinade-liquid-staking/solana/msol", Name: "Marinade Staked SOL", Protocol: "marinade-liquid-staking", Asset: "mSOL",
			Category:  types.CategoryLiquidStaking,
			Rationale: "Stake spread across a wide validator set.",
		},
		{
			ID: "jupiter-staked-sol/solana/jupsol", Name: "Jupiter Staked SOL", Protocol: "jupiter-staked-sol", Asset: "JupSOL",
			Category:  types.CategoryLiquidStaking,
			Rationale: "Newer LST with competitive staking yield.",
		},

		// --- Liquidity pools ---
		{
			ID: "raydium-amm/solana/sol-usdc", Name: "Raydium SOL-USDC", Protocol: "raydium-amm", Asset: "SOL-USDC",
			Category:  types.CategoryLiquidityPool,
			Rationale: "High-volume pair earning trading fees.",
		},
		{
			ID: "orca-dex/solana/sol-usdc", Name: "Orca SOL-USDC", Protocol: "orca-dex", Asset: "SOL-USDC",
			Category:  types.CategoryLiquidityPool,
			Rationale: "Concentrated liquidity pair with deep volume.",
		},

		// --- Vaults ---
		{
			ID: "kamino-liquidity/solana/jitosol-sol", Name: "Kamino JitoSOL-SOL Vault", Protocol: "kamino-liquidity", Asset: "JitoSOL-SOL",
			Category:  types.CategoryVault,
			Rationale: "Automated vault on a correlated pair, low impermanent loss.",
		},
	},
}
