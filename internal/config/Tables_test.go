package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/elys-network/curator/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTables(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultTables_AreValid(t *testing.T) {
	tables := DefaultTables.Clone()
	require.NoError(t, tables.Normalize())

	assert.Len(t, tables.Templates, 3)
	assert.NotEmpty(t, tables.Catalog)

	for _, entry := range tables.Catalog {
		_, ok := tables.Protocols[entry.Protocol]
		assert.True(t, ok, "catalog protocol %s missing from registry", entry.Protocol)
	}
}

func TestLoadTables_EmptyPathReturnsDefaultsCopy(t *testing.T) {
	tables, err := LoadTables("")
	require.NoError(t, err)

	tables.Catalog[0].Name = "mutated"
	tables.Protocols["kamino-lend"] = types.TrustEmerging

	assert.NotEqual(t, "mutated", DefaultTables.Catalog[0].Name)
	assert.Equal(t, types.TrustEstablished, DefaultTables.Protocols["kamino-lend"])
}

func TestLoadTables_OverridesSectionsPresentInFile(t *testing.T) {
	path := writeTables(t, `
protocols:
  Kamino-Lend: medium
catalog:
  - id: kamino-lend/solana/usdc
    name: Kamino USDC
    protocol: kamino-lend
    asset: USDC
    category: stablecoin-lending
  - id: jito-liquid-staking/solana/jitosol
    protocol: jito-liquid-staking
    category: lst
`)

	tables, err := LoadTables(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultTables.Templates, tables.Templates)
	assert.Equal(t, map[string]types.TrustTier{"kamino-lend": types.TrustMedium}, tables.Protocols)
	require.Len(t, tables.Catalog, 2)
	assert.Equal(t, types.CategoryStablecoinLending, tables.Catalog[0].Category)
	assert.Equal(t, types.CategoryLiquidStaking, tables.Catalog[1].Category)
	assert.Equal(t, "jito-liquid-staking/solana/jitosol", tables.Catalog[1].Name)
}

func TestLoadTables_RejectsUnknownEnums(t *testing.T) {
	path := writeTables(t, `
protocols:
  kamino-lend: legendary
catalog:
  - id: a
    category: options
  - id: a
    category: vault
templates:
  - tier: yolo
`)

	_, err := LoadTables(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTables)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Contains(t, err.Error(), "legendary")
	assert.Contains(t, err.Error(), "options")
	assert.Contains(t, err.Error(), "duplicate id")
	assert.Contains(t, err.Error(), "yolo")
}

func TestLoadTables_MissingFile(t *testing.T) {
	_, err := LoadTables(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
