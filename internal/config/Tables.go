package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/elys-network/curator/internal/types"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var ErrInvalidTables = errors.New("invalid configuration tables")

// Tables is the static configuration injected into the scorer and the allocation engine.
type Tables struct {
	Templates []types.AllocationTemplate `yaml:"templates"`
	Protocols map[string]types.TrustTier `yaml:"protocols"`
	Catalog   []types.CatalogEntry       `yaml:"catalog"`
}

// LoadTables reads tables from a YAML file. Sections missing from the file keep their defaults.
// An empty path returns a copy of DefaultTables.
func LoadTables(path string) (Tables, error) {
	tables := DefaultTables.Clone()
	if path == "" {
		return tables, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read tables: %w", err)
	}

	var fromFile Tables
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return Tables{}, fmt.Errorf("parse tables: %w", err)
	}

	if len(fromFile.Templates) > 0 {
		tables.Templates = fromFile.Templates
	}
	if len(fromFile.Protocols) > 0 {
		tables.Protocols = fromFile.Protocols
	}
	if len(fromFile.Catalog) > 0 {
		tables.Catalog = fromFile.Catalog
	}

	if err := tables.Normalize(); err != nil {
		return Tables{}, err
	}

	log.Info().
		Str("path", path).
		Int("templates", len(tables.Templates)).
		Int("protocols", len(tables.Protocols)).
		Int("catalog", len(tables.Catalog)).
		Msg("Configuration tables loaded")
	return tables, nil
}

// Normalize canonicalizes every enum value in place and rejects unknown ones,
// so no unrecognized category or tier reaches the engine.
func (t *Tables) Normalize() error {
	var errs []error

	for i, tpl := range t.Templates {
		tier, err := types.ParseRiskTier(string(tpl.Tier))
		if err != nil {
			errs = append(errs, fmt.Errorf("template %d: %w", i, err))
			continue
		}
		t.Templates[i].Tier = tier
	}

	protocols := make(map[string]types.TrustTier, len(t.Protocols))
	for name, tier := range t.Protocols {
		parsed, err := types.ParseTrustTier(string(tier))
		if err != nil {
			errs = append(errs, fmt.Errorf("protocol %q: %w", name, err))
			continue
		}
		protocols[strings.ToLower(strings.TrimSpace(name))] = parsed
	}
	t.Protocols = protocols

	seen := make(map[string]bool, len(t.Catalog))
	for i, entry := range t.Catalog {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("catalog entry %d: empty id", i))
			continue
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("catalog entry %d: duplicate id %q", i, id))
			continue
		}
		seen[id] = true

		category, err := types.ParseCategory(string(entry.Category))
		if err != nil {
			errs = append(errs, fmt.Errorf("catalog entry %q: %w", id, err))
			continue
		}
		t.Catalog[i].ID = id
		t.Catalog[i].Category = category
		if t.Catalog[i].Name == "" {
			t.Catalog[i].Name = id
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTables, errors.Join(errs...))
	}
	return nil
}

// Clone returns a deep copy so callers can modify tables without touching the defaults.
func (t Tables) Clone() Tables {
	return Tables{
		Templates: slices.Clone(t.Templates),
		Protocols: maps.Clone(t.Protocols),
		Catalog:   slices.Clone(t.Catalog),
	}
}
