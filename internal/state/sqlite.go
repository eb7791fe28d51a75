package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/elys-network/curator/internal/types"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists allocation records to a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	storeLogger.Info().Str("path", dbPath).Msg("SQLite allocation store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS allocations (
			allocation_id  TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL DEFAULT '',
			risk_tier      TEXT NOT NULL,
			amount         REAL NOT NULL,
			weighted_apy   REAL NOT NULL,
			overall_risk   TEXT NOT NULL,
			pool_ids       TEXT NOT NULL,
			recommendation TEXT NOT NULL,
			created_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_allocations_user_created ON allocations(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_allocations_created ON allocations(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops the allocations table and runs migrations again.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS allocations`); err != nil {
		return fmt.Errorf("drop allocations: %w", err)
	}
	storeLogger.Warn().Msg("Allocations table dropped")
	return s.migrate()
}

// SaveAllocation inserts a finalized recommendation.
func (s *SQLiteStore) SaveAllocation(ctx context.Context, record types.AllocationRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}
	recommendationJSON, err := encodeRecommendation(record)
	if err != nil {
		return err
	}
	poolIDsJSON, err := json.Marshal(record.PoolIDs())
	if err != nil {
		return fmt.Errorf("failed to marshal pool ids: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO allocations (allocation_id, user_id, risk_tier, amount, weighted_apy, overall_risk, pool_ids, recommendation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.UserID, string(record.RiskTier), record.Amount,
		record.Recommendation.Summary.WeightedAPY, string(record.Recommendation.Summary.OverallRisk),
		string(poolIDsJSON), string(recommendationJSON), record.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save allocation %s: %w", record.ID, err)
	}

	storeLogger.Info().
		Str("allocation_id", record.ID).
		Str("risk_tier", string(record.RiskTier)).
		Float64("amount", record.Amount).
		Msg("Allocation saved to sqlite")
	return nil
}

// GetAllocation loads one record by ID.
func (s *SQLiteStore) GetAllocation(ctx context.Context, id string) (types.AllocationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT allocation_id, user_id, risk_tier, amount, recommendation, created_at
		 FROM allocations WHERE allocation_id = ?`, id)

	record, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AllocationRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return types.AllocationRecord{}, fmt.Errorf("failed to load allocation %s: %w", id, err)
	}
	return record, nil
}

// ListAllocations returns the most recent records, optionally restricted to one user.
func (s *SQLiteStore) ListAllocations(ctx context.Context, userID string, limit int) ([]types.AllocationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT allocation_id, user_id, risk_tier, amount, recommendation, created_at
		 FROM allocations
		 WHERE (? = '' OR user_id = ?)
		 ORDER BY created_at DESC, allocation_id
		 LIMIT ?`, userID, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	records := []types.AllocationRecord{}
	for rows.Next() {
		record, err := scanSQLiteRecord(rows)
		if err != nil {
			storeLogger.Error().Err(err).Msg("Failed to scan allocation row")
			continue
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return records, nil
}

// Ping checks that the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLiteRecord(row rowScanner) (types.AllocationRecord, error) {
	var record types.AllocationRecord
	var tier, recommendationJSON string
	var createdAtMillis int64

	if err := row.Scan(&record.ID, &record.UserID, &tier, &record.Amount, &recommendationJSON, &createdAtMillis); err != nil {
		return types.AllocationRecord{}, err
	}
	record.RiskTier = types.RiskTier(tier)
	record.CreatedAt = time.UnixMilli(createdAtMillis).UTC()
	if err := decodeRecommendation(&record, []byte(recommendationJSON)); err != nil {
		return types.AllocationRecord{}, err
	}
	return record, nil
}
