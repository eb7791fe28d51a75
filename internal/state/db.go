package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/elys-network/curator/internal/types"
	"github.com/lib/pq" // PostgreSQL driver and array support
)

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// PostgresStore persists allocation records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the connection pool, verifies it and ensures the schema exists.
func NewPostgresStore(ctx context.Context, cfg DBConfig) (*PostgresStore, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{db: db}
	if err := store.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	storeLogger.Info().Str("host", cfg.Host).Str("db", cfg.DBName).Msg("Successfully connected to the PostgreSQL database!")
	return store, nil
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return ErrDatabaseNotReady
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS allocations (
			allocation_id UUID PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL DEFAULT '',
			risk_tier VARCHAR(32) NOT NULL,
			amount DECIMAL(20, 8) NOT NULL,
			weighted_apy DECIMAL(10, 4) NOT NULL,
			overall_risk VARCHAR(16) NOT NULL,
			pool_ids TEXT[] NOT NULL, -- PostgreSQL array of selected pool IDs in allocation order
			recommendation JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_allocations_user_created ON allocations(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_allocations_created ON allocations(created_at DESC);
	`
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	storeLogger.Info().Msg("Database schema ensured.")
	return nil
}

// Reset drops the allocations table and recreates the schema. All stored records are lost.
func (s *PostgresStore) Reset(ctx context.Context) error {
	if s.db == nil {
		return ErrDatabaseNotReady
	}
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS allocations CASCADE;`); err != nil {
		return fmt.Errorf("failed to drop allocations table: %w", err)
	}
	storeLogger.Warn().Msg("Allocations table dropped")
	return s.EnsureSchema(ctx)
}

// SaveAllocation inserts a finalized recommendation.
func (s *PostgresStore) SaveAllocation(ctx context.Context, record types.AllocationRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}
	recommendationJSON, err := encodeRecommendation(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO allocations (
			allocation_id, user_id, risk_tier, amount, weighted_apy, overall_risk,
			pool_ids, recommendation, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.UserID, string(record.RiskTier), record.Amount,
		record.Recommendation.Summary.WeightedAPY, string(record.Recommendation.Summary.OverallRisk),
		pq.Array(record.PoolIDs()), recommendationJSON, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save allocation %s: %w", record.ID, err)
	}

	storeLogger.Info().
		Str("allocation_id", record.ID).
		Str("risk_tier", string(record.RiskTier)).
		Float64("amount", record.Amount).
		Msg("Allocation saved to database")
	return nil
}

// GetAllocation loads one record by ID.
func (s *PostgresStore) GetAllocation(ctx context.Context, id string) (types.AllocationRecord, error) {
	query := `
		SELECT allocation_id, user_id, risk_tier, amount, recommendation, created_at
		FROM allocations
		WHERE allocation_id::text = $1
	`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.AllocationRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return types.AllocationRecord{}, fmt.Errorf("failed to load allocation %s: %w", id, err)
	}
	return record, nil
}

// ListAllocations returns the most recent records, optionally restricted to one user.
func (s *PostgresStore) ListAllocations(ctx context.Context, userID string, limit int) ([]types.AllocationRecord, error) {
	query := `
		SELECT allocation_id, user_id, risk_tier, amount, recommendation, created_at
		FROM allocations
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Ping tests if the database connection is healthy.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrDatabaseNotReady
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	storeLogger.Info().Msg("Closing database connection...")
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (types.AllocationRecord, error) {
	var record types.AllocationRecord
	var tier string
	var recommendationJSON []byte

	if err := row.Scan(&record.ID, &record.UserID, &tier, &record.Amount, &recommendationJSON, &record.CreatedAt); err != nil {
		return types.AllocationRecord{}, err
	}
	record.RiskTier = types.RiskTier(tier)
	record.CreatedAt = record.CreatedAt.UTC()
	if err := decodeRecommendation(&record, recommendationJSON); err != nil {
		return types.AllocationRecord{}, err
	}
	return record, nil
}

func collectRecords(rows *sql.Rows) ([]types.AllocationRecord, error) {
	records := []types.AllocationRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			storeLogger.Error().Err(err).Msg("Failed to scan allocation row")
			continue // Skip this row and continue with others
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return records, nil
}
