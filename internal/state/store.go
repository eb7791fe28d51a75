package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elys-network/curator/internal/logger"
	"github.com/elys-network/curator/internal/types"
)

var storeLogger = logger.GetForComponent("allocation_store")

// Error definitions for allocation stores
var (
	ErrNotFound         = errors.New("allocation not found")
	ErrStoreDisabled    = errors.New("allocation store is disabled")
	ErrInvalidRecord    = errors.New("invalid allocation record")
	ErrDatabaseNotReady = errors.New("database not initialized")
	ErrCorruptRecord    = errors.New("stored recommendation could not be decoded")
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// AllocationStore persists finalized recommendations for later retrieval.
// The allocation engine never reads it back.
type AllocationStore interface {
	SaveAllocation(ctx context.Context, record types.AllocationRecord) error
	GetAllocation(ctx context.Context, id string) (types.AllocationRecord, error)
	ListAllocations(ctx context.Context, userID string, limit int) ([]types.AllocationRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

// NoopStore discards every record. It is used when persistence is disabled.
type NoopStore struct{}

func (NoopStore) SaveAllocation(context.Context, types.AllocationRecord) error { return nil }

func (NoopStore) GetAllocation(_ context.Context, id string) (types.AllocationRecord, error) {
	return types.AllocationRecord{}, fmt.Errorf("%w: %w: %s", ErrNotFound, ErrStoreDisabled, id)
}

func (NoopStore) ListAllocations(context.Context, string, int) ([]types.AllocationRecord, error) {
	return []types.AllocationRecord{}, nil
}

func (NoopStore) Ping(context.Context) error { return nil }
func (NoopStore) Close() error { return nil }

func validateRecord(record types.AllocationRecord) error {
	if record.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing creation time", ErrInvalidRecord)
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return DefaultListLimit
	}
	return limit
}

func encodeRecommendation(record types.AllocationRecord) ([]byte, error) {
	data, err := json.Marshal(record.Recommendation)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recommendation: %w", err)
	}
	return data, nil
}

func decodeRecommendation(record *types.AllocationRecord, data []byte) error {
	if err := json.Unmarshal(data, &record.Recommendation); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorruptRecord, record.ID, err)
	}
	return nil
}

// pingTimeout bounds health checks.
const pingTimeout = 5 * time.Second
