package state

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a disposable database: TEST_DB_HOST, TEST_DB_USER, TEST_DB_NAME (+ optional PORT/PASSWORD).
func TestPostgresStore_RoundTrip(t *testing.T) {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port, err := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if err != nil {
		port = 5432
	}

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, DBConfig{
		Host: host, Port: port,
		User: os.Getenv("TEST_DB_USER"), Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName: os.Getenv("TEST_DB_NAME"), SSLMode: "disable",
	})
	require.NoError(t, err)
	defer store.Close()

	userID := "test-" + uuid.NewString()
	record := testRecord(uuid.NewString(), userID, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, store.SaveAllocation(ctx, record))

	loaded, err := store.GetAllocation(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Recommendation, loaded.Recommendation)
	assert.True(t, record.CreatedAt.Equal(loaded.CreatedAt))

	list, err := store.ListAllocations(ctx, userID, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = store.GetAllocation(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}
