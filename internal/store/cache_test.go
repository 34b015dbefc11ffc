package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records how often each read reaches the backend.
type countingStore struct {
	Store
	listCalls int
	getCalls  int
}

func (c *countingStore) ListContractSummaries(ctx context.Context) ([]ContractSummary, error) {
	c.listCalls++
	return c.Store.ListContractSummaries(ctx)
}

func (c *countingStore) GetContractSummary(ctx context.Context, id string) (*ContractSummary, error) {
	c.getCalls++
	return c.Store.GetContractSummary(ctx, id)
}

func TestCachedStoreReturnsBackendData(t *testing.T) {
	ctx := context.Background()
	backend := newTestSQLite(t)
	require.NoError(t, backend.UpsertContractSummary(ctx, ContractSummary{ID: "a", Resume: "r"}))

	counting := &countingStore{Store: backend}
	cached, err := NewCachedStore(counting, time.Minute)
	require.NoError(t, err)

	for range 3 {
		list, err := cached.ListContractSummaries(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "r", list[0].Resume)
	}
	assert.GreaterOrEqual(t, counting.listCalls, 1)
	assert.LessOrEqual(t, counting.listCalls, 3)
}

func TestCachedStoreDoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	backend := newTestSQLite(t)
	counting := &countingStore{Store: backend}
	cached, err := NewCachedStore(counting, time.Minute)
	require.NoError(t, err)

	_, err = cached.GetContractSummary(ctx, "late")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, backend.UpsertContractSummary(ctx, ContractSummary{ID: "late", Resume: "arrived"}))

	got, err := cached.GetContractSummary(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, "arrived", got.Resume)
	assert.Equal(t, 2, counting.getCalls)
}
