package storage

import (
	"context"
	"testing"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestMemoryStore_FailNext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	seedProvider(t, s, "cva", 0)

	s.FailNext(OpListProviders, models.StoreUnavailable)
	s.FailNext(OpListProviders, models.StoreConflict)

	_, err := s.ListProviders(ctx)
	assert.True(t, models.IsStoreError(err, models.StoreUnavailable), "got %v", err)

	_, err = s.ListProviders(ctx)
	assert.True(t, models.IsStoreError(err, models.StoreConflict), "got %v", err)

	providers, err := s.ListProviders(ctx)
	require.NoError(t, err)
	assert.Len(t, providers, 1)
}

func TestMemoryStore_ClosedIsUnavailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	require.NoError(t, s.Close())

	err := s.Ping(ctx)
	assert.True(t, models.IsStoreError(err, models.StoreUnavailable), "got %v", err)

	_, err = s.AppendLog(ctx, models.NewSyncLogEntry{ProviderID: "cva"})
	assert.True(t, models.IsStoreError(err, models.StoreUnavailable), "got %v", err)
}

func TestMemoryStore_ProductsNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(WithMemoryClock(clock.Now))
	seedProvider(t, s, "cva", 0)

	_, err := s.SaveProducts(ctx, "cva", []models.Product{{SKU: "old"}})
	require.NoError(t, err)
	_, err = s.SaveProducts(ctx, "cva", []models.Product{{SKU: "new"}})
	require.NoError(t, err)

	items, total, err := s.ListProducts(ctx, models.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "new", items[0].SKU)
	assert.Equal(t, "old", items[1].SKU)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	seedProvider(t, s, "cva", 0)
	_, err := s.CompleteProviderSync(ctx, "cva", 1, time.Now(), nil)
	require.NoError(t, err)

	providers, err := s.ListProviders(ctx)
	require.NoError(t, err)
	providers[0].ProductCount = 999
	*providers[0].LastSync = time.Time{}

	again, err := s.ListProviders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].ProductCount)
	assert.False(t, again[0].LastSync.IsZero())
}

func TestMemoryStore_SaveProductsUnknownProvider(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	_, err := s.SaveProducts(context.Background(), "ghost", []models.Product{{SKU: "a"}})
	assert.True(t, models.IsStoreError(err, models.StoreNotFound), "got %v", err)
}
