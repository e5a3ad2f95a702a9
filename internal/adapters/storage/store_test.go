package storage

import (
	"context"
	"testing"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/adapters/logger"
	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories реализации Store, которые проверяются одним набором тестов
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			t.Helper()
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			t.Helper()
			s, err := NewSQLiteStore(context.Background(), ":memory:", logger.NewNop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func productIDs(t *testing.T, s Store, providerID string) []string {
	t.Helper()
	items, _, err := s.ListProducts(context.Background(), models.ProductFilter{ProviderID: providerID})
	require.NoError(t, err)
	ids := make([]string, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	return ids
}

func seedProvider(t *testing.T, s Store, id string, count int) {
	t.Helper()
	require.NoError(t, s.CreateProvider(context.Background(), models.Provider{
		ID:           id,
		Name:         id,
		Slug:         id,
		Status:       models.StatusConnected,
		ProductCount: count,
	}))
}

func TestStore_ProvidersOrderedByCreation(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)

			base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
			for i, id := range []string{"zeta", "alpha", "mid"} {
				require.NoError(t, s.CreateProvider(ctx, models.Provider{
					ID:        id,
					Name:      id,
					Slug:      id,
					CreatedAt: base.Add(time.Duration(i) * time.Minute),
				}))
			}

			providers, err := s.ListProviders(ctx)
			require.NoError(t, err)
			require.Len(t, providers, 3)
			assert.Equal(t, "zeta", providers[0].ID)
			assert.Equal(t, "alpha", providers[1].ID)
			assert.Equal(t, "mid", providers[2].ID)
			assert.Equal(t, models.StatusDisconnected, providers[0].Status)
			assert.Nil(t, providers[0].LastSync)
		})
	}
}

func TestStore_CreateProviderConflict(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)
			seedProvider(t, s, "cva", 0)

			err := s.CreateProvider(ctx, models.Provider{ID: "cva", Name: "dup", Slug: "other"})
			assert.True(t, models.IsStoreError(err, models.StoreConflict), "got %v", err)

			err = s.CreateProvider(ctx, models.Provider{ID: "other", Name: "dup", Slug: "cva"})
			assert.True(t, models.IsStoreError(err, models.StoreConflict), "got %v", err)
		})
	}
}

func TestStore_UpdateProviderStatus(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)
			seedProvider(t, s, "cva", 10)

			require.NoError(t, s.UpdateProviderStatus(ctx, "cva", models.StatusSyncing))
			// повторный вызов с тем же статусом допустим
			require.NoError(t, s.UpdateProviderStatus(ctx, "cva", models.StatusSyncing))

			providers, err := s.ListProviders(ctx)
			require.NoError(t, err)
			require.Len(t, providers, 1)
			assert.Equal(t, models.StatusSyncing, providers[0].Status)
			assert.Equal(t, 10, providers[0].ProductCount)
			assert.False(t, providers[0].UpdatedAt.Before(providers[0].CreatedAt))

			err = s.UpdateProviderStatus(ctx, "missing", models.StatusError)
			assert.True(t, models.IsStoreError(err, models.StoreNotFound), "got %v", err)
		})
	}
}

func TestStore_IncrementProviderProductCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		initial   int
		delta     int
		id        string
		wantCount int
		wantKind  models.StoreErrorKind
	}{
		{name: "positive delta", initial: 10, delta: 5, id: "cva", wantCount: 15},
		{name: "zero delta", initial: 10, delta: 0, id: "cva", wantCount: 10},
		{name: "down to zero", initial: 10, delta: -10, id: "cva", wantCount: 0},
		{name: "negative result", initial: 10, delta: -11, id: "cva", wantCount: 10, wantKind: models.StoreConflict},
		{name: "unknown provider", initial: 10, delta: 1, id: "nope", wantCount: 10, wantKind: models.StoreNotFound},
	}

	for name, factory := range storeFactories() {
		factory := factory
		for _, tt := range tests {
			tt := tt
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				t.Parallel()
				ctx := context.Background()
				s := factory(t)
				seedProvider(t, s, "cva", tt.initial)

				got, err := s.IncrementProviderProductCount(ctx, tt.id, tt.delta)
				if tt.wantKind != "" {
					assert.True(t, models.IsStoreError(err, tt.wantKind), "got %v", err)
					assert.Nil(t, got)
				} else {
					require.NoError(t, err)
					assert.Equal(t, tt.wantCount, got.ProductCount)
				}

				providers, err := s.ListProviders(ctx)
				require.NoError(t, err)
				assert.Equal(t, tt.wantCount, providers[0].ProductCount)
			})
		}
	}
}

func TestStore_CompleteProviderSync(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)
			seedProvider(t, s, "cva", 100)
			require.NoError(t, s.UpdateProviderStatus(ctx, "cva", models.StatusSyncing))

			syncedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
			got, err := s.CompleteProviderSync(ctx, "cva", 250, syncedAt, []models.Product{
				{SKU: "A-1", Name: "Laptop", Price: 100, Stock: 1},
				{SKU: "B-2", Name: "Monitor", Price: 50, Stock: 3},
			})
			require.NoError(t, err)
			assert.Equal(t, 350, got.ProductCount)
			assert.Equal(t, models.StatusConnected, got.Status)
			require.NotNil(t, got.LastSync)
			assert.True(t, got.LastSync.Equal(syncedAt))

			unpublished, err := s.CountUnpublished(ctx, "cva")
			require.NoError(t, err)
			assert.Equal(t, 2, unpublished)

			_, err = s.CompleteProviderSync(ctx, "missing", 1, syncedAt, nil)
			assert.True(t, models.IsStoreError(err, models.StoreNotFound), "got %v", err)
		})
	}
}

func TestStore_CompleteProviderSyncIsAtomic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		delta    int
		products []models.Product
	}{
		{
			name:  "invalid product",
			delta: 2,
			products: []models.Product{
				{SKU: "A-1", Price: 10},
				{SKU: "B-2", Price: -1},
			},
		},
		{
			name:     "negative count",
			delta:    -500,
			products: []models.Product{{SKU: "A-1", Price: 10}},
		},
	}

	for name, factory := range storeFactories() {
		factory := factory
		for _, tt := range tests {
			tt := tt
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				t.Parallel()
				ctx := context.Background()
				s := factory(t)
				seedProvider(t, s, "cva", 100)

				_, err := s.CompleteProviderSync(ctx, "cva", tt.delta, time.Now(), tt.products)
				assert.True(t, models.IsStoreError(err, models.StoreConflict), "got %v", err)

				providers, err := s.ListProviders(ctx)
				require.NoError(t, err)
				assert.Equal(t, 100, providers[0].ProductCount)
				assert.Nil(t, providers[0].LastSync)

				_, total, err := s.ListProducts(ctx, models.ProductFilter{ProviderID: "cva"})
				require.NoError(t, err)
				assert.Zero(t, total)
			})
		}
	}
}

func TestStore_MarkProductsPublishedOnlyListed(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)
			seedProvider(t, s, "cva", 0)
			seedProvider(t, s, "fulfil", 0)

			_, err := s.SaveProducts(ctx, "cva", []models.Product{{SKU: "A-1"}, {SKU: "B-2"}, {SKU: "C-3"}})
			require.NoError(t, err)
			_, err = s.SaveProducts(ctx, "fulfil", []models.Product{{SKU: "F-1"}})
			require.NoError(t, err)

			cva := productIDs(t, s, "cva")
			require.Len(t, cva, 3)
			foreign := productIDs(t, s, "fulfil")

			n, err := s.MarkProductsPublished(ctx, "cva", append(cva[:2:2], foreign...))
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			// повторная отметка ничего не меняет
			n, err = s.MarkProductsPublished(ctx, "cva", cva[:2])
			require.NoError(t, err)
			assert.Zero(t, n)

			n, err = s.MarkProductsPublished(ctx, "cva", nil)
			require.NoError(t, err)
			assert.Zero(t, n)

			unpublished, err := s.CountUnpublished(ctx, "cva")
			require.NoError(t, err)
			assert.Equal(t, 1, unpublished)

			unpublished, err = s.CountUnpublished(ctx, "fulfil")
			require.NoError(t, err)
			assert.Equal(t, 1, unpublished)
		})
	}
}

func TestStore_SaveProductsUpsert(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)
			seedProvider(t, s, "cva", 0)

			n, err := s.SaveProducts(ctx, "cva", []models.Product{
				{SKU: "B-2", Name: "Monitor", Price: 3500, Stock: 4},
				{SKU: "A-1", Name: "Laptop", Price: 15999.5, Stock: 2, Images: []string{"a.jpg"}},
			})
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			published, err := s.MarkProductsPublished(ctx, "cva", productIDs(t, s, "cva"))
			require.NoError(t, err)
			assert.Equal(t, 2, published)

			unpublished, err := s.CountUnpublished(ctx, "cva")
			require.NoError(t, err)
			assert.Zero(t, unpublished)

			items, total, err := s.ListProducts(ctx, models.ProductFilter{ProviderID: "cva"})
			require.NoError(t, err)
			assert.Equal(t, 2, total)
			require.Len(t, items, 2)
			// одинаковое время создания, порядок по SKU
			assert.Equal(t, "A-1", items[0].SKU)
			assert.Equal(t, models.DefaultCurrency, items[0].Currency)
			assert.Equal(t, []string{"a.jpg"}, items[0].Images)
			firstID := items[0].ID

			// повторная запись того же SKU обновляет товар и снимает отметку публикации
			n, err = s.SaveProducts(ctx, "cva", []models.Product{
				{SKU: "A-1", Name: "Laptop Pro", Price: 18999, Stock: 1},
			})
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			unpublished, err = s.CountUnpublished(ctx, "cva")
			require.NoError(t, err)
			assert.Equal(t, 1, unpublished)

			notPublished := false
			items, total, err = s.ListProducts(ctx, models.ProductFilter{ProviderID: "cva", Published: &notPublished})
			require.NoError(t, err)
			assert.Equal(t, 1, total)
			require.Len(t, items, 1)
			assert.Equal(t, firstID, items[0].ID)
			assert.Equal(t, "Laptop Pro", items[0].Name)
		})
	}
}

func TestStore_SaveProductsRejectsInvalid(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)
			seedProvider(t, s, "cva", 0)

			_, err := s.SaveProducts(ctx, "cva", []models.Product{{SKU: "X", Price: -1}})
			assert.True(t, models.IsStoreError(err, models.StoreConflict), "got %v", err)

			_, total, err := s.ListProducts(ctx, models.ProductFilter{})
			require.NoError(t, err)
			assert.Zero(t, total)
		})
	}
}

func TestStore_ListProductsPagination(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)
			seedProvider(t, s, "cva", 0)
			seedProvider(t, s, "fulfil", 0)

			_, err := s.SaveProducts(ctx, "cva", []models.Product{
				{SKU: "c1"}, {SKU: "c2"}, {SKU: "c3"}, {SKU: "c4"}, {SKU: "c5"},
			})
			require.NoError(t, err)
			_, err = s.SaveProducts(ctx, "fulfil", []models.Product{{SKU: "f1"}})
			require.NoError(t, err)

			items, total, err := s.ListProducts(ctx, models.ProductFilter{ProviderID: "cva", Page: 2, PageSize: 2})
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			require.Len(t, items, 2)
			assert.Equal(t, "c3", items[0].SKU)
			assert.Equal(t, "c4", items[1].SKU)

			items, total, err = s.ListProducts(ctx, models.ProductFilter{ProviderID: "cva", Page: 4, PageSize: 2})
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			assert.Empty(t, items)

			_, total, err = s.ListProducts(ctx, models.ProductFilter{})
			require.NoError(t, err)
			assert.Equal(t, 6, total)
		})
	}
}

func TestStore_Logs(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)
			seedProvider(t, s, "cva", 0)
			seedProvider(t, s, "fulfil", 0)

			for i, providerID := range []string{"cva", "fulfil", "cva"} {
				entry, err := s.AppendLog(ctx, models.NewSyncLogEntry{
					ProviderID:       providerID,
					Action:           models.ActionDownload,
					Outcome:          models.OutcomeSuccess,
					Message:          "ok",
					ProductsAffected: i + 1,
				})
				require.NoError(t, err)
				assert.NotEmpty(t, entry.ID)
				assert.False(t, entry.CreatedAt.IsZero())
			}

			all, err := s.ListRecentLogs(ctx, "", 10)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, 3, all[0].ProductsAffected)
			assert.Equal(t, 1, all[2].ProductsAffected)

			limited, err := s.ListRecentLogs(ctx, "", 2)
			require.NoError(t, err)
			assert.Len(t, limited, 2)

			cva, err := s.ListRecentLogs(ctx, "cva", 10)
			require.NoError(t, err)
			require.Len(t, cva, 2)
			assert.Equal(t, 3, cva[0].ProductsAffected)

			none, err := s.ListRecentLogs(ctx, "", 0)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestSeedDemoData_Idempotent(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)

			require.NoError(t, SeedDemoData(ctx, s, logger.NewNop()))
			require.NoError(t, SeedDemoData(ctx, s, logger.NewNop()))

			providers, err := s.ListProviders(ctx)
			require.NoError(t, err)
			require.Len(t, providers, 3)
			assert.Equal(t, "cva", providers[0].ID)
			assert.Equal(t, "fulfil", providers[1].ID)
			assert.Equal(t, "tbd", providers[2].ID)
			assert.NotNil(t, providers[0].LastSync)
			assert.Nil(t, providers[2].LastSync)

			marketplaces, err := s.ListMarketplaces(ctx)
			require.NoError(t, err)
			require.Len(t, marketplaces, 3)
			assert.Equal(t, "mercadolibre", marketplaces[0].ID)
			assert.Equal(t, "walmart", marketplaces[2].ID)
		})
	}
}
