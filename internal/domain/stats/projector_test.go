package stats

import (
	"testing"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	t.Parallel()

	older := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	newer := older.Add(3 * time.Hour)

	tests := []struct {
		name         string
		providers    []models.Provider
		marketplaces []models.Marketplace
		want         models.DashboardStats
		wantLast     *time.Time
	}{
		{
			name: "empty",
			want: models.DashboardStats{},
		},
		{
			name: "pending positive",
			providers: []models.Provider{
				{ID: "a", Status: models.StatusConnected, ProductCount: 100, LastSync: &older},
				{ID: "b", Status: models.StatusError, ProductCount: 50, LastSync: &newer},
				{ID: "c", Status: models.StatusDisconnected},
			},
			marketplaces: []models.Marketplace{
				{ID: "m1", Status: models.StatusConnected, ProductCount: 30},
				{ID: "m2", Status: models.StatusSyncing, ProductCount: 20},
			},
			want: models.DashboardStats{
				TotalProducts:      150,
				SyncedProducts:     50,
				PendingSync:        100,
				ActiveProviders:    1,
				ActiveMarketplaces: 1,
			},
			wantLast: &newer,
		},
		{
			name: "marketplaces report more than providers",
			providers: []models.Provider{
				{ID: "a", Status: models.StatusConnected, ProductCount: 10},
			},
			marketplaces: []models.Marketplace{
				{ID: "m1", Status: models.StatusConnected, ProductCount: 25},
			},
			want: models.DashboardStats{
				TotalProducts:      10,
				SyncedProducts:     25,
				PendingSync:        -15,
				ActiveProviders:    1,
				ActiveMarketplaces: 1,
				Inconsistent:       true,
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Compute(tt.providers, tt.marketplaces)
			last := got.LastGlobalSync
			got.LastGlobalSync = nil
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.TotalProducts-got.SyncedProducts, got.PendingSync)

			if tt.wantLast == nil {
				assert.Nil(t, last)
				return
			}
			require.NotNil(t, last)
			assert.True(t, last.Equal(*tt.wantLast))
		})
	}
}

func TestCompute_DoesNotAliasInput(t *testing.T) {
	t.Parallel()

	ts := time.Now()
	providers := []models.Provider{{ID: "a", LastSync: &ts}}
	got := Compute(providers, nil)
	require.NotNil(t, got.LastGlobalSync)

	*got.LastGlobalSync = time.Time{}
	assert.False(t, providers[0].LastSync.IsZero())
}
