package stats

import (
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
)

// Compute считает статистику панели по снимку поставщиков и маркетплейсов.
// PendingSync всегда равен TotalProducts - SyncedProducts и может быть
// отрицательным, в этом случае выставляется Inconsistent.
func Compute(providers []models.Provider, marketplaces []models.Marketplace) models.DashboardStats {
	var s models.DashboardStats
	var last *time.Time

	for i := range providers {
		p := &providers[i]
		s.TotalProducts += p.ProductCount
		if p.Status == models.StatusConnected {
			s.ActiveProviders++
		}
		if p.LastSync != nil && (last == nil || p.LastSync.After(*last)) {
			last = p.LastSync
		}
	}

	for i := range marketplaces {
		m := &marketplaces[i]
		s.SyncedProducts += m.ProductCount
		if m.Status == models.StatusConnected {
			s.ActiveMarketplaces++
		}
	}

	s.PendingSync = s.TotalProducts - s.SyncedProducts
	s.Inconsistent = s.PendingSync < 0

	if last != nil {
		ts := *last
		s.LastGlobalSync = &ts
	}
	return s
}
