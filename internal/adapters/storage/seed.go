package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
)

// DemoProviders поставщики для локального режима
func DemoProviders(now time.Time) []models.Provider {
	cvaSync := now.Add(-1 * time.Hour)
	fulfilSync := now.Add(-2 * time.Hour)

	return []models.Provider{
		{
			ID:           "cva",
			Name:         "GRUPO CVA",
			Slug:         "cva",
			Description:  "Proveedor mexicano de equipo de cómputo",
			Status:       models.StatusConnected,
			ProductCount: 15420,
			LastSync:     &cvaSync,
		},
		{
			ID:           "fulfil",
			Name:         "FulFil",
			Slug:         "fulfil",
			Description:  "Dropshipping internacional",
			Status:       models.StatusConnected,
			ProductCount: 8750,
			LastSync:     &fulfilSync,
		},
		{
			ID:          "tbd",
			Name:        "Proveedor TBD",
			Slug:        "tbd",
			Description: "Próximamente disponible",
			Status:      models.StatusDisconnected,
		},
	}
}

// DemoMarketplaces маркетплейсы для локального режима
func DemoMarketplaces() []models.Marketplace {
	return []models.Marketplace{
		{ID: "mercadolibre", Name: "Mercado Libre", Slug: "mercadolibre", Status: models.StatusConnected, ProductCount: 12500},
		{ID: "amazon", Name: "Amazon", Slug: "amazon", Status: models.StatusConnected, ProductCount: 8200},
		{ID: "walmart", Name: "Walmart", Slug: "walmart", Status: models.StatusSyncing, ProductCount: 5400},
	}
}

// SeedDemoData заполняет хранилище демонстрационными данными.
// Уже существующие записи пропускаются, поэтому вызов можно повторять.
func SeedDemoData(ctx context.Context, store Store, logger interfaces.LoggerPort) error {
	now := time.Now().UTC()
	created := 0

	// порядок создания задает порядок выдачи, поэтому время создания разносим
	for i, p := range DemoProviders(now) {
		p.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		p.UpdatedAt = p.CreatedAt
		err := store.CreateProvider(ctx, p)
		switch {
		case err == nil:
			created++
		case models.IsStoreError(err, models.StoreConflict):
			logger.Debug("Поставщик уже существует", "provider_id", p.ID)
		default:
			return fmt.Errorf("failed to seed provider %s: %w", p.ID, err)
		}
	}

	for i, m := range DemoMarketplaces() {
		m.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		m.UpdatedAt = m.CreatedAt
		err := store.CreateMarketplace(ctx, m)
		switch {
		case err == nil:
			created++
		case models.IsStoreError(err, models.StoreConflict):
			logger.Debug("Маркетплейс уже существует", "marketplace_id", m.ID)
		default:
			return fmt.Errorf("failed to seed marketplace %s: %w", m.ID, err)
		}
	}

	logger.Info("Демонстрационные данные загружены", "created", created)
	return nil
}
