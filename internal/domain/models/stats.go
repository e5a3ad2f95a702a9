package models

import "time"

// DashboardStats агрегированная статистика для панели управления
type DashboardStats struct {
	TotalProducts      int        `json:"total_products"`
	SyncedProducts     int        `json:"synced_products"`
	PendingSync        int        `json:"pending_sync"`
	ActiveProviders    int        `json:"active_providers"`
	ActiveMarketplaces int        `json:"active_marketplaces"`
	LastGlobalSync     *time.Time `json:"last_global_sync"`
	// Inconsistent маркетплейсы сообщают больше товаров, чем поставили поставщики
	Inconsistent bool `json:"inconsistent"`
}
