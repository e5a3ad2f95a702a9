package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/google/uuid"
)

// MemoryStore хранилище в памяти процесса. Используется в тестах
// и при storage.driver=memory. Поддерживает внедрение отказов через FailNext.
type MemoryStore struct {
	mu           sync.Mutex
	providers    map[string]*models.Provider
	marketplaces map[string]*models.Marketplace
	// products provider_id -> sku -> товар
	products map[string]map[string]*models.Product
	logs     []models.SyncLogEntry
	failures map[string][]models.StoreErrorKind
	now      func() time.Time
	closed   bool
}

// MemoryOption настройка MemoryStore
type MemoryOption func(*MemoryStore)

// WithMemoryClock подменяет источник времени
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		providers:    make(map[string]*models.Provider),
		marketplaces: make(map[string]*models.Marketplace),
		products:     make(map[string]map[string]*models.Product),
		failures:     make(map[string][]models.StoreErrorKind),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FailNext заставляет следующий вызов операции op вернуть StoreError вида kind.
// Повторные вызовы ставят отказы в очередь.
func (m *MemoryStore) FailNext(op string, kind models.StoreErrorKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], kind)
}

// injected вызывается под блокировкой
func (m *MemoryStore) injected(op string) error {
	if m.closed {
		return unavailable(op, errors.New("store is closed"))
	}
	queue := m.failures[op]
	if len(queue) == 0 {
		return nil
	}
	kind := queue[0]
	m.failures[op] = queue[1:]
	return models.NewStoreError(kind, op, errors.New("injected failure"))
}

func (m *MemoryStore) ListProviders(_ context.Context) ([]models.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpListProviders); err != nil {
		return nil, err
	}

	out := make([]models.Provider, 0, len(m.providers))
	for _, p := range m.providers {
		out = append(out, p.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) ListMarketplaces(_ context.Context) ([]models.Marketplace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpListMarketplaces); err != nil {
		return nil, err
	}

	out := make([]models.Marketplace, 0, len(m.marketplaces))
	for _, mp := range m.marketplaces {
		out = append(out, *mp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) ListProducts(_ context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpListProducts); err != nil {
		return nil, 0, err
	}

	var matched []models.Product
	for providerID, bySKU := range m.products {
		if filter.ProviderID != "" && providerID != filter.ProviderID {
			continue
		}
		for _, p := range bySKU {
			if filter.Published != nil && p.SyncedToHub != *filter.Published {
				continue
			}
			matched = append(matched, cloneProduct(p))
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].SKU < matched[j].SKU
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := filter.Offset()
	if offset >= total {
		return []models.Product{}, total, nil
	}
	end := total
	if filter.PageSize > 0 && offset+filter.PageSize < total {
		end = offset + filter.PageSize
	}
	return matched[offset:end], total, nil
}

func (m *MemoryStore) ListRecentLogs(_ context.Context, providerID string, limit int) ([]models.SyncLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpListRecentLogs); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []models.SyncLogEntry{}, nil
	}

	out := make([]models.SyncLogEntry, 0, limit)
	// logs хранится в порядке добавления, идем с конца
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if providerID != "" && m.logs[i].ProviderID != providerID {
			continue
		}
		out = append(out, m.logs[i])
	}
	return out, nil
}

func (m *MemoryStore) CreateProvider(_ context.Context, provider models.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpCreateProvider); err != nil {
		return err
	}
	now := m.now()
	if provider.CreatedAt.IsZero() {
		provider.CreatedAt = now
	}
	if provider.UpdatedAt.IsZero() {
		provider.UpdatedAt = provider.CreatedAt
	}
	if provider.Status == "" {
		provider.Status = models.StatusDisconnected
	}
	if err := provider.Validate(); err != nil {
		return conflict(OpCreateProvider, err)
	}
	if _, exists := m.providers[provider.ID]; exists {
		return conflict(OpCreateProvider, fmt.Errorf("provider %s already exists", provider.ID))
	}
	for _, p := range m.providers {
		if p.Slug == provider.Slug {
			return conflict(OpCreateProvider, fmt.Errorf("provider slug %s already taken", provider.Slug))
		}
	}

	stored := provider.Clone()
	m.providers[provider.ID] = &stored
	return nil
}

func (m *MemoryStore) CreateMarketplace(_ context.Context, marketplace models.Marketplace) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpCreateMarketplace); err != nil {
		return err
	}
	if _, exists := m.marketplaces[marketplace.ID]; exists {
		return conflict(OpCreateMarketplace, fmt.Errorf("marketplace %s already exists", marketplace.ID))
	}
	for _, mp := range m.marketplaces {
		if mp.Slug == marketplace.Slug {
			return conflict(OpCreateMarketplace, fmt.Errorf("marketplace slug %s already taken", marketplace.Slug))
		}
	}

	now := m.now()
	if marketplace.CreatedAt.IsZero() {
		marketplace.CreatedAt = now
	}
	if marketplace.UpdatedAt.IsZero() {
		marketplace.UpdatedAt = marketplace.CreatedAt
	}
	if marketplace.Status == "" {
		marketplace.Status = models.StatusDisconnected
	}
	m.marketplaces[marketplace.ID] = &marketplace
	return nil
}

func (m *MemoryStore) UpdateProviderStatus(_ context.Context, id string, status models.ConnectionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpUpdateProviderStatus); err != nil {
		return err
	}
	if !status.IsValid() {
		return conflict(OpUpdateProviderStatus, fmt.Errorf("invalid status %q", status))
	}
	p, ok := m.providers[id]
	if !ok {
		return notFound(OpUpdateProviderStatus, id)
	}
	p.Status = status
	p.UpdatedAt = m.touch(p.CreatedAt)
	return nil
}

func (m *MemoryStore) IncrementProviderProductCount(_ context.Context, id string, delta int) (*models.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpIncrementCount); err != nil {
		return nil, err
	}
	p, ok := m.providers[id]
	if !ok {
		return nil, notFound(OpIncrementCount, id)
	}
	if p.ProductCount+delta < 0 {
		return nil, conflict(OpIncrementCount, fmt.Errorf("product count of %s would become negative", id))
	}
	p.ProductCount += delta
	p.UpdatedAt = m.touch(p.CreatedAt)
	out := p.Clone()
	return &out, nil
}

func (m *MemoryStore) CompleteProviderSync(_ context.Context, id string, delta int, syncedAt time.Time, products []models.Product) (*models.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpCompleteSync); err != nil {
		return nil, err
	}
	p, ok := m.providers[id]
	if !ok {
		return nil, notFound(OpCompleteSync, id)
	}
	if p.ProductCount+delta < 0 {
		return nil, conflict(OpCompleteSync, fmt.Errorf("product count of %s would become negative", id))
	}
	prepared, err := prepareProducts(id, products, m.now())
	if err != nil {
		return nil, conflict(OpCompleteSync, err)
	}

	m.upsertProducts(id, prepared)
	p.ProductCount += delta
	synced := syncedAt.UTC()
	p.LastSync = &synced
	p.Status = models.StatusConnected
	p.UpdatedAt = m.touch(p.CreatedAt)
	out := p.Clone()
	return &out, nil
}

func (m *MemoryStore) SaveProducts(_ context.Context, providerID string, products []models.Product) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpSaveProducts); err != nil {
		return 0, err
	}
	if _, ok := m.providers[providerID]; !ok {
		return 0, notFound(OpSaveProducts, providerID)
	}

	prepared, err := prepareProducts(providerID, products, m.now())
	if err != nil {
		return 0, conflict(OpSaveProducts, err)
	}
	m.upsertProducts(providerID, prepared)
	return len(prepared), nil
}

// upsertProducts вызывается под m.mu
func (m *MemoryStore) upsertProducts(providerID string, prepared []models.Product) {
	bySKU, ok := m.products[providerID]
	if !ok {
		bySKU = make(map[string]*models.Product)
		m.products[providerID] = bySKU
	}
	for i := range prepared {
		p := prepared[i]
		if existing, ok := bySKU[p.SKU]; ok {
			// обновленный товар снова требует публикации
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
		}
		p.SyncedToHub = false
		stored := cloneProduct(&p)
		bySKU[p.SKU] = &stored
	}
}

func (m *MemoryStore) AppendLog(_ context.Context, entry models.NewSyncLogEntry) (*models.SyncLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpAppendLog); err != nil {
		return nil, err
	}
	stored := models.SyncLogEntry{
		ID:               uuid.New().String(),
		ProviderID:       entry.ProviderID,
		Action:           entry.Action,
		Outcome:          entry.Outcome,
		Message:          entry.Message,
		ProductsAffected: entry.ProductsAffected,
		CreatedAt:        m.now(),
	}
	m.logs = append(m.logs, stored)
	return &stored, nil
}

func (m *MemoryStore) MarkProductsPublished(_ context.Context, providerID string, productIDs []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpMarkPublished); err != nil {
		return 0, err
	}
	ids := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		ids[id] = struct{}{}
	}
	now := m.now()
	n := 0
	for _, p := range m.products[providerID] {
		if _, ok := ids[p.ID]; ok && !p.SyncedToHub {
			p.SyncedToHub = true
			p.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CountUnpublished(_ context.Context, providerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpCountUnpublished); err != nil {
		return 0, err
	}
	n := 0
	for _, p := range m.products[providerID] {
		if !p.SyncedToHub {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.injected(OpPing)
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// touch время обновления, не раньше времени создания
func (m *MemoryStore) touch(createdAt time.Time) time.Time {
	now := m.now()
	if now.Before(createdAt) {
		return createdAt
	}
	return now
}

func cloneProduct(p *models.Product) models.Product {
	out := *p
	if p.Images != nil {
		out.Images = append([]string(nil), p.Images...)
	}
	if p.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
