package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	cacheerrors "github.com/FerDeNetlab/auramarket/pkg/errors"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
)

const productsKeyPrefix = "products"

// CachedStore кэширует страницы товаров поверх любого Store.
// Остальные операции уходят в хранилище напрямую.
type CachedStore struct {
	Store
	cache  interfaces.CachePort
	ttl    time.Duration
	logger interfaces.LoggerPort
}

func NewCachedStore(store Store, cache interfaces.CachePort, ttl time.Duration, logger interfaces.LoggerPort) *CachedStore {
	return &CachedStore{
		Store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: logger.WithField("component", "cached_store"),
	}
}

type cachedPage struct {
	Items []models.Product `json:"items"`
	Total int              `json:"total"`
}

func productsKey(filter models.ProductFilter) string {
	provider := filter.ProviderID
	if provider == "" {
		provider = "all"
	}
	published := "any"
	if filter.Published != nil {
		published = fmt.Sprintf("%t", *filter.Published)
	}
	return fmt.Sprintf("%s:%s:%s:%d:%d", productsKeyPrefix, provider, published, filter.Page, filter.PageSize)
}

func (c *CachedStore) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	key := productsKey(filter)

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var page cachedPage
		if err := json.Unmarshal(raw, &page); err == nil {
			return page.Items, page.Total, nil
		}
		c.logger.Warn("Поврежденная запись кэша", "key", key)
	case !errors.Is(err, cacheerrors.ErrCacheMiss):
		c.logger.Warn("Ошибка чтения кэша", "key", key, "error", err.Error())
	}

	items, total, err := c.Store.ListProducts(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if data, err := json.Marshal(cachedPage{Items: items, Total: total}); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("Ошибка записи в кэш", "key", key, "error", err.Error())
		}
	}
	return items, total, nil
}

func (c *CachedStore) SaveProducts(ctx context.Context, providerID string, products []models.Product) (int, error) {
	n, err := c.Store.SaveProducts(ctx, providerID, products)
	c.invalidate(ctx, providerID)
	return n, err
}

func (c *CachedStore) CompleteProviderSync(ctx context.Context, id string, delta int, syncedAt time.Time, products []models.Product) (*models.Provider, error) {
	p, err := c.Store.CompleteProviderSync(ctx, id, delta, syncedAt, products)
	if len(products) > 0 {
		c.invalidate(ctx, id)
	}
	return p, err
}

func (c *CachedStore) MarkProductsPublished(ctx context.Context, providerID string, productIDs []string) (int, error) {
	n, err := c.Store.MarkProductsPublished(ctx, providerID, productIDs)
	c.invalidate(ctx, providerID)
	return n, err
}

// invalidate сбрасывает страницы поставщика и общие страницы
func (c *CachedStore) invalidate(ctx context.Context, providerID string) {
	for _, pattern := range []string{
		fmt.Sprintf("%s:%s:*", productsKeyPrefix, providerID),
		productsKeyPrefix + ":all:*",
	} {
		if err := c.cache.DeleteByPattern(ctx, pattern); err != nil {
			c.logger.Warn("Не удалось сбросить кэш", "pattern", pattern, "error", err.Error())
		}
	}
}

func (c *CachedStore) Close() error {
	cacheErr := c.cache.Close()
	if err := c.Store.Close(); err != nil {
		return err
	}
	return cacheErr
}

var _ Store = (*CachedStore)(nil)
