package storage

import (
	"context"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/google/uuid"
)

// Имена операций хранилища, попадают в StoreError.Op
const (
	OpListProviders        = "list_providers"
	OpListMarketplaces     = "list_marketplaces"
	OpListProducts         = "list_products"
	OpListRecentLogs       = "list_recent_logs"
	OpCreateProvider       = "create_provider"
	OpCreateMarketplace    = "create_marketplace"
	OpUpdateProviderStatus = "update_provider_status"
	OpIncrementCount       = "increment_product_count"
	OpCompleteSync         = "complete_provider_sync"
	OpSaveProducts         = "save_products"
	OpAppendLog            = "append_log"
	OpMarkPublished        = "mark_products_published"
	OpCountUnpublished     = "count_unpublished"
	OpPing                 = "ping"
)

// Store постоянное хранилище поставщиков, маркетплейсов, товаров и журнала.
// Все ошибки имеют тип *models.StoreError.
type Store interface {
	// ListProviders возвращает поставщиков по возрастанию времени создания
	ListProviders(ctx context.Context) ([]models.Provider, error)

	// ListMarketplaces возвращает маркетплейсы по возрастанию времени создания
	ListMarketplaces(ctx context.Context) ([]models.Marketplace, error)

	// ListProducts возвращает страницу товаров (новые первыми) и общее число подходящих
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error)

	// ListRecentLogs возвращает последние записи журнала, новые первыми.
	// Пустой providerID означает все записи.
	ListRecentLogs(ctx context.Context, providerID string, limit int) ([]models.SyncLogEntry, error)

	// CreateProvider добавляет поставщика, Conflict если id или slug заняты
	CreateProvider(ctx context.Context, provider models.Provider) error

	// CreateMarketplace добавляет маркетплейс, Conflict если id или slug заняты
	CreateMarketplace(ctx context.Context, marketplace models.Marketplace) error

	// UpdateProviderStatus идемпотентно меняет статус и updated_at
	UpdateProviderStatus(ctx context.Context, id string, status models.ConnectionStatus) error

	// IncrementProviderProductCount атомарно прибавляет delta к счетчику товаров.
	// Conflict если счетчик стал бы отрицательным.
	IncrementProviderProductCount(ctx context.Context, id string, delta int) (*models.Provider, error)

	// CompleteProviderSync одним атомарным шагом сохраняет скачанные товары,
	// прибавляет delta к счетчику, выставляет last_sync=syncedAt и статус connected.
	// При ошибке не записывается ничего.
	CompleteProviderSync(ctx context.Context, id string, delta int, syncedAt time.Time, products []models.Product) (*models.Provider, error)

	// SaveProducts сохраняет товары поставщика, уникальность по (provider_id, sku).
	// Возвращает число записанных строк.
	SaveProducts(ctx context.Context, providerID string, products []models.Product) (int, error)

	// AppendLog добавляет запись журнала, id и время назначает хранилище
	AppendLog(ctx context.Context, entry models.NewSyncLogEntry) (*models.SyncLogEntry, error)

	// MarkProductsPublished помечает опубликованными перечисленные товары поставщика.
	// Уже опубликованные и чужие id пропускаются.
	MarkProductsPublished(ctx context.Context, providerID string, productIDs []string) (int, error)

	// CountUnpublished число товаров поставщика, еще не отправленных в хаб
	CountUnpublished(ctx context.Context, providerID string) (int, error)

	Ping(ctx context.Context) error

	Close() error
}

func unavailable(op string, err error) *models.StoreError {
	return models.NewStoreError(models.StoreUnavailable, op, err)
}

func notFound(op, id string) *models.StoreError {
	return models.NewStoreError(models.StoreNotFound, op, &missingError{id: id})
}

func conflict(op string, err error) *models.StoreError {
	return models.NewStoreError(models.StoreConflict, op, err)
}

type missingError struct {
	id string
}

func (e *missingError) Error() string {
	return "no row with id " + e.id
}

// prepareProducts проставляет поля, которые хранилище заполняет само
func prepareProducts(providerID string, products []models.Product, now time.Time) ([]models.Product, error) {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		p.ProviderID = providerID
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.Currency == "" {
			p.Currency = models.DefaultCurrency
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		out = append(out, p)
	}
	return out, nil
}
