package remote

import (
	"context"
	"errors"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
)

// Имена операций, попадают в RemoteError.Op
const (
	OpFetch   = "fetch_provider"
	OpPublish = "publish_hub"
)

// FetchResult результат скачивания каталога поставщика
type FetchResult struct {
	// Count сколько товаров сообщил поставщик
	Count int
	// Products сами товары, может быть пустым, если API отдает только счетчик
	Products []models.Product
}

// PublishResult результат публикации в хаб
type PublishResult struct {
	Count int
}

// Fetcher скачивает каталог у поставщика
type Fetcher interface {
	FetchFromProvider(ctx context.Context, provider models.Provider) (FetchResult, error)
}

// Publisher отправляет товары поставщика в хаб
type Publisher interface {
	PublishToHub(ctx context.Context, providerID string, products []models.Product) (PublishResult, error)
}

// ctxError переводит ошибку контекста в RemoteError
func ctxError(op string, err error) *models.RemoteError {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewRemoteError(models.RemoteTimeout, op, err)
	}
	return models.NewRemoteError(models.RemoteUnknown, op, err)
}
