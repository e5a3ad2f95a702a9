package remote

import (
	"context"
	"sync"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
)

// Static детерминированная реализация Fetcher и Publisher для тестов:
// фиксированные результаты, очередь ошибок, запись вызовов
type Static struct {
	mu sync.Mutex

	fetchResult   FetchResult
	publishResult *PublishResult
	fetchErrs     []error
	publishErrs   []error
	// delay задержка перед ответом, уважает контекст
	delay time.Duration
	// gate если задан, вызов ждет значения из канала
	gate chan struct{}

	fetchCalls   []string
	publishCalls []PublishCall
}

// PublishCall записанный вызов PublishToHub
type PublishCall struct {
	ProviderID string
	Products   []models.Product
}

func NewStatic(fetch FetchResult) *Static {
	return &Static{fetchResult: fetch}
}

// WithPublishCount фиксирует счетчик публикации. По умолчанию это число переданных товаров.
func (s *Static) WithPublishCount(n int) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishResult = &PublishResult{Count: n}
	return s
}

// WithDelay задает задержку ответа
func (s *Static) WithDelay(d time.Duration) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	return s
}

// WithGate заставляет каждый вызов ждать сигнала из gate
func (s *Static) WithGate(gate chan struct{}) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = gate
	return s
}

// FailFetch ставит в очередь ошибку для следующего FetchFromProvider
func (s *Static) FailFetch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErrs = append(s.fetchErrs, err)
}

// FailPublish ставит в очередь ошибку для следующего PublishToHub
func (s *Static) FailPublish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishErrs = append(s.publishErrs, err)
}

// FetchCalls id поставщиков в порядке вызова
func (s *Static) FetchCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetchCalls...)
}

// PublishCalls вызовы публикации в порядке поступления
func (s *Static) PublishCalls() []PublishCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PublishCall(nil), s.publishCalls...)
}

func (s *Static) block(ctx context.Context, op string) error {
	s.mu.Lock()
	delay, gate := s.delay, s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctxError(op, ctx.Err())
		}
	}
	return wait(ctx, op, delay)
}

func (s *Static) FetchFromProvider(ctx context.Context, provider models.Provider) (FetchResult, error) {
	s.mu.Lock()
	s.fetchCalls = append(s.fetchCalls, provider.ID)
	var err error
	if len(s.fetchErrs) > 0 {
		err, s.fetchErrs = s.fetchErrs[0], s.fetchErrs[1:]
	}
	result := s.fetchResult
	s.mu.Unlock()

	if blockErr := s.block(ctx, OpFetch); blockErr != nil {
		return FetchResult{}, blockErr
	}
	if err != nil {
		return FetchResult{}, err
	}
	result.Products = append([]models.Product(nil), result.Products...)
	return result, nil
}

func (s *Static) PublishToHub(ctx context.Context, providerID string, products []models.Product) (PublishResult, error) {
	s.mu.Lock()
	s.publishCalls = append(s.publishCalls, PublishCall{
		ProviderID: providerID,
		Products:   append([]models.Product(nil), products...),
	})
	var err error
	if len(s.publishErrs) > 0 {
		err, s.publishErrs = s.publishErrs[0], s.publishErrs[1:]
	}
	fixed := s.publishResult
	s.mu.Unlock()

	if blockErr := s.block(ctx, OpPublish); blockErr != nil {
		return PublishResult{}, blockErr
	}
	if err != nil {
		return PublishResult{}, err
	}
	if fixed != nil {
		return *fixed, nil
	}
	return PublishResult{Count: len(products)}, nil
}

var (
	_ Fetcher   = (*Static)(nil)
	_ Publisher = (*Static)(nil)
)
