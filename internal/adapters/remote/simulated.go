package remote

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
)

// Диапазоны случайных счетчиков имитации
const (
	simFetchMin    = 100
	simFetchSpan   = 500
	simPublishMin  = 50
	simPublishSpan = 300
	// simMaxProducts сколько синтетических товаров генерируется за одну выгрузку
	simMaxProducts = 25
)

var simCategories = []string{"Laptops", "Monitores", "Almacenamiento", "Redes", "Accesorios"}
var simBrands = []string{"Lenovo", "HP", "Dell", "Acer", "Logitech"}

// SimulatedOptions параметры имитации
type SimulatedOptions struct {
	FetchDelay   time.Duration
	PublishDelay time.Duration
	// FailureRate вероятность отказа вызова, 0 - никогда
	FailureRate float64
	// Seed ноль означает seed от текущего времени
	Seed int64
}

// Simulated имитирует API поставщиков и хаба: задержка и случайный результат
type Simulated struct {
	opts SimulatedOptions

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulated(opts SimulatedOptions) *Simulated {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulated{
		opts: opts,
		rnd:  rand.New(rand.NewSource(seed)),
	}
}

func (s *Simulated) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

func (s *Simulated) fails() bool {
	if s.opts.FailureRate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() < s.opts.FailureRate
}

// wait ждет delay или отмены контекста
func wait(ctx context.Context, op string, delay time.Duration) error {
	if delay <= 0 {
		if err := ctx.Err(); err != nil {
			return ctxError(op, err)
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctxError(op, ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (s *Simulated) FetchFromProvider(ctx context.Context, provider models.Provider) (FetchResult, error) {
	if err := wait(ctx, OpFetch, s.opts.FetchDelay); err != nil {
		return FetchResult{}, err
	}
	if s.fails() {
		return FetchResult{}, models.NewRemoteError(models.RemoteUnknown, OpFetch,
			fmt.Errorf("provider %s did not answer", provider.ID))
	}

	count := simFetchMin + s.intn(simFetchSpan)
	n := count
	if n > simMaxProducts {
		n = simMaxProducts
	}

	// SKU уникальны в пределах выгрузки
	base := s.intn(90000)
	products := make([]models.Product, 0, n)
	for i := 0; i < n; i++ {
		products = append(products, models.Product{
			SKU:      fmt.Sprintf("%s-%05d", provider.Slug, base+i),
			Name:     fmt.Sprintf("%s %s #%d", simBrands[i%len(simBrands)], simCategories[i%len(simCategories)], i+1),
			Brand:    simBrands[i%len(simBrands)],
			Category: simCategories[i%len(simCategories)],
			Price:    float64(199+s.intn(30000)) + 0.99,
			Currency: models.DefaultCurrency,
			Stock:    s.intn(200),
			Metadata: map[string]interface{}{"source": "simulated"},
		})
	}

	return FetchResult{Count: count, Products: products}, nil
}

func (s *Simulated) PublishToHub(ctx context.Context, providerID string, products []models.Product) (PublishResult, error) {
	if err := wait(ctx, OpPublish, s.opts.PublishDelay); err != nil {
		return PublishResult{}, err
	}
	if s.fails() {
		return PublishResult{}, models.NewRemoteError(models.RemoteRejected, OpPublish,
			errors.New("hub rejected the batch"))
	}

	if len(products) > 0 {
		return PublishResult{Count: len(products)}, nil
	}
	return PublishResult{Count: simPublishMin + s.intn(simPublishSpan)}, nil
}

var (
	_ Fetcher   = (*Simulated)(nil)
	_ Publisher = (*Simulated)(nil)
)
