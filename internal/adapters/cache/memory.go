package cache

import (
	"context"
	"path"
	"time"

	cacheerrors "github.com/FerDeNetlab/auramarket/pkg/errors"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache CachePort в памяти процесса, используется когда Redis выключен
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache создает кэш с временем жизни по умолчанию и периодом очистки
func NewMemoryCache(defaultExpiration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultExpiration, cleanupInterval)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := m.store.Get(key)
	if !ok {
		return nil, cacheerrors.ErrCacheMiss
	}
	return val.([]byte), nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration == 0 {
		expiration = gocache.NoExpiration
	}
	m.store.Set(key, value, expiration)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// DeleteByPattern поддерживает glob-шаблоны в духе Redis (*, ?, [...])
func (m *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range m.store.Items() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return err
		}
		if matched {
			m.store.Delete(key)
		}
	}
	return nil
}

func (m *MemoryCache) Close() error {
	m.store.Flush()
	return nil
}

var _ interfaces.CachePort = (*MemoryCache)(nil)
