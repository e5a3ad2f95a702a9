package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	"github.com/google/uuid"
)

// MemoryBus синхронный брокер в памяти процесса.
// Обработчики вызываются в горутине публикующего, опубликованные сообщения сохраняются.
type MemoryBus struct {
	mu        sync.RWMutex
	handlers  map[string]map[string]interfaces.MessageHandler
	published []*interfaces.Message
	closed    bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string]map[string]interfaces.MessageHandler)}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, message []byte) error {
	return b.PublishWithKey(ctx, topic, "", message, nil)
}

func (b *MemoryBus) PublishWithKey(ctx context.Context, topic, key string, message []byte, headers map[string]string) error {
	msg := &interfaces.Message{
		ID:          uuid.New().String(),
		Topic:       topic,
		Key:         key,
		Value:       append([]byte(nil), message...),
		Headers:     headers,
		PublishedAt: time.Now(),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return context.Canceled
	}
	b.published = append(b.published, msg)
	handlers := make([]interfaces.MessageHandler, 0, len(b.handlers[topic]))
	for _, h := range b.handlers[topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		if err := h(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string, handler interfaces.MessageHandler) (func() error, error) {
	id := uuid.New().String()

	b.mu.Lock()
	if _, ok := b.handlers[topic]; !ok {
		b.handlers[topic] = make(map[string]interfaces.MessageHandler)
	}
	b.handlers[topic][id] = handler
	b.mu.Unlock()

	return func() error {
		b.mu.Lock()
		delete(b.handlers[topic], id)
		b.mu.Unlock()
		return nil
	}, nil
}

// Published возвращает копию сообщений, отправленных в топик
func (b *MemoryBus) Published(topic string) []*interfaces.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*interfaces.Message
	for _, msg := range b.published {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.handlers = make(map[string]map[string]interfaces.MessageHandler)
	b.mu.Unlock()
	return nil
}

var (
	_ interfaces.MessagingPort = (*MemoryBus)(nil)
	_ KeyedPublisher           = (*MemoryBus)(nil)
)
