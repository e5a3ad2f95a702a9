package interfaces

import (
	"context"
	"time"
)

// Message представляет сообщение, полученное из брокера
type Message struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic"`
	Key         string            `json:"key"`
	Value       []byte            `json:"value"`
	Headers     map[string]string `json:"headers"`
	PublishedAt time.Time         `json:"published_at"`
}

// MessageHandler определяет функцию обработчика сообщений
type MessageHandler func(ctx context.Context, msg *Message) error

// MessagingPort интерфейс брокера сообщений
type MessagingPort interface {
	// Publish отправляет сообщение в топик
	Publish(ctx context.Context, topic string, message []byte) error

	// Subscribe подписывает обработчик на топик, возвращает функцию отписки
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (func() error, error)

	Close() error
}
