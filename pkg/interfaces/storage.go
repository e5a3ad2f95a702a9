package interfaces

import (
	"context"
)

// HealthPort реализуют внешние зависимости, которые проверяет /ready
type HealthPort interface {
	// Ping проверяет доступность зависимости
	Ping(ctx context.Context) error

	// Close закрывает соединение
	Close() error
}
