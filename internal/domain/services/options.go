package services

import (
	"context"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/FerDeNetlab/auramarket/internal/metrics"
)

// DefaultOperationTimeout дедлайн удаленного вызова по умолчанию
const DefaultOperationTimeout = 30 * time.Second

// DefaultHubName имя хаба, через который идет публикация
const DefaultHubName = "AutoAzur"

// EventPublisher получает события оркестратора, например для Kafka
type EventPublisher interface {
	ActivityLogged(ctx context.Context, entry models.SyncLogEntry) error
	HubStatusChanged(ctx context.Context, hub models.HubConnection) error
}

// Option настройка Orchestrator
type Option func(*Orchestrator)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithOperationTimeout дедлайн удаленного вызова, неположительное значение игнорируется
func WithOperationTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithMetrics(m *metrics.SyncMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithEventPublisher(p EventPublisher) Option {
	return func(o *Orchestrator) {
		o.events = p
	}
}

func WithHubName(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.hubName = name
		}
	}
}
