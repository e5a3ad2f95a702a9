package messaging

import (
	"context"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	pkgmodels "github.com/FerDeNetlab/auramarket/pkg/models"
)

// ActivityPublisher транслирует записи журнала и статус хаба в топик активности
type ActivityPublisher struct {
	mp    interfaces.MessagingPort
	topic string
}

// NewActivityPublisher пустой topic означает DefaultActivityTopic
func NewActivityPublisher(mp interfaces.MessagingPort, topic string) *ActivityPublisher {
	if topic == "" {
		topic = DefaultActivityTopic
	}
	return &ActivityPublisher{mp: mp, topic: topic}
}

// ActivityLogged публикует запись журнала, ключ - id поставщика
func (p *ActivityPublisher) ActivityLogged(ctx context.Context, entry models.SyncLogEntry) error {
	event := pkgmodels.ActivityEvent{
		EntryID:          entry.ID,
		ProviderID:       entry.ProviderID,
		Action:           string(entry.Action),
		Status:           string(entry.Outcome),
		Message:          entry.Message,
		ProductsAffected: entry.ProductsAffected,
		OccurredAt:       entry.CreatedAt,
	}
	return PublishJSON(ctx, p.mp, p.topic, entry.ProviderID, ActivityLoggedEvent, event)
}

// HubStatusChanged публикует новый статус хаба, ключ - имя хаба
func (p *ActivityPublisher) HubStatusChanged(ctx context.Context, hub models.HubConnection) error {
	event := pkgmodels.HubStatusEvent{
		Hub:        hub.Name,
		Status:     string(hub.Status),
		OccurredAt: hub.UpdatedAt,
	}
	return PublishJSON(ctx, p.mp, p.topic, hub.Name, HubStatusChangedEvent, event)
}
