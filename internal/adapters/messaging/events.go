package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
)

// Топики по умолчанию
const (
	DefaultCommandTopic  = "hub.commands"
	DefaultActivityTopic = "hub.activity"
)

// Заголовок с типом события внутри топика
const (
	HeaderEventType = "event_type"

	ActivityLoggedEvent   = "activity_logged"
	HubStatusChangedEvent = "hub_status_changed"
	HubCommandIssuedEvent = "hub_command_issued"
)

// KeyedPublisher реализуют брокеры, умеющие задавать ключ и заголовки сообщения
type KeyedPublisher interface {
	PublishWithKey(ctx context.Context, topic, key string, message []byte, headers map[string]string) error
}

// PublishJSON сериализует payload и отправляет его в топик.
// Если брокер поддерживает ключи, key используется для партиционирования.
func PublishJSON(ctx context.Context, mp interfaces.MessagingPort, topic, key, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	if kp, ok := mp.(KeyedPublisher); ok {
		return kp.PublishWithKey(ctx, topic, key, data, map[string]string{HeaderEventType: eventType})
	}
	return mp.Publish(ctx, topic, data)
}
