package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CommandType тип команды для хаба
type CommandType string

const (
	CommandSyncProvider   CommandType = "sync_provider"
	CommandUploadProvider CommandType = "upload_provider"
	CommandSyncAll        CommandType = "sync_all"
	CommandPublishAll     CommandType = "publish_all"
	CommandRefresh        CommandType = "refresh"
)

// HubCommand команда, которую планировщик или внешние системы кладут в топик hub.commands
type HubCommand struct {
	ID          string      `json:"id"`
	Type        CommandType `json:"type"`
	ProviderID  string      `json:"provider_id,omitempty"`
	RequestedBy string      `json:"requested_by,omitempty"`
	RequestedAt time.Time   `json:"requested_at"`
}

// Validate проверяет, что команда исполнима
func (c *HubCommand) Validate() error {
	switch c.Type {
	case CommandSyncProvider, CommandUploadProvider:
		if c.ProviderID == "" {
			return fmt.Errorf("command %s requires provider_id", c.Type)
		}
	case CommandSyncAll, CommandPublishAll, CommandRefresh:
	case "":
		return errors.New("command type is empty")
	default:
		return fmt.Errorf("unknown command type %q", c.Type)
	}
	return nil
}

// DecodeHubCommand разбирает и проверяет команду из сообщения
func DecodeHubCommand(raw []byte) (*HubCommand, error) {
	var cmd HubCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil, fmt.Errorf("failed to decode hub command: %w", err)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// ActivityEvent событие в топике hub.activity, по одному на запись журнала
type ActivityEvent struct {
	EntryID          string    `json:"entry_id"`
	ProviderID       string    `json:"provider_id"`
	Action           string    `json:"action"`
	Status           string    `json:"status"`
	Message          string    `json:"message"`
	ProductsAffected int       `json:"products_affected"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// HubStatusEvent изменение статуса подключения к хабу
type HubStatusEvent struct {
	Hub        string    `json:"hub"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}
