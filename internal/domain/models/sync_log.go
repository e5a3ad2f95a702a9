package models

import "time"

// SyncAction тип операции в журнале
type SyncAction string

const (
	// ActionDownload скачивание каталога у поставщика
	ActionDownload SyncAction = "download"
	// ActionUpload публикация товаров поставщика в хаб
	ActionUpload SyncAction = "upload"
)

// SyncOutcome результат операции
type SyncOutcome string

const (
	OutcomePending SyncOutcome = "pending"
	OutcomeSuccess SyncOutcome = "success"
	OutcomeError   SyncOutcome = "error"
)

// SyncLogEntry неизменяемая запись журнала активности
type SyncLogEntry struct {
	ID               string      `json:"id"`
	ProviderID       string      `json:"provider_id"`
	Action           SyncAction  `json:"action"`
	Outcome          SyncOutcome `json:"status"`
	Message          string      `json:"message"`
	ProductsAffected int         `json:"products_affected"`
	CreatedAt        time.Time   `json:"created_at"`
}

// NewSyncLogEntry запись журнала без идентификатора и времени,
// их назначает хранилище при добавлении
type NewSyncLogEntry struct {
	ProviderID       string
	Action           SyncAction
	Outcome          SyncOutcome
	Message          string
	ProductsAffected int
}
