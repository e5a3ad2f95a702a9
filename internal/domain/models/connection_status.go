package models

import "fmt"

// ConnectionStatus состояние подключения поставщика, маркетплейса или хаба
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnected    ConnectionStatus = "connected"
	StatusSyncing      ConnectionStatus = "syncing"
	StatusError        ConnectionStatus = "error"
)

// IsValid проверяет, что статус входит в перечисление
func (s ConnectionStatus) IsValid() bool {
	switch s {
	case StatusDisconnected, StatusConnected, StatusSyncing, StatusError:
		return true
	}
	return false
}

// CanStartOperation сообщает, можно ли из этого статуса перейти в syncing.
// Из syncing переход запрещен: в полете может быть только одна операция.
func (s ConnectionStatus) CanStartOperation() bool {
	return s == StatusDisconnected || s == StatusConnected || s == StatusError
}

// ParseConnectionStatus преобразует строку из хранилища в ConnectionStatus
func ParseConnectionStatus(raw string) (ConnectionStatus, error) {
	s := ConnectionStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown connection status %q", raw)
	}
	return s, nil
}
