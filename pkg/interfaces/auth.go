package interfaces

import (
	"context"
)

// Claims данные пользователя из проверенного токена
type Claims struct {
	Subject  string   `json:"sub"`
	Username string   `json:"preferred_username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// AuthPort определяет интерфейс для работы с аутентификацией
type AuthPort interface {
	// ValidateToken проверяет токен и возвращает claims
	ValidateToken(ctx context.Context, token string) (*Claims, error)

	// HasRole проверяет наличие роли у пользователя
	HasRole(claims *Claims, role string) bool

	// HasAnyRole проверяет наличие хотя бы одной роли из списка
	HasAnyRole(claims *Claims, roles ...string) bool
}
