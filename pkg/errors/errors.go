package errors

import "errors"

var (
	// ErrCacheMiss значение отсутствует в кэше
	ErrCacheMiss = errors.New("cache miss")

	// ErrUnauthorized токен отсутствует или не прошел проверку
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden у пользователя нет нужной роли
	ErrForbidden = errors.New("forbidden")
)
