package auth

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/FerDeNetlab/auramarket/pkg/errors"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
)

type claimsKeyType struct{}

var claimsKey = claimsKeyType{}

// ClaimsFromContext возвращает claims, положенные AuthMiddleware
func ClaimsFromContext(ctx context.Context) (*interfaces.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*interfaces.Claims)
	return claims, ok
}

// WithClaims кладет claims в контекст
func WithClaims(ctx context.Context, claims *interfaces.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// AuthMiddleware промежуточное ПО для проверки bearer токенов
func AuthMiddleware(ap interfaces.AuthPort, logger interfaces.LoggerPort) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}

			claims, err := ap.ValidateToken(r.Context(), parts[1])
			if err != nil {
				logger.WarnWithContext(r.Context(), "Невалидный токен", "error", err.Error())
				http.Error(w, apperrors.ErrUnauthorized.Error(), http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAnyRole проверяет наличие хотя бы одной роли из списка
func RequireAnyRole(ap interfaces.AuthPort, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, apperrors.ErrUnauthorized.Error(), http.StatusUnauthorized)
				return
			}

			if !ap.HasAnyRole(claims, roles...) {
				http.Error(w, apperrors.ErrForbidden.Error(), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
