package auth

import "github.com/FerDeNetlab/auramarket/pkg/interfaces"

// Роли панели управления
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// HasRole проверяет наличие роли в claims
func HasRole(claims *interfaces.Claims, role string) bool {
	if claims == nil {
		return false
	}
	for _, r := range claims.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole проверяет наличие хотя бы одной роли из списка
func HasAnyRole(claims *interfaces.Claims, roles ...string) bool {
	for _, role := range roles {
		if HasRole(claims, role) {
			return true
		}
	}
	return false
}
