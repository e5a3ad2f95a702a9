package security

import (
	"context"
	"testing"
	"time"

	"github.com/FerDeNetlab/auramarket/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTManager_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewJWTManager("", time.Hour, "aura")
	assert.Error(t, err)
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	t.Parallel()

	m, err := NewJWTManager("secret", time.Hour, "aura")
	require.NoError(t, err)

	token, err := m.Generate("ops-1", []string{auth.RoleOperator})
	require.NoError(t, err)

	claims, err := m.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", claims.Subject)
	assert.Equal(t, []string{auth.RoleOperator}, claims.Roles)
}

func TestJWTManager_Rejects(t *testing.T) {
	t.Parallel()

	m, err := NewJWTManager("secret", time.Hour, "aura")
	require.NoError(t, err)
	expired, err := NewJWTManager("secret", -time.Minute, "aura")
	require.NoError(t, err)
	otherSecret, err := NewJWTManager("other", time.Hour, "aura")
	require.NoError(t, err)
	otherIssuer, err := NewJWTManager("secret", time.Hour, "someone-else")
	require.NoError(t, err)

	expiredToken, err := expired.Generate("u", nil)
	require.NoError(t, err)
	foreignToken, err := otherSecret.Generate("u", nil)
	require.NoError(t, err)
	issuerToken, err := otherIssuer.Generate("u", nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"expired", expiredToken, ErrExpiredToken},
		{"wrong secret", foreignToken, ErrInvalidToken},
		{"wrong issuer", issuerToken, ErrInvalidToken},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := m.ValidateToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestJWTManager_AdminPassesRoleChecks(t *testing.T) {
	t.Parallel()

	m, err := NewJWTManager("secret", time.Hour, "")
	require.NoError(t, err)

	token, err := m.Generate("root", []string{auth.RoleAdmin})
	require.NoError(t, err)
	claims, err := m.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.True(t, m.HasRole(claims, auth.RoleOperator))
	assert.True(t, m.HasAnyRole(claims, auth.RoleViewer, auth.RoleOperator))

	claims.Roles = []string{auth.RoleViewer}
	assert.False(t, m.HasRole(claims, auth.RoleOperator))
	assert.True(t, m.HasAnyRole(claims, auth.RoleOperator, auth.RoleViewer))
}
