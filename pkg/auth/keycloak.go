package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
)

// KeycloakConfig конфигурация для Keycloak
type KeycloakConfig struct {
	ServerURL    string
	Realm        string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// KeycloakClaims claims из токена Keycloak
type KeycloakClaims struct {
	UserID      string `json:"sub"`
	Username    string `json:"preferred_username"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
}

// toClaims сводит роли realm и клиента в общий список
func (c *KeycloakClaims) toClaims(clientID string) *interfaces.Claims {
	roles := append([]string{}, c.RealmAccess.Roles...)
	if clientRoles, ok := c.ResourceAccess[clientID]; ok {
		roles = append(roles, clientRoles.Roles...)
	}
	return &interfaces.Claims{
		Subject:  c.UserID,
		Username: c.Username,
		Email:    c.Email,
		Roles:    roles,
	}
}

// KeycloakClient клиент для работы с Keycloak, реализует interfaces.AuthPort
type KeycloakClient struct {
	provider     *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
	tokenCache   *cache.Cache
	clientID     string
}

// NewKeycloakClient создает новый клиент Keycloak
func NewKeycloakClient(ctx context.Context, cfg KeycloakConfig) (*KeycloakClient, error) {
	providerURL := fmt.Sprintf("%s/realms/%s", cfg.ServerURL, cfg.Realm)

	provider, err := oidc.NewProvider(ctx, providerURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания OIDC провайдера: %w", err)
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	return &KeycloakClient{
		provider:     provider,
		verifier:     verifier,
		oauth2Config: oauth2Config,
		tokenCache:   cache.New(5*time.Minute, 10*time.Minute),
		clientID:     cfg.ClientID,
	}, nil
}

// ValidateToken проверяет токен и возвращает claims.
// Проверенные токены кэшируются до истечения срока действия.
func (k *KeycloakClient) ValidateToken(ctx context.Context, tokenString string) (*interfaces.Claims, error) {
	if cached, found := k.tokenCache.Get(tokenString); found {
		return cached.(*interfaces.Claims), nil
	}

	idToken, err := k.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("ошибка верификации токена: %w", err)
	}

	var kc KeycloakClaims
	if err := idToken.Claims(&kc); err != nil {
		return nil, fmt.Errorf("ошибка извлечения claims: %w", err)
	}

	claims := kc.toClaims(k.clientID)
	if expiresIn := time.Until(idToken.Expiry); expiresIn > 0 {
		k.tokenCache.Set(tokenString, claims, expiresIn)
	}

	return claims, nil
}

// HasRole проверяет наличие роли у пользователя
func (k *KeycloakClient) HasRole(claims *interfaces.Claims, role string) bool {
	return HasRole(claims, role)
}

// HasAnyRole проверяет наличие хотя бы одной роли из списка
func (k *KeycloakClient) HasAnyRole(claims *interfaces.Claims, roles ...string) bool {
	return HasAnyRole(claims, roles...)
}

// GetAuthURL возвращает URL для входа пользователя
func (k *KeycloakClient) GetAuthURL(state string) string {
	return k.oauth2Config.AuthCodeURL(state)
}

// ExchangeCode обменивает код авторизации на токены
func (k *KeycloakClient) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return k.oauth2Config.Exchange(ctx, code)
}
