package config

import (
	"github.com/FerDeNetlab/auramarket/pkg/auth"
)

// KeycloakConfig настройки Keycloak для режима auth.mode=oidc
type KeycloakConfig struct {
	ServerURL    string `mapstructure:"serverUrl"`
	Realm        string `mapstructure:"realm"`
	ClientID     string `mapstructure:"clientId"`
	ClientSecret string `mapstructure:"clientSecret"`
	RedirectURL  string `mapstructure:"redirectUrl"`
}

// GetKeycloakConfig возвращает конфигурацию для auth.KeycloakClient
func (k *KeycloakConfig) GetKeycloakConfig() auth.KeycloakConfig {
	return auth.KeycloakConfig{
		ServerURL:    k.ServerURL,
		Realm:        k.Realm,
		ClientID:     k.ClientID,
		ClientSecret: k.ClientSecret,
		RedirectURL:  k.RedirectURL,
	}
}
