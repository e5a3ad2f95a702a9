package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.True(t, cfg.Storage.Seed)
	assert.Equal(t, AuthNone, cfg.Auth.Mode)
	assert.Equal(t, 30*time.Second, cfg.Sync.OperationTimeout)
	assert.Equal(t, MaxLogCapacity, cfg.Sync.LogCapacity)
	assert.Equal(t, "AutoAzur", cfg.Sync.HubName)
	assert.True(t, cfg.Sync.Simulated)
	assert.Equal(t, "hub.commands", cfg.Kafka.CommandTopic)
	assert.Equal(t, "hub.activity", cfg.Kafka.ActivityTopic)
	assert.Equal(t, "/metrics", cfg.Metrics.Endpoint)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", DriverSQLite)
	t.Setenv("SQLITE_PATH", "/tmp/aura-test.db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/aura-test.db", cfg.SQLite.Path)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := Load("")
	assert.Error(t, err)
}

func validConfig() Config {
	var cfg Config
	cfg.Storage.Driver = DriverMemory
	cfg.Auth.Mode = AuthNone
	cfg.Sync.OperationTimeout = 30 * time.Second
	cfg.Sync.LogCapacity = MaxLogCapacity
	cfg.Sync.Simulated = true
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mongo" }, wantErr: true},
		{name: "sqlite without path", mutate: func(c *Config) { c.Storage.Driver = DriverSQLite }, wantErr: true},
		{name: "sqlite with path", mutate: func(c *Config) {
			c.Storage.Driver = DriverSQLite
			c.SQLite.Path = "aura.db"
		}},
		{name: "jwt without secret", mutate: func(c *Config) { c.Auth.Mode = AuthJWT }, wantErr: true},
		{name: "jwt with secret", mutate: func(c *Config) {
			c.Auth.Mode = AuthJWT
			c.Auth.JWTSecret = "secret"
		}},
		{name: "oidc without realm", mutate: func(c *Config) {
			c.Auth.Mode = AuthOIDC
			c.Auth.Keycloak.ServerURL = "http://keycloak"
			c.Auth.Keycloak.ClientID = "aura"
		}, wantErr: true},
		{name: "unknown auth mode", mutate: func(c *Config) { c.Auth.Mode = "basic" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Sync.OperationTimeout = 0 }, wantErr: true},
		{name: "log capacity below range", mutate: func(c *Config) { c.Sync.LogCapacity = MinLogCapacity - 1 }, wantErr: true},
		{name: "log capacity above range", mutate: func(c *Config) { c.Sync.LogCapacity = MaxLogCapacity + 1 }, wantErr: true},
		{name: "log capacity lower bound", mutate: func(c *Config) { c.Sync.LogCapacity = MinLogCapacity }},
		{name: "failure rate above one", mutate: func(c *Config) { c.Sync.FailureRate = 1.5 }, wantErr: true},
		{name: "http remote without hub url", mutate: func(c *Config) { c.Sync.Simulated = false }, wantErr: true},
		{name: "http remote with hub url", mutate: func(c *Config) {
			c.Sync.Simulated = false
			c.Sync.HubURL = "https://hub.example.com"
		}},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Kafka.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestKeycloakConfig_GetKeycloakConfig(t *testing.T) {
	t.Parallel()

	k := KeycloakConfig{
		ServerURL:    "http://keycloak:8080",
		Realm:        "aura",
		ClientID:     "hub",
		ClientSecret: "s3cret",
		RedirectURL:  "http://localhost:8080/auth/callback",
	}
	got := k.GetKeycloakConfig()

	assert.Equal(t, k.ServerURL, got.ServerURL)
	assert.Equal(t, k.Realm, got.Realm)
	assert.Equal(t, k.ClientID, got.ClientID)
	assert.Equal(t, k.ClientSecret, got.ClientSecret)
	assert.Equal(t, k.RedirectURL, got.RedirectURL)
}
