package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Драйверы хранилища
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Режимы аутентификации
const (
	AuthNone = "none"
	AuthJWT  = "jwt"
	AuthOIDC = "oidc"
)

// Допустимый диапазон емкости журнала активности
const (
	MinLogCapacity = 50
	MaxLogCapacity = 100
)

// Config содержит все настройки сервиса
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string

	Server struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		// RequestTimeout верхняя граница обработки запроса, включая синхронизацию
		RequestTimeout time.Duration
	}

	Storage struct {
		Driver string
		// Seed заполнить пустое хранилище демонстрационными поставщиками и маркетплейсами
		Seed bool
	}

	Postgres struct {
		Host     string
		Port     int
		User     string
		Password string
		DBName   string
		SSLMode  string
		Timeout  time.Duration
		PoolSize int // размер пула соединений
		Migrate  bool
	}

	SQLite struct {
		Path string
	}

	Redis struct {
		Enabled           bool
		Host              string
		Port              int
		Password          string
		DB                int
		PoolSize          int
		MinIdleConns      int
		ConnectTimeout    time.Duration
		ReadTimeout       time.Duration
		WriteTimeout      time.Duration
		PoolTimeout       time.Duration
		IdleTimeout       time.Duration
		MaxRetries        int
		DefaultExpiration time.Duration // срок действия кэша по умолчанию
	}

	Kafka struct {
		Enabled         bool
		Brokers         []string
		GroupID         string
		CommandTopic    string
		ActivityTopic   string
		AutoOffsetReset string
		SessionTimeout  time.Duration
	}

	Metrics struct {
		Enabled     bool
		ServiceName string
		Endpoint    string
	}

	Auth struct {
		Mode      string
		JWTSecret string
		// JWTIssuer если задан, проверяется claim iss
		JWTIssuer string
		Keycloak  KeycloakConfig
	}

	Sync struct {
		OperationTimeout time.Duration
		LogCapacity      int
		HubName          string
		HubURL           string
		HubAPIKey        string
		// Simulated имитировать API поставщиков и хаба вместо HTTP
		Simulated    bool
		FetchDelay   time.Duration
		PublishDelay time.Duration
		FailureRate  float64
	}

	Scheduler struct {
		SyncInterval    time.Duration
		PublishInterval time.Duration
	}

	Security struct {
		CORSAllowOrigins []string
	}
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	configFile := "config"
	if configPath != "" {
		configFile = configPath
	}

	var cfg Config

	v := viper.New()
	v.SetConfigName(configFile)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		// файла нет, работаем на значениях по умолчанию и переменных окружения
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка десериализации конфигурации: %w", err)
	}

	if cfg.ENV == "" {
		cfg.ENV = "development"
		if envVar := os.Getenv("APP_ENV"); envVar != "" {
			cfg.ENV = envVar
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Storage.Driver == DriverSQLite && c.SQLite.Path == "" {
		return errors.New("sqlite path is empty")
	}

	switch c.Auth.Mode {
	case AuthNone:
	case AuthJWT:
		if c.Auth.JWTSecret == "" {
			return errors.New("auth mode jwt requires jwtSecret")
		}
	case AuthOIDC:
		if c.Auth.Keycloak.ServerURL == "" || c.Auth.Keycloak.Realm == "" || c.Auth.Keycloak.ClientID == "" {
			return errors.New("auth mode oidc requires keycloak serverUrl, realm and clientId")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Auth.Mode)
	}

	if c.Sync.OperationTimeout <= 0 {
		return fmt.Errorf("sync operation timeout must be positive, got %s", c.Sync.OperationTimeout)
	}

	if c.Sync.LogCapacity < MinLogCapacity || c.Sync.LogCapacity > MaxLogCapacity {
		return fmt.Errorf("sync log capacity must be in [%d, %d], got %d",
			MinLogCapacity, MaxLogCapacity, c.Sync.LogCapacity)
	}

	if c.Sync.FailureRate < 0 || c.Sync.FailureRate > 1 {
		return fmt.Errorf("sync failure rate must be in [0, 1], got %v", c.Sync.FailureRate)
	}

	if !c.Sync.Simulated && c.Sync.HubURL == "" {
		return errors.New("sync hubUrl is required when simulation is disabled")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka enabled without brokers")
	}

	return nil
}

// Addr адрес HTTP сервера
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "aura-hub")
	v.SetDefault("version", "1.0.0")
	v.SetDefault("logLevel", "info")
	v.SetDefault("env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "60s")
	v.SetDefault("server.shutdownTimeout", "10s")
	v.SetDefault("server.requestTimeout", "45s")

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.seed", true)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "aura")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timeout", "5s")
	v.SetDefault("postgres.poolSize", 10)
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("sqlite.path", "aura.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.connectTimeout", "1s")
	v.SetDefault("redis.readTimeout", "1s")
	v.SetDefault("redis.writeTimeout", "1s")
	v.SetDefault("redis.poolTimeout", "4s")
	v.SetDefault("redis.idleTimeout", "300s")
	v.SetDefault("redis.maxRetries", 3)
	v.SetDefault("redis.defaultExpiration", "1m")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.groupID", "aura-hub")
	v.SetDefault("kafka.commandTopic", "hub.commands")
	v.SetDefault("kafka.activityTopic", "hub.activity")
	v.SetDefault("kafka.autoOffsetReset", "latest")
	v.SetDefault("kafka.sessionTimeout", "10s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.serviceName", "aura-hub")
	v.SetDefault("metrics.endpoint", "/metrics")

	v.SetDefault("auth.mode", AuthNone)
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.jwtIssuer", "")
	v.SetDefault("auth.keycloak.serverUrl", "")
	v.SetDefault("auth.keycloak.realm", "")
	v.SetDefault("auth.keycloak.clientId", "")
	v.SetDefault("auth.keycloak.clientSecret", "")
	v.SetDefault("auth.keycloak.redirectUrl", "")

	v.SetDefault("sync.operationTimeout", "30s")
	v.SetDefault("sync.logCapacity", MaxLogCapacity)
	v.SetDefault("sync.hubName", "AutoAzur")
	v.SetDefault("sync.hubUrl", "")
	v.SetDefault("sync.hubApiKey", "")
	v.SetDefault("sync.simulated", true)
	v.SetDefault("sync.fetchDelay", "2s")
	v.SetDefault("sync.publishDelay", "3s")
	v.SetDefault("sync.failureRate", 0.0)

	v.SetDefault("scheduler.syncInterval", "15m")
	v.SetDefault("scheduler.publishInterval", "30m")

	v.SetDefault("security.corsAllowOrigins", []string{"*"})
}

// bindEnvVariables привязывает переменные окружения к конфигурации
func bindEnvVariables(v *viper.Viper) {
	bind := func(key, env string) {
		_ = v.BindEnv(key, env)
	}

	bind("appName", "APP_NAME")
	bind("version", "APP_VERSION")
	bind("logLevel", "LOG_LEVEL")
	bind("env", "APP_ENV")

	bind("server.host", "SERVER_HOST")
	bind("server.port", "SERVER_PORT")
	bind("server.readTimeout", "SERVER_READ_TIMEOUT")
	bind("server.writeTimeout", "SERVER_WRITE_TIMEOUT")
	bind("server.shutdownTimeout", "SERVER_SHUTDOWN_TIMEOUT")
	bind("server.requestTimeout", "SERVER_REQUEST_TIMEOUT")

	bind("storage.driver", "STORAGE_DRIVER")
	bind("storage.seed", "STORAGE_SEED")

	bind("postgres.host", "POSTGRES_HOST")
	bind("postgres.port", "POSTGRES_PORT")
	bind("postgres.user", "POSTGRES_USER")
	bind("postgres.password", "POSTGRES_PASSWORD")
	bind("postgres.dbname", "POSTGRES_DBNAME")
	bind("postgres.sslmode", "POSTGRES_SSLMODE")
	bind("postgres.timeout", "POSTGRES_TIMEOUT")
	bind("postgres.poolSize", "POSTGRES_POOL_SIZE")
	bind("postgres.migrate", "POSTGRES_MIGRATE")

	bind("sqlite.path", "SQLITE_PATH")

	bind("redis.enabled", "REDIS_ENABLED")
	bind("redis.host", "REDIS_HOST")
	bind("redis.port", "REDIS_PORT")
	bind("redis.password", "REDIS_PASSWORD")
	bind("redis.db", "REDIS_DB")
	bind("redis.defaultExpiration", "REDIS_DEFAULT_EXPIRATION")

	bind("kafka.enabled", "KAFKA_ENABLED")
	bind("kafka.brokers", "KAFKA_BROKERS")
	bind("kafka.groupID", "KAFKA_GROUP_ID")
	bind("kafka.commandTopic", "KAFKA_COMMAND_TOPIC")
	bind("kafka.activityTopic", "KAFKA_ACTIVITY_TOPIC")

	bind("metrics.enabled", "METRICS_ENABLED")

	bind("auth.mode", "AUTH_MODE")
	bind("auth.jwtSecret", "JWT_SECRET")
	bind("auth.jwtIssuer", "JWT_ISSUER")
	bind("auth.keycloak.serverUrl", "KEYCLOAK_SERVER_URL")
	bind("auth.keycloak.realm", "KEYCLOAK_REALM")
	bind("auth.keycloak.clientId", "KEYCLOAK_CLIENT_ID")
	bind("auth.keycloak.clientSecret", "KEYCLOAK_CLIENT_SECRET")
	bind("auth.keycloak.redirectUrl", "KEYCLOAK_REDIRECT_URL")

	bind("sync.operationTimeout", "SYNC_OPERATION_TIMEOUT")
	bind("sync.logCapacity", "SYNC_LOG_CAPACITY")
	bind("sync.hubName", "SYNC_HUB_NAME")
	bind("sync.hubUrl", "SYNC_HUB_URL")
	bind("sync.hubApiKey", "SYNC_HUB_API_KEY")
	bind("sync.simulated", "SYNC_SIMULATED")
	bind("sync.fetchDelay", "SYNC_FETCH_DELAY")
	bind("sync.publishDelay", "SYNC_PUBLISH_DELAY")
	bind("sync.failureRate", "SYNC_FAILURE_RATE")

	bind("scheduler.syncInterval", "SCHEDULER_SYNC_INTERVAL")
	bind("scheduler.publishInterval", "SCHEDULER_PUBLISH_INTERVAL")

	bind("security.corsAllowOrigins", "CORS_ALLOW_ORIGINS")
}
