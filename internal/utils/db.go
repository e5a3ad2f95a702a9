package utils

import (
	"strconv"
	"strings"
	"time"
)

// PostgresDSN параметры подключения к PostgreSQL
type PostgresDSN struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// PoolSize попадает в pool_max_conns, который понимает pgxpool.ParseConfig
	PoolSize int
	Timeout  time.Duration
	// AppName видно в pg_stat_activity
	AppName string
}

// Validate проверяет обязательные поля
func (d PostgresDSN) Validate() error {
	switch {
	case d.Host == "":
		return ErrStorageEmptyHostName
	case d.Port <= 0 || d.Port > 65535:
		return ErrStorageInvalidPortNumber
	case d.User == "":
		return ErrStorageEmptyUsername
	case d.Password == "":
		return ErrStorageEmptyPassword
	case d.DBName == "":
		return ErrStorageInvalidDatabaseName
	case !validSSLMode(d.SSLMode):
		return ErrStorageInvalidSslMode
	case d.Timeout < 0:
		return ErrStorageInvalidTimeout
	case d.PoolSize < 0:
		return ErrStorageInvalidPoolSize
	}
	return nil
}

// String строка в формате keyword/value libpq
func (d PostgresDSN) String() string {
	parts := []string{
		kv("host", d.Host),
		kv("port", strconv.Itoa(d.Port)),
		kv("user", d.User),
		kv("password", d.Password),
		kv("dbname", d.DBName),
		kv("sslmode", d.SSLMode),
	}
	if d.Timeout > 0 {
		// libpq принимает только целые секунды
		secs := int(d.Timeout.Round(time.Second).Seconds())
		if secs < 1 {
			secs = 1
		}
		parts = append(parts, kv("connect_timeout", strconv.Itoa(secs)))
	}
	if d.AppName != "" {
		parts = append(parts, kv("application_name", d.AppName))
	}
	if d.PoolSize > 0 {
		parts = append(parts, kv("pool_max_conns", strconv.Itoa(d.PoolSize)))
	}
	return strings.Join(parts, " ")
}

// GenerateConnectionString проверяет параметры и собирает строку подключения
func GenerateConnectionString(dsn PostgresDSN) (string, error) {
	if err := dsn.Validate(); err != nil {
		return "", err
	}
	return dsn.String(), nil
}

func validSSLMode(mode string) bool {
	switch mode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		return true
	}
	return false
}

// kv экранирует значение по правилам libpq: кавычки при пробелах, \ перед ' и \
func kv(key, value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return key + "=" + value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return key + "='" + escaped + "'"
}
