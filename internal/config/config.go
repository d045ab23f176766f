// Package config loads and validates application configuration from files
// and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pgx-risk-server/internal/domain"
)

// Manager implements the domain.ConfigManager interface using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/pgx-risk-server/")

	viper.SetEnvPrefix("PGX_RISK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and environment variables suffice.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.max_upload_bytes", 5*1024*1024)

	// Report store defaults (disabled unless configured)
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "pgx_risk")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_conns", 25)
	viper.SetDefault("database.min_conns", 2)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.conn_max_idle_time", "1m")
	viper.SetDefault("database.migrations_path", "migrations")

	// Explanation service defaults
	viper.SetDefault("explainer.enabled", false)
	viper.SetDefault("explainer.base_url", "")
	viper.SetDefault("explainer.model", "")
	viper.SetDefault("explainer.timeout", "15s")
	viper.SetDefault("explainer.rate_limit", 5)
	viper.SetDefault("explainer.retry_count", 2)

	// Explanation cache defaults
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.default_ttl", "24h")
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")
	viper.SetDefault("cache.memory_size", 256)
	viper.SetDefault("cache.memory_ttl", "30m")

	// Feedback store defaults
	viper.SetDefault("feedback.enabled", true)
	viper.SetDefault("feedback.backend", "sqlite")
	viper.SetDefault("feedback.sqlite_path", "data/feedback.db")
	viper.SetDefault("feedback.postgres_url", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid max upload size: %d", config.Server.MaxUploadBytes)
	}

	if config.Database.Enabled {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required when the report store is enabled")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required when the report store is enabled")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required when the report store is enabled")
		}
	}

	if config.Explainer.Enabled && config.Explainer.BaseURL == "" {
		return fmt.Errorf("explainer base URL is required when the explanation service is enabled")
	}

	if config.Cache.Enabled && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when the explanation cache is enabled")
	}

	if config.Feedback.Enabled {
		switch strings.ToLower(config.Feedback.Backend) {
		case "sqlite":
			if config.Feedback.SQLitePath == "" {
				return fmt.Errorf("sqlite path is required for the sqlite feedback backend")
			}
		case "postgres":
			if config.Feedback.PostgresURL == "" {
				return fmt.Errorf("postgres URL is required for the postgres feedback backend")
			}
		default:
			return fmt.Errorf("invalid feedback backend: %s", config.Feedback.Backend)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseURL returns the report-store connection URL.
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.Username, db.Password, db.Host, db.Port, db.Database, db.SSLMode)
}
