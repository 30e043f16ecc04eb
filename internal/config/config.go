// Package config provides configuration management for the vitals service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Store      StoreConfig      `koanf:"store"`
	Auth       AuthConfig       `koanf:"auth"`
	Device     DeviceConfig     `koanf:"device"`
	Prediction PredictionConfig `koanf:"prediction"`
	Poller     PollerConfig     `koanf:"poller"`
	Pagination PaginationConfig `koanf:"pagination"`
	Redis      RedisConfig      `koanf:"redis"`
	MQTT       MQTTConfig       `koanf:"mqtt"`
	Log        LogConfig        `koanf:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimit       int64         `koanf:"rate_limit"`        // requests per minute per IP
	UploadRateLimit int64         `koanf:"upload_rate_limit"` // manual uploads per minute per IP
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                   string        `koanf:"url"`
	Host                  string        `koanf:"host"`
	Port                  string        `koanf:"port"`
	Name                  string        `koanf:"name"`
	User                  string        `koanf:"user"`
	Password              string        `koanf:"password"`
	SSLMode               string        `koanf:"sslmode"`
	MaxConnections        int           `koanf:"max_connections"`
	MaxIdleConnections    int           `koanf:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `koanf:"connection_max_lifetime"`
	AutoMigrate           bool          `koanf:"auto_migrate"`
}

// StoreConfig selects the records store backend
type StoreConfig struct {
	Driver string `koanf:"driver"` // "postgres" or "memory"
}

// AuthConfig holds authentication-related configuration.
// Tokens are issued by the external credential service; this service only validates them.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	Issuer    string `koanf:"issuer"`
}

// DeviceConfig holds the local sensor endpoint configuration
type DeviceConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// PredictionConfig holds the remote inference service configuration
type PredictionConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// PollerConfig holds the acquisition loop configuration
type PollerConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Interval  time.Duration `koanf:"interval"`
	PatientID string        `koanf:"patient_id"` // optional patient polled before anyone signs in
}

// PaginationConfig holds the record browsing configuration
type PaginationConfig struct {
	PageSize int `koanf:"page_size"`
}

// RedisConfig holds the profile cache configuration. Empty Addr disables the cache.
type RedisConfig struct {
	Addr       string        `koanf:"addr"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	ProfileTTL time.Duration `koanf:"profile_ttl"`
}

// MQTTConfig holds the stored-reading notification configuration. Empty Broker disables it.
type MQTTConfig struct {
	Broker      string `koanf:"broker"`
	ClientID    string `koanf:"client_id"`
	Username    string `koanf:"username"`
	Password    string `koanf:"password"`
	TopicPrefix string `koanf:"topic_prefix"`
	QoS         byte   `koanf:"qos"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// New returns a Config populated with defaults
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       100,
			UploadRateLimit: 10,
		},
		Database: DatabaseConfig{
			Host:                  "localhost",
			Port:                  "5432",
			Name:                  "vitals_dev",
			User:                  "vitals_user",
			Password:              "vitals_pass",
			SSLMode:               "disable",
			MaxConnections:        25,
			MaxIdleConnections:    5,
			ConnectionMaxLifetime: 5 * time.Minute,
			AutoMigrate:           true,
		},
		Store: StoreConfig{
			Driver: StoreDriverPostgres,
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-key-change-in-production",
			Issuer:    "vitals-auth",
		},
		Device: DeviceConfig{
			URL:     "http://192.168.4.1",
			Timeout: 5 * time.Second,
		},
		Prediction: PredictionConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Poller: PollerConfig{
			Enabled:  true,
			Interval: 20 * time.Second,
		},
		Pagination: PaginationConfig{
			PageSize: 20,
		},
		Redis: RedisConfig{
			ProfileTTL: 5 * time.Minute,
		},
		MQTT: MQTTConfig{
			ClientID:    "vitals-service",
			TopicPrefix: "vitals",
			QoS:         1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port must not be empty")
	}
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("VITALS_AUTH_JWT_SECRET is required")
	}
	if err := validateURL("device url", c.Device.URL); err != nil {
		return err
	}
	if err := validateURL("prediction base url", c.Prediction.BaseURL); err != nil {
		return err
	}
	if c.Device.Timeout <= 0 || c.Prediction.Timeout <= 0 {
		return errors.New("device and prediction timeouts must be positive")
	}
	if c.Poller.Interval <= 0 {
		return errors.New("poller interval must be positive")
	}
	if c.Pagination.PageSize <= 0 {
		return errors.New("pagination page size must be positive")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	return nil
}

// ConnectionString returns the database connection string
func (d *DatabaseConfig) ConnectionString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s %q: scheme must be http or https", name, raw)
	}
	return nil
}
