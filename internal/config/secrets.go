package config

import (
	"os"
	"strings"
)

// GetSecret retrieves a secret with multiple fallback sources.
// Priority:
//  1. Direct environment variable (e.g., VITALS_AUTH_JWT_SECRET)
//  2. File path from _FILE environment variable (e.g., VITALS_AUTH_JWT_SECRET_FILE)
//  3. Default value
func GetSecret(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}

	if filePath := os.Getenv(envVar + "_FILE"); filePath != "" {
		if data, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return defaultValue
}

// applySecrets resolves every secret-bearing field through GetSecret so that
// Docker secrets mounted as files can replace the values loaded by koanf.
func applySecrets(cfg *Config) {
	secrets := []struct {
		env   string
		field *string
	}{
		{EnvPrefix + "AUTH_JWT_SECRET", &cfg.Auth.JWTSecret},
		{EnvPrefix + "DATABASE_PASSWORD", &cfg.Database.Password},
		{EnvPrefix + "REDIS_PASSWORD", &cfg.Redis.Password},
		{EnvPrefix + "MQTT_PASSWORD", &cfg.MQTT.Password},
	}
	for _, s := range secrets {
		*s.field = GetSecret(s.env, *s.field)
	}
}
