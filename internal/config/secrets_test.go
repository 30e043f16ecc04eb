package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSecret(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		fileContent  string
		defaultValue string
		want         string
	}{
		{
			name:         "returns direct environment variable when set",
			envValue:     "direct-value",
			defaultValue: "default",
			want:         "direct-value",
		},
		{
			name:         "returns default when no env var or file",
			defaultValue: "default-value",
			want:         "default-value",
		},
		{
			name:        "reads from file when _FILE env var is set",
			fileContent: "file-content",
			want:        "file-content",
		},
		{
			name:        "trims whitespace from file content",
			fileContent: "  file-content\n\t",
			want:        "file-content",
		},
		{
			name:         "prefers direct env var over file",
			envValue:     "direct-value",
			fileContent:  "file-content",
			defaultValue: "default",
			want:         "direct-value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_SECRET", tt.envValue)
			t.Setenv("TEST_SECRET_FILE", "")

			if tt.fileContent != "" {
				path := filepath.Join(t.TempDir(), "secret")
				require.NoError(t, os.WriteFile(path, []byte(tt.fileContent), 0o600))
				t.Setenv("TEST_SECRET_FILE", path)
			}

			assert.Equal(t, tt.want, GetSecret("TEST_SECRET", tt.defaultValue))
		})
	}
}

func TestGetSecret_UnreadableFileFallsBack(t *testing.T) {
	t.Setenv("TEST_SECRET", "")
	t.Setenv("TEST_SECRET_FILE", filepath.Join(t.TempDir(), "does-not-exist"))

	assert.Equal(t, "fallback", GetSecret("TEST_SECRET", "fallback"))
}

func TestApplySecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_password")
	require.NoError(t, os.WriteFile(path, []byte("from-file"), 0o600))
	t.Setenv("VITALS_DATABASE_PASSWORD_FILE", path)
	t.Setenv("VITALS_MQTT_PASSWORD", "mqtt-direct")

	cfg := New()
	applySecrets(cfg)

	assert.Equal(t, "from-file", cfg.Database.Password)
	assert.Equal(t, "mqtt-direct", cfg.MQTT.Password)
	assert.Equal(t, "dev-secret-key-change-in-production", cfg.Auth.JWTSecret)
}
