package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"GazetteHere-App/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"OPENAI_API_KEY", "PORT", "GAZETTE_BACKEND_ENDPOINT", "GAZETTE_MODEL", "GAZETTE_MAX_TOKENS", "GAZETTE_TEMPERATURE", "NOMINATIM_BASE_URL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.False(t, cfg.BackendEnabled())
	assert.Equal(t, model.GenerationConfig{Model: "gpt-3.5-turbo", MaxTokens: 500, Temperature: 0.7}, cfg.GenerationConfig())
	assert.Equal(t, 3, cfg.Acquisition.MaxAttempts)
	assert.Equal(t, 15*time.Second, cfg.Acquisition.SingleShotTimeout)
	assert.Empty(t, cfg.Acquisition.SuspectCoordinates)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "8080")
	t.Setenv("GAZETTE_MODEL", "gpt-4o-mini")
	t.Setenv("GAZETTE_MAX_TOKENS", "256")
	t.Setenv("GAZETTE_TEMPERATURE", "0.2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.BackendEnabled())
	gen := cfg.GenerationConfig()
	assert.Equal(t, "gpt-4o-mini", gen.Model)
	assert.Equal(t, 256, gen.MaxTokens)
	assert.Equal(t, 0.2, gen.Temperature)
	assert.Equal(t, "http://127.0.0.1:8080/api/openai", gen.BackendEndpoint)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("GAZETTE_MODEL", "from-env")

	path := filepath.Join(t.TempDir(), "gazettehere.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "4000"
generation:
  model: from-yaml
  max_tokens: 300
  backend_endpoint: http://proxy.internal/api/openai
acquisition:
  max_attempts: 5
  retry_backoff: 2s
  max_reading_age: 2m
  suspect_coordinates:
    - lat: 48.8566
      lng: 2.3522
log_level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Generation.Model)
	assert.Equal(t, 300, cfg.Generation.MaxTokens)
	assert.Equal(t, "http://proxy.internal/api/openai", cfg.BackendEndpoint())
	assert.Equal(t, 5, cfg.Acquisition.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Acquisition.RetryBackoff)
	assert.Equal(t, 2*time.Minute, cfg.Acquisition.MaxReadingAge)
	assert.Equal(t, []model.LatLng{{Lat: 48.8566, Lng: 2.3522}}, cfg.Acquisition.SuspectCoordinates)
	assert.Equal(t, 30*time.Second, cfg.Acquisition.SuspectMinAge)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"max_tokensが数値でない", "GAZETTE_MAX_TOKENS", "many"},
		{"max_tokensが0", "GAZETTE_MAX_TOKENS", "0"},
		{"temperatureが範囲外", "GAZETTE_TEMPERATURE", "3"},
		{"ポートが数値でない", "PORT", "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
