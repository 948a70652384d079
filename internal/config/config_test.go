package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, "@hourly", cfg.Chat.SweepSchedule)
	assert.Positive(t, cfg.Chat.RecoveryWindow)
	assert.Positive(t, cfg.Chat.SessionIdleMinutes)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.AI.APIKey = "sk-test"
		return cfg
	}

	t.Run("should accept defaults with an api key", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing api key", mutate: func(c *Config) { c.AI.APIKey = "" }},
		{name: "unknown provider", mutate: func(c *Config) { c.AI.Provider = "bard" }},
		{name: "missing model", mutate: func(c *Config) { c.AI.Model = "" }},
		{name: "temperature out of range", mutate: func(c *Config) { c.AI.Temperature = 1.5 }},
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "non-positive recovery window", mutate: func(c *Config) { c.Chat.RecoveryWindow = 0 }},
		{name: "non-positive idle minutes", mutate: func(c *Config) { c.Chat.SessionIdleMinutes = -1 }},
	}

	for _, tt := range tests {
		t.Run("should reject "+tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoader_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lapak.json")
	loader := NewLoader(path)

	cfg := DefaultConfig()
	cfg.Server.Port = 9090
	cfg.AI.Model = "gpt-4o"
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, loaded.Server.Port)
	assert.Equal(t, "gpt-4o", loaded.AI.Model)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "does-not-exist.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.NotEmpty(t, cfg.Database.Path)
	assert.NotEmpty(t, cfg.Logging.File)
}

func TestLoader_EnvAPIKeyOverride(t *testing.T) {
	t.Setenv("LAPAK_AI_API_KEY", "sk-from-env")

	loader := NewLoader(filepath.Join(t.TempDir(), "does-not-exist.json"))
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.AI.APIKey)
}
