package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".", cfg.Workspace)
	assert.Equal(t, "auto", cfg.APIMode)
	assert.Equal(t, 12, cfg.Agent.MaxTurns)
	assert.Equal(t, 3, cfg.Agent.MaxRetries)
	assert.Equal(t, 45, cfg.Tools.ShellTimeoutSecs)
	assert.True(t, cfg.Tools.WebLookup)
	assert.True(t, cfg.Logging.Redaction)
	assert.Empty(t, cfg.Validate())
}

func TestChooseAPIMode(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		baseURL string
		want    string
	}{
		{"explicit responses", "responses", "http://localhost:1234/v1", "responses"},
		{"explicit chat", "chat", "", "chat"},
		{"explicit anthropic", "anthropic", "", "anthropic"},
		{"auto no base url", "auto", "", "responses"},
		{"auto localhost", "auto", "http://localhost:1234/v1", "chat"},
		{"auto loopback", "auto", "http://127.0.0.1:1234/v1", "chat"},
		{"auto remote", "auto", "https://api.example.com/v1", "responses"},
		{"auto uppercase host", "auto", "http://LOCALHOST:1234/v1", "chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseAPIMode(tt.mode, tt.baseURL))
		})
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-from-env")

		key, err := ResolveAPIKey("chat", "")
		require.NoError(t, err)
		assert.Equal(t, "sk-from-env", key)
	})

	t.Run("anthropic uses its own variable", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-wrong")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-right")

		key, err := ResolveAPIKey("anthropic", "")
		require.NoError(t, err)
		assert.Equal(t, "sk-ant-right", key)
	})

	t.Run("missing key with local endpoint falls back", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")

		key, err := ResolveAPIKey("chat", "http://localhost:1234/v1")
		require.NoError(t, err)
		assert.Equal(t, "lm-studio", key)
	})

	t.Run("missing key with remote endpoint errors", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")

		_, err := ResolveAPIKey("responses", "https://api.example.com/v1")
		assert.Error(t, err)
	})

	t.Run("missing key without endpoint errors", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")

		_, err := ResolveAPIKey("responses", "")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(*Config) {}, false},
		{"empty workspace", func(c *Config) { c.Workspace = "" }, true},
		{"empty model", func(c *Config) { c.Model = "" }, true},
		{"bad api mode", func(c *Config) { c.APIMode = "grpc" }, true},
		{"temperature too high", func(c *Config) { c.Agent.Temperature = 3 }, true},
		{"negative max tokens", func(c *Config) { c.Agent.MaxTokens = -1 }, true},
		{"negative max turns", func(c *Config) { c.Agent.MaxTurns = -1 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if tt.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}
