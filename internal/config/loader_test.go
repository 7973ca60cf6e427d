package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_MissingFileYieldsDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "config.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"workspace": "/projects/demo",
		"model": "local-model",
		"api_mode": "chat",
		"base_url": "http://localhost:1234/v1",
		"agent": {"max_turns": 6},
		"tools": {"extra_allow": ["go", "make"]}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "/projects/demo", cfg.Workspace)
	assert.Equal(t, "local-model", cfg.Model)
	assert.Equal(t, "chat", cfg.APIMode)
	assert.Equal(t, 6, cfg.Agent.MaxTurns)
	assert.Equal(t, []string{"go", "make"}, cfg.Tools.ExtraAllow)

	// Untouched fields keep their defaults.
	assert.Equal(t, 3, cfg.Agent.MaxRetries)
	assert.Equal(t, 45, cfg.Tools.ShellTimeoutSecs)
}

func TestLoader_CorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}

func TestLoader_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	loader := NewLoader(path)

	cfg := DefaultConfig()
	cfg.Workspace = "/projects/demo"
	cfg.Model = "gpt-4o"
	cfg.Agent.MaxTurns = 20

	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "/projects/demo", loaded.Workspace)
	assert.Equal(t, "gpt-4o", loaded.Model)
	assert.Equal(t, 20, loaded.Agent.MaxTurns)
}
