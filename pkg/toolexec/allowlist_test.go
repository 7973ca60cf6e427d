package toolexec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllowlist(t *testing.T, extra []string) *Allowlist {
	t.Helper()
	al, err := NewAllowlist(filepath.Join(t.TempDir(), "allowlist.json"), extra)
	require.NoError(t, err)
	return al
}

func TestNewAllowlist_CreatesDefaults(t *testing.T) {
	al := newTestAllowlist(t, nil)

	assert.FileExists(t, al.Path())
	assert.Equal(t, DefaultPrefixes(), al.Prefixes())
}

func TestNewAllowlist_ExtraPrefixes(t *testing.T) {
	al := newTestAllowlist(t, []string{"go", "  make  ", ""})

	prefixes := al.Prefixes()
	assert.Contains(t, prefixes, "go")
	assert.Contains(t, prefixes, "make")
	assert.NotContains(t, prefixes, "")
}

func TestNewAllowlist_ExistingFileWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowlist.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"prefix":"git status"}]`), 0644))

	al, err := NewAllowlist(path, []string{"extra"})
	require.NoError(t, err)

	assert.Equal(t, []string{"git status"}, al.Prefixes())
}

func TestNewAllowlist_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowlist.json")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0644))

	_, err := NewAllowlist(path, nil)

	require.Error(t, err)
}

func TestIsAllowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowlist.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"prefix":"git status"},{"prefix":"python"}]`), 0644))
	al, err := NewAllowlist(path, nil)
	require.NoError(t, err)

	tests := []struct {
		command string
		want    bool
	}{
		{"git status", true},
		{"git status --short", true},
		{"  git status  ", true},
		{"python script.py", true},
		{"python3 script.py", true}, // prefix comparison: "python" matches
		{"git push", false},
		{"rm -rf /", false},
		{"", false},
		{"   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			assert.Equal(t, tt.want, al.IsAllowed(tt.command))
		})
	}
}

func TestIsAllowed_RejectionIsIdempotent(t *testing.T) {
	al := newTestAllowlist(t, nil)

	// A rejected command stays rejected; no rule grants retroactive
	// permission once denied.
	assert.False(t, al.IsAllowed("rm -rf /"))
	assert.False(t, al.IsAllowed("rm -rf /"))
}

func TestAdd_PersistsAndDeduplicates(t *testing.T) {
	al := newTestAllowlist(t, nil)
	before := len(al.Rules())

	require.NoError(t, al.Add("go test", "needed for builds"))
	require.NoError(t, al.Add("go test", "again"))

	assert.Len(t, al.Rules(), before+1)
	assert.True(t, al.IsAllowed("go test ./..."))

	// Reload from disk and verify persistence.
	reloaded, err := NewAllowlist(al.Path(), nil)
	require.NoError(t, err)
	assert.True(t, reloaded.IsAllowed("go test ./..."))
}

func TestAdd_EmptyPrefix(t *testing.T) {
	al := newTestAllowlist(t, nil)

	require.Error(t, al.Add("  ", ""))
}

func TestLoad_ReplacesRules(t *testing.T) {
	al := newTestAllowlist(t, nil)
	require.NoError(t, os.WriteFile(al.Path(), []byte(`[{"prefix":"only"}]`), 0644))

	require.NoError(t, al.Load())

	assert.Equal(t, []string{"only"}, al.Prefixes())
}
