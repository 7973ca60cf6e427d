package memory

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamhihahn/ai-agent/internal/observability"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), ".agent", "memory.json"))
	require.NoError(t, err)
	return s
}

func TestNewStore_MissingFile(t *testing.T) {
	s := newTestStore(t)

	record := s.Snapshot()

	assert.Empty(t, record.Facts)
	assert.Empty(t, record.Turns)
}

func TestNewStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := NewStore(path)

	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().Turns)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	s.SetFact("language", "dutch")
	s.SetFact("editor", "vim")
	s.Append("user", "hoi")
	s.Append("assistant", "Hoi! Ik ben er.")
	require.NoError(t, s.Save())

	reloaded, err := NewStore(path)
	require.NoError(t, err)

	got := reloaded.Snapshot()
	want := s.Snapshot()
	assert.Equal(t, want.Facts, got.Facts)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, "user", got.Turns[0].Role)
	assert.Equal(t, "hoi", got.Turns[0].Content)
	assert.Equal(t, want.Turns[1].Content, got.Turns[1].Content)
}

func TestStore_SaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	s.Append("user", "hello")
	require.NoError(t, s.Save())

	// No temp files may remain next to the record.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "memory.json", entries[0].Name())
}

func TestStore_Recent(t *testing.T) {
	s := newTestStore(t)
	for _, content := range []string{"one", "two", "three", "four"} {
		s.Append("user", content)
	}

	recent := s.Recent(2)

	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Content)
	assert.Equal(t, "four", recent[1].Content)
}

func TestStore_Recent_MoreThanStored(t *testing.T) {
	s := newTestStore(t)
	s.Append("user", "only")

	recent := s.Recent(8)

	require.Len(t, recent, 1)
}

func TestStore_Facts(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.Fact("missing")
	assert.False(t, ok)

	s.SetFact("k", "v")
	v, ok := s.Fact("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestStore_SaveIfDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	// Nothing changed yet, no file should appear.
	require.NoError(t, s.SaveIfDirty())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	s.Append("user", "hi")
	require.NoError(t, s.SaveIfDirty())
	assert.FileExists(t, path)
}

func TestStore_FailedSaveStaysDirty(t *testing.T) {
	s := newTestStore(t)
	s.Append("user", "hello")

	// A directory at the target path makes the atomic rename fail.
	require.NoError(t, os.Mkdir(s.Path(), 0755))
	require.Error(t, s.Save())

	// The record is still dirty, so the next SaveIfDirty retries the write
	// instead of skipping it.
	require.Error(t, s.SaveIfDirty())

	require.NoError(t, os.Remove(s.Path()))
	require.NoError(t, s.SaveIfDirty())

	loaded, err := NewStore(s.Path())
	require.NoError(t, err)
	turns := loaded.Recent(1)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].Content)

	// Now clean: no further write is attempted even with the path blocked.
	require.NoError(t, os.Remove(s.Path()))
	require.NoError(t, os.Mkdir(s.Path(), 0755))
	require.NoError(t, s.SaveIfDirty())
}

func TestStore_SaveOutcomeMetricRecorded(t *testing.T) {
	s := newTestStore(t)
	s.Append("user", "hello")
	require.NoError(t, s.Save())

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	observability.Handler().ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), `memory_save_total{status="ok"}`)
}

func TestStore_Replace(t *testing.T) {
	s := newTestStore(t)

	s.Replace(Record{Facts: map[string]string{"a": "b"}})

	got := s.Snapshot()
	assert.Equal(t, "b", got.Facts["a"])
	assert.NotNil(t, got.Turns)
}

func TestNewAutosaver_InvalidSpec(t *testing.T) {
	s := newTestStore(t)

	_, err := NewAutosaver(s, "not a schedule")

	require.Error(t, err)
}

func TestAutosaver_StopFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	a, err := NewAutosaver(s, "@every 1h")
	require.NoError(t, err)
	a.Start()

	s.Append("user", "pending")
	require.NoError(t, a.Stop())

	assert.FileExists(t, path)
}
