// Package memory persists a small cross-session record under the workspace:
// free-form facts plus the recent conversation turns. The file is written
// atomically so a crash mid-save never leaves a partial record behind.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dhamhihahn/ai-agent/internal/observability"
)

// Turn is one persisted conversation turn.
type Turn struct {
	Timestamp time.Time `json:"ts"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
}

// Record is the persisted memory snapshot.
type Record struct {
	Facts map[string]string `json:"facts"`
	Turns []Turn            `json:"turns"`
}

// NewRecord returns an empty record.
func NewRecord() Record {
	return Record{Facts: map[string]string{}, Turns: []Turn{}}
}

// Store owns the memory file for one session.
type Store struct {
	path   string
	record Record
	dirty  bool
	gen    uint64
	mu     sync.Mutex
}

// NewStore creates a store backed by the given file path and loads any
// existing record. A missing or unreadable file yields an empty record,
// never an error.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("memory file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}

	s := &Store{path: path, record: NewRecord()}
	s.load()
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("Failed to read memory file, starting empty")
		}
		return
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Memory file is corrupt, starting empty")
		return
	}

	if record.Facts == nil {
		record.Facts = map[string]string{}
	}
	s.record = record
}

// Snapshot returns a deep copy of the current record.
func (s *Store) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() Record {
	out := Record{
		Facts: make(map[string]string, len(s.record.Facts)),
		Turns: make([]Turn, len(s.record.Turns)),
	}
	for k, v := range s.record.Facts {
		out.Facts[k] = v
	}
	copy(out.Turns, s.record.Turns)
	return out
}

// Replace swaps the in-memory record wholesale.
func (s *Store) Replace(record Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Facts == nil {
		record.Facts = map[string]string{}
	}
	if record.Turns == nil {
		record.Turns = []Turn{}
	}
	s.record = record
	s.dirty = true
	s.gen++
}

// Append records a conversation turn.
func (s *Store) Append(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record.Turns = append(s.record.Turns, Turn{
		Timestamp: time.Now().UTC(),
		Role:      role,
		Content:   content,
	})
	s.dirty = true
	s.gen++
}

// Recent returns the last count turns, oldest first.
func (s *Store) Recent(count int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if count <= 0 || len(s.record.Turns) == 0 {
		return nil
	}
	start := len(s.record.Turns) - count
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.record.Turns)-start)
	copy(out, s.record.Turns[start:])
	return out
}

// SetFact stores a key/value fact.
func (s *Store) SetFact(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record.Facts[key] = value
	s.dirty = true
	s.gen++
}

// Fact returns a stored fact.
func (s *Store) Fact(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.record.Facts[key]
	return v, ok
}

// Save writes the record to a temporary file in the same directory and
// renames it over the target, so a concurrent load never observes a
// partially written file.
func (s *Store) Save() error {
	err := s.save()
	observability.RecordMemorySave(err == nil)
	return err
}

func (s *Store) save() error {
	s.mu.Lock()
	record := s.copyLocked()
	gen := s.gen
	s.mu.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory record: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".memory-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp memory file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp memory file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp memory file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp memory file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace memory file: %w", err)
	}

	// Mark clean only when nothing mutated the record since the snapshot was
	// taken; a failed write leaves the store dirty so the next SaveIfDirty
	// retries.
	s.mu.Lock()
	if s.gen == gen {
		s.dirty = false
	}
	s.mu.Unlock()

	return nil
}

// SaveIfDirty persists only when the record changed since the last save.
func (s *Store) SaveIfDirty() error {
	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()

	if !dirty {
		return nil
	}
	return s.Save()
}
