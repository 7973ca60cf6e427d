package toolexec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Rule is one ordered allowlist entry. A command is permitted when it starts
// with the rule's prefix.
type Rule struct {
	Prefix  string `json:"prefix"`
	Reason  string `json:"reason,omitempty"`
	AddedAt string `json:"added_at,omitempty"`
}

// DefaultPrefixes returns the baseline command prefixes permitted for a fresh
// workspace.
func DefaultPrefixes() []string {
	return []string{"python", "python3", "git", "rg", "ls", "cat", "echo"}
}

// Allowlist manages the ordered set of permitted command prefixes, backed by
// a JSON file under the workspace.
type Allowlist struct {
	filePath string
	rules    []Rule
	mu       sync.RWMutex
}

// NewAllowlist creates an allowlist backed by filePath. An existing file wins;
// otherwise the defaults plus extra prefixes are used and written out.
func NewAllowlist(filePath string, extra []string) (*Allowlist, error) {
	if filePath == "" {
		return nil, fmt.Errorf("allowlist file path is required")
	}

	al := &Allowlist{filePath: filePath}

	if err := al.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load allowlist: %w", err)
		}

		now := time.Now().Format(time.RFC3339)
		for _, prefix := range DefaultPrefixes() {
			al.rules = append(al.rules, Rule{Prefix: prefix, Reason: "default", AddedAt: now})
		}
		for _, prefix := range extra {
			prefix = strings.TrimSpace(prefix)
			if prefix != "" {
				al.rules = append(al.rules, Rule{Prefix: prefix, Reason: "config", AddedAt: now})
			}
		}

		if err := al.Save(); err != nil {
			return nil, err
		}
	}

	return al, nil
}

// Path returns the backing file path.
func (al *Allowlist) Path() string {
	return al.filePath
}

// Load reads the rules from file, replacing the in-memory set.
func (al *Allowlist) Load() error {
	data, err := os.ReadFile(al.filePath)
	if err != nil {
		return err
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return fmt.Errorf("failed to parse allowlist: %w", err)
	}

	al.mu.Lock()
	al.rules = rules
	al.mu.Unlock()

	log.Info().
		Str("path", al.filePath).
		Int("count", len(rules)).
		Msg("Allowlist loaded")

	return nil
}

// Save writes the rules to file.
func (al *Allowlist) Save() error {
	al.mu.RLock()
	data, err := json.MarshalIndent(al.rules, "", "  ")
	al.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal allowlist: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(al.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create allowlist directory: %w", err)
	}

	if err := os.WriteFile(al.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write allowlist: %w", err)
	}

	return nil
}

// Add appends a prefix rule and persists the list.
func (al *Allowlist) Add(prefix, reason string) error {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return fmt.Errorf("prefix cannot be empty")
	}

	al.mu.Lock()
	exists := false
	for _, rule := range al.rules {
		if rule.Prefix == prefix {
			exists = true
			break
		}
	}
	if !exists {
		al.rules = append(al.rules, Rule{
			Prefix:  prefix,
			Reason:  reason,
			AddedAt: time.Now().Format(time.RFC3339),
		})
	}
	al.mu.Unlock()

	if exists {
		return nil
	}
	return al.Save()
}

// IsAllowed reports whether the command matches at least one rule by prefix
// comparison. The check is a pure function of the rule set and the command.
func (al *Allowlist) IsAllowed(command string) bool {
	command = strings.TrimSpace(command)
	if command == "" {
		return false
	}

	al.mu.RLock()
	defer al.mu.RUnlock()

	for _, rule := range al.rules {
		if rule.Prefix != "" && strings.HasPrefix(command, rule.Prefix) {
			return true
		}
	}

	return false
}

// Rules returns a copy of the current rule set in order.
func (al *Allowlist) Rules() []Rule {
	al.mu.RLock()
	defer al.mu.RUnlock()

	rules := make([]Rule, len(al.rules))
	copy(rules, al.rules)
	return rules
}

// Prefixes returns the ordered prefixes, for error messages.
func (al *Allowlist) Prefixes() []string {
	al.mu.RLock()
	defer al.mu.RUnlock()

	prefixes := make([]string, 0, len(al.rules))
	for _, rule := range al.rules {
		prefixes = append(prefixes, rule.Prefix)
	}
	return prefixes
}
