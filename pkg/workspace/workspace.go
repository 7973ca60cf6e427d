// Package workspace confines all file and shell tool effects to a single
// directory tree. Every tool-supplied path is resolved against the root and
// rejected if it escapes, including escapes through symlinks.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a resolved path escapes the workspace root.
var ErrOutsideRoot = fmt.Errorf("path is outside the workspace root")

// Root is the absolute workspace directory, fixed for the process lifetime.
type Root struct {
	path string
}

// New resolves dir to an absolute, symlink-free path and ensures it exists.
func New(dir string) (*Root, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("workspace directory cannot be empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace path: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	// Resolve symlinks in the root itself so later containment checks
	// compare against the real directory.
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace symlinks: %w", err)
	}

	return &Root{path: real}, nil
}

// Path returns the absolute workspace root path.
func (r *Root) Path() string {
	return r.path
}

// Resolve maps a tool-supplied path to an absolute path inside the workspace.
// Relative paths are joined to the root; absolute paths are accepted only when
// they already point inside it. The returned path never escapes the root.
func (r *Root) Resolve(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("path is required")
	}
	if strings.Contains(p, "://") {
		return "", fmt.Errorf("path must be a local file path")
	}

	candidate := p
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(r.path, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !r.contains(candidate) {
		return "", ErrOutsideRoot
	}

	// Lexical containment is not enough: a symlink inside the workspace may
	// point anywhere. Resolve the deepest existing ancestor and re-check.
	resolved, err := resolveExisting(candidate)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !r.contains(resolved) {
		return "", ErrOutsideRoot
	}

	return candidate, nil
}

// contains reports whether candidate is the root or a descendant of it.
func (r *Root) contains(candidate string) bool {
	rel, err := filepath.Rel(r.path, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// resolveExisting evaluates symlinks on the deepest ancestor of p that exists
// on disk, then re-joins the not-yet-created suffix.
func resolveExisting(p string) (string, error) {
	remainder := ""
	current := p
	for {
		real, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Clean(filepath.Join(real, remainder)), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		remainder = filepath.Join(filepath.Base(current), remainder)
		current = parent
	}
}
