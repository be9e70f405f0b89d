// Package share implements the quota-tracked shared directory tree: sandboxed
// path resolution, directory listing, folder-tree navigation, and the
// upload/delete pipelines that keep the quota ledger informed.
package share

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidPath is returned when a client-supplied path resolves outside
	// the shared root.
	ErrInvalidPath = errors.New("path escapes shared root")

	// ErrNotFound is returned when the resolved target does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTooLarge is returned when an upload stream exceeds the caller's
	// byte limit mid-copy.
	ErrTooLarge = errors.New("upload exceeds size limit")
)

// Store provides sandboxed access to the shared root directory. All
// client-supplied paths are relative to the root and are validated before any
// filesystem access.
type Store struct {
	root string // absolute, symlink-resolved shared root
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve shared root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create shared root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve shared root: %w", err)
	}
	return &Store{root: resolved}, nil
}

// Root returns the absolute shared root path.
func (s *Store) Root() string {
	return s.root
}

// Resolve maps a client-supplied root-relative path to an absolute path and
// verifies it cannot escape the shared root. The check runs on the cleaned,
// symlink-resolved form, not the raw string.
func (s *Store) Resolve(rel string) (string, error) {
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	if !s.inRoot(abs) {
		return "", ErrInvalidPath
	}

	// If the target (or a symlinked ancestor) exists, verify the real path
	// too, so a symlink inside the root cannot point out of it.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", fmt.Errorf("resolve %q: %w", rel, err)
	}
	if !s.inRoot(resolved) {
		return "", ErrInvalidPath
	}
	return abs, nil
}

func (s *Store) inRoot(abs string) bool {
	return abs == s.root || strings.HasPrefix(abs, s.root+string(filepath.Separator))
}
