package share

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "shared"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestResolve_InsideRoot(t *testing.T) {
	s := setupTestStore(t)

	cases := []struct {
		rel  string
		want string
	}{
		{"", s.Root()},
		{".", s.Root()},
		{"docs", filepath.Join(s.Root(), "docs")},
		{"docs/report.pdf", filepath.Join(s.Root(), "docs", "report.pdf")},
		{"a/./b", filepath.Join(s.Root(), "a", "b")},
		{"a/x/../b", filepath.Join(s.Root(), "a", "b")},
	}
	for _, tc := range cases {
		got, err := s.Resolve(tc.rel)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tc.rel, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.rel, got, tc.want)
		}
	}
}

func TestResolve_Traversal(t *testing.T) {
	s := setupTestStore(t)

	cases := []string{
		"..",
		"../",
		"../outside.txt",
		"../../etc/passwd",
		"docs/../../escape",
		"a/b/../../../z",
	}
	for _, rel := range cases {
		if _, err := s.Resolve(rel); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Resolve(%q): err = %v, want ErrInvalidPath", rel, err)
		}
	}
}

func TestResolve_SymlinkEscape(t *testing.T) {
	s := setupTestStore(t)

	outside := t.TempDir()
	link := filepath.Join(s.Root(), "sneaky")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := s.Resolve("sneaky"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Resolve of escaping symlink: err = %v, want ErrInvalidPath", err)
	}
}

func TestResolve_MissingTargetStaysLexical(t *testing.T) {
	s := setupTestStore(t)

	got, err := s.Resolve("not/yet/created.bin")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasPrefix(got, s.Root()) {
		t.Errorf("resolved path %q not under root %q", got, s.Root())
	}
}

func TestNewStore_CreatesRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "brand", "new", "root")
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := os.Stat(s.Root()); err != nil {
		t.Errorf("root not created: %v", err)
	}
}
