package share

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxRenameAttempts bounds the "name (n).ext" suffix search.
const maxRenameAttempts = 10000

// createUnique opens a brand-new file in dir named after base, appending
// " (1)", " (2)", … to the stem until a create succeeds. The exclusive
// create itself is the reservation, so two concurrent uploads of the same
// name cannot land on the same path.
func createUnique(dir, base string) (*os.File, string, error) {
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	ext := filepath.Ext(base)

	for i := 0; i < maxRenameAttempts; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create %q: %w", name, err)
		}
	}
	return nil, "", fmt.Errorf("no free name for %q after %d attempts", base, maxRenameAttempts)
}

// SaveUpload streams r into a uniquely named file under the directory dirRel,
// creating intermediate directories as needed. The copy aborts with
// ErrTooLarge once more than maxBytes have been read. Any failure removes
// the partial file, so a dropped connection never leaves a half-written
// entry behind.
//
// Returns the final filename (possibly suffixed) and the bytes written.
func (s *Store) SaveUpload(dirRel, filename string, r io.Reader, maxBytes int64) (string, int64, error) {
	if filename == "" {
		return "", 0, fmt.Errorf("empty filename: %w", ErrInvalidPath)
	}

	dir, err := s.Resolve(dirRel)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("create target directory: %w", err)
	}

	// Strip any directory components from the client-supplied name.
	base := filepath.Base(filepath.FromSlash(filename))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", 0, fmt.Errorf("bad filename %q: %w", filename, ErrInvalidPath)
	}

	f, name, err := createUnique(dir, base)
	if err != nil {
		return "", 0, err
	}
	target := filepath.Join(dir, name)

	written, err := io.Copy(f, io.LimitReader(r, maxBytes+1))
	if err == nil && written > maxBytes {
		err = ErrTooLarge
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		os.Remove(target)
		return "", 0, err
	}
	return name, written, nil
}

// CreateFolder creates a single new directory named folderName under
// parentRel. The parent must exist; an existing target is an error.
func (s *Store) CreateFolder(parentRel, folderName string) error {
	if folderName == "" || folderName != filepath.Base(filepath.FromSlash(folderName)) {
		return fmt.Errorf("bad folder name %q: %w", folderName, ErrInvalidPath)
	}
	abs, err := s.Resolve(filepath.ToSlash(filepath.Join(filepath.FromSlash(parentRel), folderName)))
	if err != nil {
		return err
	}
	if err := os.Mkdir(abs, 0755); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}
