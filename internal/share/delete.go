package share

import (
	"fmt"
	"os"
)

// DeleteFile removes a single file and returns its size for ledger
// accounting. Directories are rejected; use DeleteFolder.
func (s *Store) DeleteFile(rel string) (int64, error) {
	abs, err := s.Resolve(rel)
	if err != nil {
		return 0, err
	}

	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("stat %q: %w", rel, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%q is a directory", rel)
	}

	size := info.Size()
	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("remove %q: %w", rel, err)
	}
	return size, nil
}

// DeleteFolder recursively removes the folder at rel. The subtree size is
// computed before removal (it cannot be recovered afterwards) and returned
// for ledger accounting, together with the count of entries the size scan
// had to skip. Removing a missing folder is a no-op.
func (s *Store) DeleteFolder(rel string) (int64, int, error) {
	abs, err := s.Resolve(rel)
	if err != nil {
		return 0, 0, err
	}
	if abs == s.root {
		return 0, 0, fmt.Errorf("refusing to delete shared root: %w", ErrInvalidPath)
	}

	size, skipped := subtreeSize(abs)
	if err := os.RemoveAll(abs); err != nil {
		return 0, skipped, fmt.Errorf("remove folder %q: %w", rel, err)
	}
	return size, skipped, nil
}
