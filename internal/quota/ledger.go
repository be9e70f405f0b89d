// Package quota enforces the per-file and total storage limits and keeps the
// persisted used-capacity counter consistent with the shared tree.
package quota

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ssd-technologies/lanshare/internal/crypto"
	"github.com/ssd-technologies/lanshare/internal/share"
	"github.com/ssd-technologies/lanshare/internal/storage"
)

var (
	// ErrFileTooLarge is returned when a single upload exceeds the per-file limit.
	ErrFileTooLarge = errors.New("file exceeds single upload limit")

	// ErrQuotaExceeded is returned when an upload would push usage past total capacity.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrBadPassword is returned when the supplied admin password does not match.
	ErrBadPassword = errors.New("wrong admin password")
)

// Ledger serializes every read-modify-write of the settings record behind a
// single mutex. The settings row has no locking of its own; two concurrent
// commits going around the ledger would lose one update.
type Ledger struct {
	mu    sync.Mutex
	db    *storage.DB
	store *share.Store
}

// NewLedger creates a Ledger over the settings database and shared tree.
func NewLedger(db *storage.DB, store *share.Store) *Ledger {
	return &Ledger{db: db, store: store}
}

// Settings returns a snapshot of the current settings record.
func (l *Ledger) Settings() (*storage.Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.GetSettings()
}

// CheckUpload validates a prospective upload of size bytes against both
// limits without mutating anything.
func (l *Ledger) CheckUpload(size int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.db.GetSettings()
	if err != nil {
		return err
	}
	return checkAgainst(s, size)
}

func checkAgainst(s *storage.Settings, size int64) error {
	if size > s.SingleUploadLimitBytes {
		return ErrFileTooLarge
	}
	if s.UsedCapacityBytes+size > s.TotalCapacityBytes {
		return ErrQuotaExceeded
	}
	return nil
}

// CommitDelta adjusts the used-capacity counter by delta, clamping at zero.
// Called with a negative delta after deletions.
func (l *Ledger) CommitDelta(delta int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.db.GetSettings()
	if err != nil {
		return err
	}
	s.UsedCapacityBytes += delta
	if s.UsedCapacityBytes < 0 {
		s.UsedCapacityBytes = 0
	}
	return l.db.SaveSettings(s)
}

// CommitUpload accounts for a completed upload of size bytes. The capacity
// check is repeated under the same lock as the write: a pre-flight
// CheckUpload may have raced another upload, and the counter must never be
// pushed past total capacity. On ErrQuotaExceeded the caller removes the
// just-written file.
func (l *Ledger) CommitUpload(size int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.db.GetSettings()
	if err != nil {
		return err
	}
	if err := checkAgainst(s, size); err != nil {
		return err
	}
	s.UsedCapacityBytes += size
	return l.db.SaveSettings(s)
}

// Reconcile rescans the shared root and overwrites the counter with the real
// subtree sum, healing drift caused by external tree mutation. Returns the
// new counter value and the number of entries the scan skipped.
func (l *Ledger) Reconcile() (int64, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sum, skipped, err := l.store.SubtreeSize("")
	if err != nil {
		return 0, 0, fmt.Errorf("scan shared root: %w", err)
	}
	s, err := l.db.GetSettings()
	if err != nil {
		return 0, skipped, err
	}
	s.UsedCapacityBytes = sum
	if err := l.db.SaveSettings(s); err != nil {
		return 0, skipped, err
	}
	return sum, skipped, nil
}

// UpdateLimits replaces the capacity limits, leaving counter and password
// untouched. Returns the updated record.
func (l *Ledger) UpdateLimits(totalBytes, singleBytes int64) (*storage.Settings, error) {
	if totalBytes <= 0 || singleBytes <= 0 {
		return nil, fmt.Errorf("limits must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.db.GetSettings()
	if err != nil {
		return nil, err
	}
	s.TotalCapacityBytes = totalBytes
	s.SingleUploadLimitBytes = singleBytes
	if err := l.db.SaveSettings(s); err != nil {
		return nil, err
	}
	return s, nil
}

// VerifyPassword checks a caller-supplied admin password against the stored
// hash. Returns ErrBadPassword on mismatch.
func (l *Ledger) VerifyPassword(password string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.db.GetSettings()
	if err != nil {
		return err
	}
	if !crypto.VerifyPassword(password, s.AdminPasswordHash) {
		return ErrBadPassword
	}
	return nil
}

// ChangePassword replaces the admin password after verifying the current one.
func (l *Ledger) ChangePassword(current, next string) error {
	if next == "" {
		return fmt.Errorf("new password must not be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.db.GetSettings()
	if err != nil {
		return err
	}
	if !crypto.VerifyPassword(current, s.AdminPasswordHash) {
		return ErrBadPassword
	}
	s.AdminPasswordHash = crypto.HashPassword(next)
	return l.db.SaveSettings(s)
}
