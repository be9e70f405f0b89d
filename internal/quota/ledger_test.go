package quota

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ssd-technologies/lanshare/internal/share"
	"github.com/ssd-technologies/lanshare/internal/storage"
)

func setupTestLedger(t *testing.T) (*Ledger, *share.Store) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.NewDB(filepath.Join(dir, "settings.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := share.NewStore(filepath.Join(dir, "shared"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return NewLedger(db, store), store
}

func usedBytes(t *testing.T, l *Ledger) int64 {
	t.Helper()
	s, err := l.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	return s.UsedCapacityBytes
}

func TestCheckUpload_Limits(t *testing.T) {
	l, _ := setupTestLedger(t)
	if _, err := l.UpdateLimits(1000, 100); err != nil {
		t.Fatalf("UpdateLimits: %v", err)
	}

	if err := l.CheckUpload(100); err != nil {
		t.Errorf("upload at single-file limit: %v", err)
	}
	if err := l.CheckUpload(101); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("err = %v, want ErrFileTooLarge", err)
	}

	if err := l.CommitDelta(950); err != nil {
		t.Fatalf("CommitDelta: %v", err)
	}
	if err := l.CheckUpload(50); err != nil {
		t.Errorf("upload filling quota exactly: %v", err)
	}
	if err := l.CheckUpload(51); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestCommitDelta_RoundTripAndClamp(t *testing.T) {
	l, _ := setupTestLedger(t)

	if err := l.CommitDelta(500); err != nil {
		t.Fatalf("CommitDelta(+500): %v", err)
	}
	if got := usedBytes(t, l); got != 500 {
		t.Errorf("used = %d, want 500", got)
	}

	if err := l.CommitDelta(-500); err != nil {
		t.Fatalf("CommitDelta(-500): %v", err)
	}
	if got := usedBytes(t, l); got != 0 {
		t.Errorf("used = %d, want 0 after round trip", got)
	}

	if err := l.CommitDelta(-100); err != nil {
		t.Fatalf("CommitDelta(-100): %v", err)
	}
	if got := usedBytes(t, l); got != 0 {
		t.Errorf("used = %d, want 0 after clamped decrement", got)
	}
}

func TestCommitUpload_RechecksQuota(t *testing.T) {
	l, _ := setupTestLedger(t)
	if _, err := l.UpdateLimits(100, 100); err != nil {
		t.Fatalf("UpdateLimits: %v", err)
	}

	if err := l.CommitUpload(80); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	// A stale pre-check cannot push the counter past capacity.
	if err := l.CommitUpload(30); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("err = %v, want ErrQuotaExceeded", err)
	}
	if got := usedBytes(t, l); got != 80 {
		t.Errorf("used = %d, want 80 after rejected commit", got)
	}
}

func TestCommitUpload_ConcurrentSumExact(t *testing.T) {
	l, _ := setupTestLedger(t)

	const workers = 20
	const each = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.CommitUpload(each); err != nil {
				t.Errorf("CommitUpload: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := usedBytes(t, l); got != workers*each {
		t.Errorf("used = %d, want %d", got, workers*each)
	}
}

func TestReconcile_HealsDrift(t *testing.T) {
	l, store := setupTestLedger(t)

	// Counter says 5000; reality is two files totalling 9 bytes written
	// behind the ledger's back.
	if err := l.CommitDelta(5000); err != nil {
		t.Fatalf("CommitDelta: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Root(), "a.bin"), []byte("1234"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(store.Root(), "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Root(), "sub", "b.bin"), []byte("12345"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sum, skipped, err := l.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if sum != 9 || skipped != 0 {
		t.Errorf("sum=%d skipped=%d, want 9/0", sum, skipped)
	}
	if got := usedBytes(t, l); got != 9 {
		t.Errorf("used = %d, want 9", got)
	}
}

func TestUpdateLimits(t *testing.T) {
	l, _ := setupTestLedger(t)

	s, err := l.UpdateLimits(2<<30, 10<<20)
	if err != nil {
		t.Fatalf("UpdateLimits: %v", err)
	}
	if s.TotalCapacityBytes != 2<<30 || s.SingleUploadLimitBytes != 10<<20 {
		t.Errorf("settings = %+v", s)
	}

	if _, err := l.UpdateLimits(0, 10); err == nil {
		t.Error("zero total capacity accepted")
	}
	if _, err := l.UpdateLimits(10, -1); err == nil {
		t.Error("negative single limit accepted")
	}
}

func TestPasswords(t *testing.T) {
	l, _ := setupTestLedger(t)

	if err := l.VerifyPassword(storage.DefaultAdminPassword); err != nil {
		t.Errorf("default password rejected: %v", err)
	}
	if err := l.VerifyPassword("nope"); !errors.Is(err, ErrBadPassword) {
		t.Errorf("err = %v, want ErrBadPassword", err)
	}

	if err := l.ChangePassword("nope", "newpw"); !errors.Is(err, ErrBadPassword) {
		t.Errorf("change with wrong current: err = %v, want ErrBadPassword", err)
	}
	if err := l.ChangePassword(storage.DefaultAdminPassword, ""); err == nil {
		t.Error("empty new password accepted")
	}

	if err := l.ChangePassword(storage.DefaultAdminPassword, "s3cret"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if err := l.VerifyPassword("s3cret"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if err := l.VerifyPassword(storage.DefaultAdminPassword); !errors.Is(err, ErrBadPassword) {
		t.Errorf("old password still accepted")
	}
}
