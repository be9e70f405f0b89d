package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ssd-technologies/lanshare/internal/crypto"
)

// Defaults used when the settings row is absent or unreadable.
const (
	DefaultTotalCapacityBytes     = 100 << 30 // 100 GiB
	DefaultSingleUploadLimitBytes = 1 << 30   // 1 GiB
	DefaultAdminPassword          = "admin123"
)

// DB wraps a sql.DB connection to the SQLite settings database.
type DB struct {
	db *sql.DB
}

// NewDB opens (or creates) the SQLite database at path and ensures the
// settings row exists.
func NewDB(path string) (*DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	d := &DB{db: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// migrate creates the settings table and seeds the singleton row with
// defaults if it is missing.
func (d *DB) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    total_capacity_bytes INTEGER NOT NULL,
    single_upload_limit_bytes INTEGER NOT NULL,
    used_capacity_bytes INTEGER NOT NULL DEFAULT 0,
    admin_password_hash BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);`
	if _, err := d.db.Exec(schema); err != nil {
		return err
	}
	return d.seedDefaults()
}

// seedDefaults inserts the default settings row if none exists.
func (d *DB) seedDefaults() error {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM settings WHERE id = 1`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := d.db.Exec(
		`INSERT INTO settings (id, total_capacity_bytes, single_upload_limit_bytes, used_capacity_bytes, admin_password_hash, updated_at)
		 VALUES (1, ?, ?, 0, ?, ?)`,
		DefaultTotalCapacityBytes,
		DefaultSingleUploadLimitBytes,
		crypto.HashPassword(DefaultAdminPassword),
		time.Now().Unix(),
	)
	return err
}

// GetSettings returns the singleton settings record. A missing row is healed
// by reseeding defaults rather than surfacing an error.
func (d *DB) GetSettings() (*Settings, error) {
	s, err := d.readSettings()
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if err := d.seedDefaults(); err != nil {
		return nil, fmt.Errorf("reseed settings: %w", err)
	}
	return d.readSettings()
}

func (d *DB) readSettings() (*Settings, error) {
	s := &Settings{}
	err := d.db.QueryRow(
		`SELECT total_capacity_bytes, single_upload_limit_bytes, used_capacity_bytes, admin_password_hash, updated_at
		 FROM settings WHERE id = 1`,
	).Scan(&s.TotalCapacityBytes, &s.SingleUploadLimitBytes, &s.UsedCapacityBytes, &s.AdminPasswordHash, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveSettings writes the full settings record back. The used-capacity
// counter is clamped at zero.
func (d *DB) SaveSettings(s *Settings) error {
	used := s.UsedCapacityBytes
	if used < 0 {
		used = 0
	}
	_, err := d.db.Exec(
		`UPDATE settings
		 SET total_capacity_bytes = ?, single_upload_limit_bytes = ?, used_capacity_bytes = ?, admin_password_hash = ?, updated_at = ?
		 WHERE id = 1`,
		s.TotalCapacityBytes, s.SingleUploadLimitBytes, used, s.AdminPasswordHash, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
