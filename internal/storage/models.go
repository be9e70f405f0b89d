// internal/storage/models.go
package storage

// Settings is the singleton configuration and accounting record for the
// shared tree. UsedCapacityBytes is advisory accounting maintained by the
// quota ledger, not a live filesystem sum.
type Settings struct {
	TotalCapacityBytes     int64
	SingleUploadLimitBytes int64
	UsedCapacityBytes      int64
	AdminPasswordHash      []byte
	UpdatedAt              int64
}
