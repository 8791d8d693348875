// Package dedup defines processed-submission records and the duplicate
// policies that gate re-processing of previously accepted artifacts.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrDuplicate marks a submission rejected by the dedup gate. It is distinct
// from validation failure so callers can offer an explicit override.
var ErrDuplicate = errors.New("duplicate submission")

// Status is the recorded outcome of a processing attempt.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusError     Status = "error"
)

// Record is one processed-submission entry. Package-level records carry a
// modification timestamp; file-level records carry a content hash and sender.
// Records are upserted, never deleted.
type Record struct {
	ID           string
	Key          string // package name, or original file name for file-level entries
	SenderID     string
	Hash         string // sha256 hex; empty for package-level entries
	ModifiedAt   time.Time
	ProcessedAt  time.Time
	Status       Status
	ErrorMessage string
}

// DuplicateByModTime implements the package-level policy: a submission is a
// duplicate iff its modification timestamp is not strictly newer than the
// recorded one. A newer timestamp is a legitimate resubmission.
func DuplicateByModTime(prev Record, modifiedAt time.Time) bool {
	return !modifiedAt.After(prev.ModifiedAt)
}

// HashBytes returns the sha256 content address of raw bytes, used by the
// file-level policy keyed on (hash, sender).
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
