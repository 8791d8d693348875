// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/sage/domain/dataset"
	"github.com/artpar/sage/domain/dedup"
	"github.com/artpar/sage/domain/diagnostic"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// ProcessedStore persists processed-submission records for the dedup gate.
//
// The check methods and Register are separate calls; the store does not make
// the pair atomic. Callers needing strict exclusivity under concurrent
// submissions of the same artifact must serialize around the store. The
// file-level path is safe on its own: Register upserts on (sender, hash), so
// concurrent identical submissions collapse to one row.
type ProcessedStore interface {
	// LastByKey returns the most recent package-level record for a package
	// name, or ok=false when none exists.
	LastByKey(ctx context.Context, key string) (dedup.Record, bool, error)

	// SeenHash returns the record for a (sender, content hash) pair, or
	// ok=false when the content has not been seen for that sender.
	SeenHash(ctx context.Context, senderID, hash string) (dedup.Record, bool, error)

	// Register upserts a record with the final status of a processing
	// attempt. Called after every attempt that was not itself rejected as a
	// duplicate.
	Register(ctx context.Context, rec dedup.Record) error
}

// -----------------------------------------------------------------------------
// I/O Ports
// -----------------------------------------------------------------------------

// DatasetReader parses a tabular file into a dataset.
type DatasetReader interface {
	// ReadFile loads a CSV or XLSX file, dispatching on extension.
	ReadFile(path string) (*dataset.Dataset, error)
}

// Notifier receives the final report of a processing run. Transport-specific
// formatting and delivery live behind this port, outside the core.
type Notifier interface {
	Notify(ctx context.Context, report *diagnostic.Report) error
}
