package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/artpar/sage/domain/dedup"
	"github.com/artpar/sage/ports"
)

// ProcessedStore implements ports.ProcessedStore using SQLite.
type ProcessedStore struct {
	db *DB
}

var _ ports.ProcessedStore = (*ProcessedStore)(nil)

// NewProcessedStore creates a new SQLite processed store.
func NewProcessedStore(db *DB) *ProcessedStore {
	return &ProcessedStore{db: db}
}

// LastByKey returns the most recent package-level record for a package name.
func (s *ProcessedStore) LastByKey(ctx context.Context, key string) (dedup.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, sender_id, hash, modified_at, processed_at, status, error_message
		FROM processed_records
		WHERE key = ? AND hash = ''
		ORDER BY processed_at DESC, modified_at DESC
		LIMIT 1
	`, key)
	return scanRecord(row)
}

// SeenHash returns the record for a (sender, content hash) pair.
func (s *ProcessedStore) SeenHash(ctx context.Context, senderID, hash string) (dedup.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, sender_id, hash, modified_at, processed_at, status, error_message
		FROM processed_records
		WHERE sender_id = ? AND hash = ?
		LIMIT 1
	`, senderID, hash)
	return scanRecord(row)
}

// Register stores the outcome of a processing attempt. Package-level records
// append so resubmissions with newer timestamps leave a history; file-level
// records upsert on the (sender, hash) unique index, which also gives
// first-writer-wins semantics for concurrent identical submissions.
func (s *ProcessedStore) Register(ctx context.Context, rec dedup.Record) error {
	if rec.Hash != "" {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO processed_records
				(id, key, sender_id, hash, modified_at, processed_at, status, error_message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (sender_id, hash) WHERE hash != '' DO UPDATE SET
				key = excluded.key,
				processed_at = excluded.processed_at,
				status = excluded.status,
				error_message = excluded.error_message
		`, rec.ID, rec.Key, rec.SenderID, rec.Hash,
			nullableTime(rec.ModifiedAt), rec.ProcessedAt.UTC(), rec.Status, rec.ErrorMessage)
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_records
			(id, key, sender_id, hash, modified_at, processed_at, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Key, rec.SenderID, rec.Hash,
		nullableTime(rec.ModifiedAt), rec.ProcessedAt.UTC(), rec.Status, rec.ErrorMessage)
	return err
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func scanRecord(row *sql.Row) (dedup.Record, bool, error) {
	var (
		rec      dedup.Record
		modified sql.NullTime
		status   string
	)
	err := row.Scan(&rec.ID, &rec.Key, &rec.SenderID, &rec.Hash,
		&modified, &rec.ProcessedAt, &status, &rec.ErrorMessage)
	if err == sql.ErrNoRows {
		return dedup.Record{}, false, nil
	}
	if err != nil {
		return dedup.Record{}, false, err
	}
	if modified.Valid {
		rec.ModifiedAt = modified.Time
	}
	rec.Status = dedup.Status(status)
	return rec, true, nil
}
