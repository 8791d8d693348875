// Package memory provides in-memory implementations of storage ports,
// used for tests and database-less runs.
package memory

import (
	"context"
	"sync"

	"github.com/artpar/sage/domain/dedup"
	"github.com/artpar/sage/ports"
)

// ProcessedStore implements ports.ProcessedStore in memory.
type ProcessedStore struct {
	mu      sync.RWMutex
	records []dedup.Record
	byHash  map[string]int // senderID + "\x00" + hash -> index into records
}

var _ ports.ProcessedStore = (*ProcessedStore)(nil)

// NewProcessedStore creates an empty in-memory processed store.
func NewProcessedStore() *ProcessedStore {
	return &ProcessedStore{byHash: make(map[string]int)}
}

// LastByKey returns the most recently registered package-level record for key.
func (s *ProcessedStore) LastByKey(ctx context.Context, key string) (dedup.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := false
	var last dedup.Record
	for _, r := range s.records {
		if r.Hash != "" || r.Key != key {
			continue
		}
		if !found || r.ProcessedAt.After(last.ProcessedAt) {
			last = r
			found = true
		}
	}
	return last, found, nil
}

// SeenHash returns the record for a (sender, hash) pair.
func (s *ProcessedStore) SeenHash(ctx context.Context, senderID, hash string) (dedup.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byHash[senderID+"\x00"+hash]
	if !ok {
		return dedup.Record{}, false, nil
	}
	return s.records[i], true, nil
}

// Register appends a package-level record, or upserts a file-level record on
// its (sender, hash) key.
func (s *ProcessedStore) Register(ctx context.Context, rec dedup.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Hash != "" {
		k := rec.SenderID + "\x00" + rec.Hash
		if i, ok := s.byHash[k]; ok {
			s.records[i] = rec
			return nil
		}
		s.records = append(s.records, rec)
		s.byHash[k] = len(s.records) - 1
		return nil
	}

	s.records = append(s.records, rec)
	return nil
}

// Len reports the number of stored records (for tests).
func (s *ProcessedStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
