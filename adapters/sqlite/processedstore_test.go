package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/sage/adapters/sqlite"
	"github.com/artpar/sage/domain/dedup"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestRegisterAndLastByKey(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewProcessedStore(setupTestDB(t))

	if _, found, err := store.LastByKey(ctx, "monthly"); err != nil || found {
		t.Fatalf("empty store: found=%v err=%v", found, err)
	}

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []dedup.Record{
		{ID: "1", Key: "monthly", ModifiedAt: base, ProcessedAt: base, Status: dedup.StatusProcessed},
		{ID: "2", Key: "monthly", ModifiedAt: base.Add(time.Hour), ProcessedAt: base.Add(time.Hour), Status: dedup.StatusError, ErrorMessage: "3 findings"},
		{ID: "3", Key: "weekly", ModifiedAt: base, ProcessedAt: base, Status: dedup.StatusProcessed},
	}
	for _, rec := range records {
		if err := store.Register(ctx, rec); err != nil {
			t.Fatalf("Register %s: %v", rec.ID, err)
		}
	}

	last, found, err := store.LastByKey(ctx, "monthly")
	if err != nil || !found {
		t.Fatalf("LastByKey: found=%v err=%v", found, err)
	}
	if last.ID != "2" {
		t.Errorf("last record = %s, want 2", last.ID)
	}
	if last.Status != dedup.StatusError || last.ErrorMessage != "3 findings" {
		t.Errorf("record = %+v", last)
	}
	if !last.ModifiedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("modified_at = %s", last.ModifiedAt)
	}
}

func TestPackageHistoryAppends(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	store := sqlite.NewProcessedStore(db)

	now := time.Now().UTC()
	for i, id := range []string{"1", "2"} {
		rec := dedup.Record{ID: id, Key: "monthly", ProcessedAt: now.Add(time.Duration(i) * time.Minute), Status: dedup.StatusProcessed}
		if err := store.Register(ctx, rec); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM processed_records WHERE key = 'monthly'").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 package-level rows", count)
	}
}

func TestSeenHash_UpsertPerSender(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	store := sqlite.NewProcessedStore(db)

	now := time.Now().UTC()
	first := dedup.Record{ID: "1", Key: "monthly", SenderID: "acme", Hash: "abc", ProcessedAt: now, Status: dedup.StatusError, ErrorMessage: "bad rows"}
	if err := store.Register(ctx, first); err != nil {
		t.Fatalf("Register: %v", err)
	}

	rec, seen, err := store.SeenHash(ctx, "acme", "abc")
	if err != nil || !seen {
		t.Fatalf("SeenHash: seen=%v err=%v", seen, err)
	}
	if rec.Status != dedup.StatusError {
		t.Errorf("status = %s", rec.Status)
	}

	second := first
	second.ID = "2"
	second.Status = dedup.StatusProcessed
	second.ErrorMessage = ""
	second.ProcessedAt = now.Add(time.Minute)
	if err := store.Register(ctx, second); err != nil {
		t.Fatalf("upsert Register: %v", err)
	}

	rec, _, _ = store.SeenHash(ctx, "acme", "abc")
	if rec.Status != dedup.StatusProcessed || rec.ErrorMessage != "" {
		t.Errorf("record after upsert = %+v", rec)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM processed_records WHERE hash = 'abc'").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 row per (sender, hash)", count)
	}

	if _, seen, _ := store.SeenHash(ctx, "other", "abc"); seen {
		t.Error("hash must be scoped per sender")
	}
}
