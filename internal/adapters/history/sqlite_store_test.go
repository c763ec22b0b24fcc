package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/core"
)

func testSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	s, err := NewSQLiteStore(dbPath, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func historyRecord(id, date string, hour int) *core.MessageRecord {
	ts, _ := time.Parse(core.DateLayout, date)
	return &core.MessageRecord{
		ID:                   id,
		Timestamp:            ts.Add(time.Duration(hour) * time.Hour),
		Sender:               "a@b.com",
		Subject:              "subject " + id,
		Classification:       core.ClassOther,
		ClassificationSource: core.SourceFallback,
		SenderGroup:          core.GroupUnassigned,
	}
}

func TestSQLiteRecordAndCount(t *testing.T) {
	s := testSQLiteStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, historyRecord("1", "2024-03-15", 9)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, historyRecord("2", "2024-03-15", 14)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, historyRecord("3", "2024-03-16", 10)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	count, err := s.CountForDate(ctx, "2024-03-15")
	if err != nil {
		t.Fatalf("CountForDate: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	count, _ = s.CountForDate(ctx, "2024-03-17")
	if count != 0 {
		t.Fatalf("count for empty date = %d, want 0", count)
	}
}

func TestSQLiteDuplicateIgnored(t *testing.T) {
	s := testSQLiteStore(t)
	ctx := context.Background()

	rec := historyRecord("1", "2024-03-15", 9)
	if err := s.Record(ctx, rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, rec); err != nil {
		t.Fatalf("duplicate Record: %v", err)
	}

	count, _ := s.CountForDate(ctx, "2024-03-15")
	if count != 1 {
		t.Fatalf("count = %d after duplicate insert, want 1", count)
	}
}

func TestSQLitePurge(t *testing.T) {
	s := testSQLiteStore(t)
	ctx := context.Background()

	s.Record(ctx, historyRecord("1", "2024-02-01", 9))
	s.Record(ctx, historyRecord("2", "2024-02-10", 9))
	s.Record(ctx, historyRecord("3", "2024-03-15", 9))

	removed, err := s.Purge(ctx, "2024-03-01")
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	// The cutoff date itself is kept
	count, _ := s.CountForDate(ctx, "2024-03-15")
	if count != 1 {
		t.Fatalf("count = %d after purge, want 1", count)
	}

	removed, _ = s.Purge(ctx, "2024-03-01")
	if removed != 0 {
		t.Fatalf("second purge removed %d, want 0", removed)
	}
}
