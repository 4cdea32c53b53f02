package audit

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func sampleEvents() []Event {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []Event{
		{ID: "e1", RunID: "run-1", Role: "Admin - Grade 8", Question: "Who is absent?", Rows: 2, Status: StatusAnswered, Answer: "Asha", StartedAt: base, FinishedAt: base.Add(time.Second)},
		{ID: "e2", RunID: "run-2", Role: "Admin - Grade 8", Question: "", Rows: 2, Status: StatusRejected, Error: "Please enter a question to ask.", StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute)},
		{ID: "e3", RunID: "run-3", Role: "Super Admin (Platform-Wide)", Question: "How many?", Rows: 3, Status: StatusFailed, Error: "quota", StartedAt: base.Add(2 * time.Minute), FinishedAt: base.Add(2 * time.Minute)},
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	for _, ev := range sampleEvents() {
		if err := store.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	all, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].ID != "e3" || all[2].ID != "e1" {
		t.Errorf("expected newest first, got %s..%s", all[0].ID, all[2].ID)
	}
	if all[2].Answer != "Asha" || all[2].Rows != 2 || all[2].Status != StatusAnswered {
		t.Errorf("unexpected oldest event %+v", all[2])
	}
	if !all[2].StartedAt.Equal(sampleEvents()[0].StartedAt) {
		t.Errorf("expected start time to round-trip, got %v", all[2].StartedAt)
	}

	byRole, _ := store.List(ctx, Filter{Role: "Admin - Grade 8"})
	if len(byRole) != 2 {
		t.Errorf("expected 2 events for role, got %d", len(byRole))
	}
	byStatus, _ := store.List(ctx, Filter{Status: StatusFailed})
	if len(byStatus) != 1 || byStatus[0].ID != "e3" {
		t.Errorf("unexpected status filter result %+v", byStatus)
	}
	limited, _ := store.List(ctx, Filter{Limit: 2})
	if len(limited) != 2 || limited[0].ID != "e3" || limited[1].ID != "e2" {
		t.Errorf("expected limit to keep the most recent events, got %+v", limited)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Record(context.Background(), sampleEvents()[0]); err != nil {
		t.Fatalf("record: %v", err)
	}
	_ = store.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	events, err := reopened.List(context.Background(), Filter{})
	if err != nil || len(events) != 1 {
		t.Fatalf("expected persisted event, got %v %v", events, err)
	}
}

func TestNewSQLiteStoreNilDB(t *testing.T) {
	var db *sql.DB
	if _, err := NewSQLiteStore(db); err == nil {
		t.Fatal("expected error for nil db")
	}
}
