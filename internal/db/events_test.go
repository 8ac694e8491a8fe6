package db

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tillworks/till/internal/models"
)

func setupDB(t *testing.T) *DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// The pool must not open a second connection: each :memory:
	// connection is a separate database.
	conn.SetMaxOpenConns(1)
	store, err := OpenConn(conn)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func makeEvent(id string, createdAt time.Time) models.SyncEvent {
	return models.SyncEvent{
		ID:        id,
		Type:      models.EventSale,
		Payload:   json.RawMessage(`{"sale_id":"s1","total_cents":100}`),
		CreatedAt: createdAt,
		Status:    models.StatusPending,
	}
}

func TestInsertEvent_OneRecordPerCall(t *testing.T) {
	store := setupDB(t)
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"e1", "e2", "e3"} {
		if err := store.InsertEvent(makeEvent(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	events, err := store.PendingEvents()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("pending: got %d, want 3", len(events))
	}
	for _, ev := range events {
		if ev.Status != models.StatusPending {
			t.Errorf("event %s status: got %s, want pending", ev.ID, ev.Status)
		}
		if ev.RetryCount != 0 {
			t.Errorf("event %s retry_count: got %d, want 0", ev.ID, ev.RetryCount)
		}
		if ev.SyncedAt != nil {
			t.Errorf("event %s synced_at should be nil", ev.ID)
		}
	}
}

func TestPendingEvents_RecordedOrder(t *testing.T) {
	store := setupDB(t)
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	// Recorded order is authoritative even when created_at disagrees
	// (e.g. after a wall clock correction between enqueues).
	for _, ev := range []models.SyncEvent{
		makeEvent("b", base.Add(2 * time.Second)),
		makeEvent("a", base.Add(1 * time.Second)),
		makeEvent("c", base.Add(3 * time.Second)),
	} {
		if err := store.InsertEvent(ev); err != nil {
			t.Fatalf("insert %s: %v", ev.ID, err)
		}
	}

	events, err := store.PendingEvents()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	want := []string{"b", "a", "c"}
	for i, ev := range events {
		if ev.ID != want[i] {
			t.Fatalf("order: got %s at %d, want %s", ev.ID, i, want[i])
		}
	}
}

func TestPendingEvents_SameTimestampKeepsRecordedOrder(t *testing.T) {
	store := setupDB(t)
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	// All four share one created_at, as happens when a batch is recorded
	// within a single clock tick. The ids are shuffled lexically so a
	// tie-break on id would reorder them.
	want := []string{"z9", "a1", "m5", "c3"}
	for _, id := range want {
		if err := store.InsertEvent(makeEvent(id, now)); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	events, err := store.PendingEvents()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(events) != len(want) {
		t.Fatalf("pending: got %d, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.ID != want[i] {
			t.Fatalf("order: got %s at %d, want %s", ev.ID, i, want[i])
		}
	}
}

func TestMarkEventSynced_Idempotent(t *testing.T) {
	store := setupDB(t)
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	if err := store.InsertEvent(makeEvent("e1", now)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	updated, err := store.MarkEventSynced("e1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if !updated {
		t.Fatal("first mark should update")
	}

	// Second attempt must not touch the row: status guard filters it out
	updated, err = store.MarkEventSynced("e1", now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if updated {
		t.Fatal("second mark should be a no-op")
	}

	ev, err := store.GetEvent("e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ev.Status != models.StatusSynced {
		t.Fatalf("status: got %s, want synced", ev.Status)
	}
	if ev.SyncedAt == nil || !ev.SyncedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("synced_at: got %v, want %v", ev.SyncedAt, now.Add(time.Minute))
	}
}

func TestRecordPushFailure_RetryBound(t *testing.T) {
	store := setupDB(t)
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	if err := store.InsertEvent(makeEvent("e1", now)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const maxRetries = 3

	// Failures 1..3 keep the event pending
	for i := 1; i <= maxRetries; i++ {
		if err := store.RecordPushFailure("e1", maxRetries, "connection refused"); err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
		ev, err := store.GetEvent("e1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if ev.RetryCount != i {
			t.Fatalf("retry_count after %d failures: got %d", i, ev.RetryCount)
		}
		if ev.Status != models.StatusPending {
			t.Fatalf("status after %d failures: got %s, want pending", i, ev.Status)
		}
	}

	// Failure 4 exceeds the budget
	if err := store.RecordPushFailure("e1", maxRetries, "connection refused"); err != nil {
		t.Fatalf("final failure: %v", err)
	}
	ev, err := store.GetEvent("e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ev.Status != models.StatusFailed {
		t.Fatalf("status: got %s, want failed", ev.Status)
	}
	if ev.RetryCount != maxRetries+1 {
		t.Fatalf("retry_count: got %d, want %d", ev.RetryCount, maxRetries+1)
	}
	if ev.LastError != "connection refused" {
		t.Fatalf("last_error: got %q", ev.LastError)
	}

	// Failed events leave the pending queue but stay queryable
	pending, _ := store.PendingEvents()
	if len(pending) != 0 {
		t.Fatalf("pending: got %d, want 0", len(pending))
	}
	failed, err := store.EventsByStatus(models.StatusFailed)
	if err != nil {
		t.Fatalf("failed query: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "e1" {
		t.Fatalf("failed events: %+v", failed)
	}
}

func TestCountEvents(t *testing.T) {
	store := setupDB(t)
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"e1", "e2", "e3"} {
		if err := store.InsertEvent(makeEvent(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if _, err := store.MarkEventSynced("e1", base.Add(time.Minute)); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := store.RecordPushFailure("e2", 0, "boom"); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	counts, err := store.CountEvents()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts.Pending != 1 || counts.Synced != 1 || counts.Failed != 1 {
		t.Fatalf("counts: %+v", counts)
	}
}

func TestGetEvent_Missing(t *testing.T) {
	store := setupDB(t)
	ev, err := store.GetEvent("nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ev != nil {
		t.Fatalf("expected nil, got %+v", ev)
	}
}
