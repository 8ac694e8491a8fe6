package dashcache

import (
	"database/sql"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/tillworks/till/internal/db"
	"github.com/tillworks/till/internal/models"
)

func testStore(t *testing.T) *db.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	store, err := db.OpenConn(conn)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testResolution() models.ResolvedDashboard {
	return models.ResolvedDashboard{
		DashboardID: "register-home",
		VisibleSections: []models.DashboardSection{
			{ID: "sales-summary", Label: "Sales summary", Order: 1},
			{ID: "labs", Label: "Labs", Order: 2},
		},
		HiddenSections: []string{"payouts"},
		Reasons: []models.HiddenReason{
			{SectionID: "payouts", Kind: models.ReasonMissingCapability, Missing: []string{"payouts.read"}},
		},
	}
}

func TestFreeze(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := New(clock)

	snap := cache.Freeze(testResolution(), "u1", "t1")

	if snap.SnapshotID == "" {
		t.Fatal("snapshot id not assigned")
	}
	if snap.Checksum == "" {
		t.Fatal("checksum not computed")
	}
	if snap.DashboardID != "register-home" || snap.SubjectID != "u1" || snap.TenantID != "t1" {
		t.Fatalf("identity fields: %+v", snap)
	}
	if got, want := snap.ExpiresAt.Sub(snap.EvaluatedAt), DefaultTTL; got != want {
		t.Fatalf("ttl: got %v, want %v", got, want)
	}
	if !cache.Validate(snap) {
		t.Fatal("fresh snapshot must validate")
	}

	// Each freeze is a distinct snapshot even for identical content
	again := cache.Freeze(testResolution(), "u1", "t1")
	if again.SnapshotID == snap.SnapshotID {
		t.Fatal("snapshot ids must be unique")
	}
}

func TestValidate_Expiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewWithTTL(clock, time.Minute)
	snap := cache.Freeze(testResolution(), "u1", "t1")

	clock.Advance(59 * time.Second)
	if !cache.Validate(snap) {
		t.Fatal("snapshot inside ttl must validate")
	}

	clock.Advance(2 * time.Second)
	if cache.Validate(snap) {
		t.Fatal("expired snapshot must not validate")
	}
}

func TestValidate_RejectsTampering(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := New(clock)
	snap := cache.Freeze(testResolution(), "u1", "t1")

	tampered := snap
	tampered.Resolved.HiddenSections = nil
	if cache.Validate(tampered) {
		t.Fatal("altered partition must fail the checksum")
	}

	tampered = snap
	tampered.SubjectID = "someone-else"
	if cache.Validate(tampered) {
		t.Fatal("altered subject must fail the checksum")
	}

	tampered = snap
	tampered.SnapshotID = ""
	if cache.Validate(tampered) {
		t.Fatal("snapshot without id must not validate")
	}

	tampered = snap
	tampered.Checksum = ""
	if cache.Validate(tampered) {
		t.Fatal("snapshot without checksum must not validate")
	}
}

func TestFreeze_ChecksumVariesByInput(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := New(clock)
	resolved := testResolution()

	forU1 := cache.Freeze(resolved, "u1", "t1")
	forU2 := cache.Freeze(resolved, "u2", "t1")
	if forU1.Checksum == forU2.Checksum {
		t.Fatal("checksum must differ per subject")
	}

	clock.Advance(time.Second)
	later := cache.Freeze(resolved, "u1", "t1")
	if later.Checksum == forU1.Checksum {
		t.Fatal("checksum must differ per evaluation time")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := testStore(t)
	clock := clockwork.NewFakeClock()
	cache := New(clock)

	frozen := cache.Freeze(testResolution(), "u1", "t1")
	if err := cache.Save(store, frozen); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := cache.Load(store, "u1", "t1", "register-home")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a snapshot")
	}
	if loaded.SnapshotID != frozen.SnapshotID {
		t.Fatalf("snapshot id: got %s, want %s", loaded.SnapshotID, frozen.SnapshotID)
	}
	if loaded.Checksum != frozen.Checksum {
		t.Fatalf("checksum: got %s, want %s", loaded.Checksum, frozen.Checksum)
	}
	if len(loaded.Resolved.VisibleSections) != 2 || loaded.Resolved.VisibleSections[0].ID != "sales-summary" {
		t.Fatalf("resolved payload: %+v", loaded.Resolved)
	}
	if len(loaded.Resolved.Reasons) != 1 || loaded.Resolved.Reasons[0].SectionID != "payouts" {
		t.Fatalf("reasons payload: %+v", loaded.Resolved.Reasons)
	}
}

func TestLoad_MissReturnsNil(t *testing.T) {
	store := testStore(t)
	cache := New(clockwork.NewFakeClock())

	loaded, err := cache.Load(store, "u1", "t1", "register-home")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected miss, got %+v", loaded)
	}
}

func TestLoad_ExpiredSnapshotIsAMiss(t *testing.T) {
	store := testStore(t)
	clock := clockwork.NewFakeClock()
	cache := NewWithTTL(clock, time.Minute)

	frozen := cache.Freeze(testResolution(), "u1", "t1")
	if err := cache.Save(store, frozen); err != nil {
		t.Fatalf("save: %v", err)
	}

	clock.Advance(2 * time.Minute)
	loaded, err := cache.Load(store, "u1", "t1", "register-home")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != nil {
		t.Fatal("expired snapshot must force re-resolution")
	}
}

func TestLoad_ReturnsLatestSnapshot(t *testing.T) {
	store := testStore(t)
	clock := clockwork.NewFakeClock()
	cache := New(clock)

	first := cache.Freeze(testResolution(), "u1", "t1")
	if err := cache.Save(store, first); err != nil {
		t.Fatalf("save: %v", err)
	}

	clock.Advance(time.Minute)
	refreshed := testResolution()
	refreshed.VisibleSections = refreshed.VisibleSections[:1]
	second := cache.Freeze(refreshed, "u1", "t1")
	if err := cache.Save(store, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := cache.Load(store, "u1", "t1", "register-home")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil || loaded.SnapshotID != second.SnapshotID {
		t.Fatalf("expected latest snapshot %s, got %+v", second.SnapshotID, loaded)
	}
}
