package dashcache

import (
	"encoding/json"
	"fmt"

	"github.com/tillworks/till/internal/db"
	"github.com/tillworks/till/internal/models"
)

// Save persists a snapshot for offline display.
func (c *Cache) Save(store *db.DB, snap Snapshot) error {
	payload, err := json.Marshal(snap.Resolved)
	if err != nil {
		return fmt.Errorf("marshal resolution: %w", err)
	}
	return store.SaveDashboardSnapshot(db.SnapshotRecord{
		SnapshotID:  snap.SnapshotID,
		DashboardID: snap.DashboardID,
		SubjectID:   snap.SubjectID,
		TenantID:    snap.TenantID,
		Checksum:    snap.Checksum,
		Payload:     payload,
		EvaluatedAt: snap.EvaluatedAt,
		ExpiresAt:   snap.ExpiresAt,
	})
}

// Load returns the latest stored snapshot for a subject/tenant/dashboard if
// it still validates. A miss (nil, nil) means the caller must re-resolve.
func (c *Cache) Load(store *db.DB, subjectID, tenantID, dashboardID string) (*Snapshot, error) {
	rec, err := store.LatestDashboardSnapshot(subjectID, tenantID, dashboardID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	var resolved models.ResolvedDashboard
	if err := json.Unmarshal(rec.Payload, &resolved); err != nil {
		return nil, fmt.Errorf("unmarshal stored resolution %s: %w", rec.SnapshotID, err)
	}

	snap := Snapshot{
		SnapshotID:  rec.SnapshotID,
		DashboardID: rec.DashboardID,
		SubjectID:   rec.SubjectID,
		TenantID:    rec.TenantID,
		Checksum:    rec.Checksum,
		EvaluatedAt: rec.EvaluatedAt,
		ExpiresAt:   rec.ExpiresAt,
		Resolved:    resolved,
	}
	if !c.Validate(snap) {
		return nil, nil
	}
	return &snap, nil
}
