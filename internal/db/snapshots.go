package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotRecord is a stored dashboard snapshot row. The payload is the
// serialized resolution; interpretation belongs to the dashboard cache.
type SnapshotRecord struct {
	SnapshotID  string
	DashboardID string
	SubjectID   string
	TenantID    string
	Checksum    string
	Payload     json.RawMessage
	EvaluatedAt time.Time
	ExpiresAt   time.Time
}

// SaveDashboardSnapshot stores a frozen dashboard resolution. Snapshots are
// immutable; a refresh inserts a new row under a new id.
func (db *DB) SaveDashboardSnapshot(rec SnapshotRecord) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(
			`INSERT INTO dashboard_snapshots
			 (snapshot_id, dashboard_id, subject_id, tenant_id, checksum, payload, evaluated_at, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.SnapshotID, rec.DashboardID, rec.SubjectID, rec.TenantID, rec.Checksum,
			string(rec.Payload),
			rec.EvaluatedAt.UTC().Format(time.RFC3339Nano),
			rec.ExpiresAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("save dashboard snapshot %s: %w", rec.SnapshotID, err)
		}
		return nil
	})
}

// LatestDashboardSnapshot returns the most recently evaluated snapshot for a
// subject/tenant/dashboard, or nil when none is stored.
func (db *DB) LatestDashboardSnapshot(subjectID, tenantID, dashboardID string) (*SnapshotRecord, error) {
	var (
		rec         SnapshotRecord
		payload     string
		evaluatedAt string
		expiresAt   string
	)
	err := db.conn.QueryRow(
		`SELECT snapshot_id, dashboard_id, subject_id, tenant_id, checksum, payload, evaluated_at, expires_at
		 FROM dashboard_snapshots
		 WHERE subject_id = ? AND tenant_id = ? AND dashboard_id = ?
		 ORDER BY evaluated_at DESC LIMIT 1`,
		subjectID, tenantID, dashboardID,
	).Scan(&rec.SnapshotID, &rec.DashboardID, &rec.SubjectID, &rec.TenantID,
		&rec.Checksum, &payload, &evaluatedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dashboard snapshot: %w", err)
	}

	rec.Payload = json.RawMessage(payload)
	if rec.EvaluatedAt, err = parseTimestamp(evaluatedAt); err != nil {
		return nil, fmt.Errorf("parse evaluated_at: %w", err)
	}
	if rec.ExpiresAt, err = parseTimestamp(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	return &rec, nil
}
