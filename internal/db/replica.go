package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// CachedView is a stored copy of a remote read-only view.
type CachedView struct {
	View     string
	TenantID string
	Payload  json.RawMessage
	CachedAt time.Time
}

// SaveReplica stores (or replaces) the cached copy of a remote view.
func (db *DB) SaveReplica(view, tenantID string, payload json.RawMessage, cachedAt time.Time) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(
			`INSERT OR REPLACE INTO replica_cache (view, tenant_id, payload, cached_at)
			 VALUES (?, ?, ?, ?)`,
			view, tenantID, string(payload), cachedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("save replica %s/%s: %w", view, tenantID, err)
		}
		return nil
	})
}

// GetReplica returns the cached copy of a remote view, or nil when no copy
// has been stored yet.
func (db *DB) GetReplica(view, tenantID string) (*CachedView, error) {
	var (
		cv       CachedView
		payload  string
		cachedAt string
	)
	err := db.conn.QueryRow(
		`SELECT view, tenant_id, payload, cached_at FROM replica_cache WHERE view = ? AND tenant_id = ?`,
		view, tenantID,
	).Scan(&cv.View, &cv.TenantID, &payload, &cachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get replica %s/%s: %w", view, tenantID, err)
	}

	cv.Payload = json.RawMessage(payload)
	cv.CachedAt, err = parseTimestamp(cachedAt)
	if err != nil {
		return nil, fmt.Errorf("parse cached_at: %w", err)
	}
	return &cv, nil
}
