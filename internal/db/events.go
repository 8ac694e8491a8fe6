package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tillworks/till/internal/models"
)

// EventCounts aggregates the queue by status.
type EventCounts struct {
	Pending int64
	Synced  int64
	Failed  int64
}

// InsertEvent appends a new event to the queue. The caller supplies the id
// and creation time so the engine stays the single writer of event state.
func (db *DB) InsertEvent(ev models.SyncEvent) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(
			`INSERT INTO sync_events (id, event_type, payload, created_at, status, retry_count, last_error)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, string(ev.Type), string(ev.Payload),
			ev.CreatedAt.UTC().Format(time.RFC3339Nano),
			string(ev.Status), ev.RetryCount, ev.LastError,
		)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
		return nil
	})
}

// PendingEvents returns all pending events in the order they were
// recorded. The insertion sequence, not created_at, is authoritative:
// a batch recorded within one clock tick still flushes in order.
func (db *DB) PendingEvents() ([]models.SyncEvent, error) {
	return db.queryEvents(
		`SELECT id, event_type, payload, created_at, synced_at, status, retry_count, last_error
		 FROM sync_events WHERE status = 'pending' ORDER BY seq ASC`)
}

// EventsByStatus returns events with the given status in recorded order.
func (db *DB) EventsByStatus(status models.EventStatus) ([]models.SyncEvent, error) {
	return db.queryEvents(
		`SELECT id, event_type, payload, created_at, synced_at, status, retry_count, last_error
		 FROM sync_events WHERE status = ? ORDER BY seq ASC`, string(status))
}

// GetEvent returns a single event by id, or nil when absent.
func (db *DB) GetEvent(id string) (*models.SyncEvent, error) {
	events, err := db.queryEvents(
		`SELECT id, event_type, payload, created_at, synced_at, status, retry_count, last_error
		 FROM sync_events WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// MarkEventSynced flips a pending event to synced. The status guard makes
// the transition idempotent: an event already synced by an overlapping
// flush pass is left untouched.
func (db *DB) MarkEventSynced(id string, syncedAt time.Time) (bool, error) {
	var updated bool
	err := db.withWriteLock(func() error {
		res, err := db.conn.Exec(
			`UPDATE sync_events SET status = 'synced', synced_at = ?, last_error = ''
			 WHERE id = ? AND status = 'pending'`,
			syncedAt.UTC().Format(time.RFC3339Nano), id,
		)
		if err != nil {
			return fmt.Errorf("mark synced %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		updated = n > 0
		return nil
	})
	return updated, err
}

// RecordPushFailure bumps retry_count and flips the event to failed once the
// new count exceeds maxRetries. The single UPDATE keeps the read-modify-write
// atomic under concurrent flush invocations.
func (db *DB) RecordPushFailure(id string, maxRetries int, pushErr string) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(
			`UPDATE sync_events
			 SET retry_count = retry_count + 1,
			     status = CASE WHEN retry_count + 1 > ? THEN 'failed' ELSE 'pending' END,
			     last_error = ?
			 WHERE id = ? AND status = 'pending'`,
			maxRetries, pushErr, id,
		)
		if err != nil {
			return fmt.Errorf("record push failure %s: %w", id, err)
		}
		return nil
	})
}

// CountEvents returns aggregate queue counts by status.
func (db *DB) CountEvents() (EventCounts, error) {
	var counts EventCounts
	rows, err := db.conn.Query(`SELECT status, COUNT(*) FROM sync_events GROUP BY status`)
	if err != nil {
		return counts, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return counts, fmt.Errorf("scan count: %w", err)
		}
		switch models.EventStatus(status) {
		case models.StatusPending:
			counts.Pending = n
		case models.StatusSynced:
			counts.Synced = n
		case models.StatusFailed:
			counts.Failed = n
		}
	}
	return counts, rows.Err()
}

func (db *DB) queryEvents(query string, args ...any) ([]models.SyncEvent, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.SyncEvent
	for rows.Next() {
		var (
			ev        models.SyncEvent
			eventType string
			payload   string
			createdAt string
			syncedAt  sql.NullString
			status    string
		)
		if err := rows.Scan(&ev.ID, &eventType, &payload, &createdAt, &syncedAt, &status, &ev.RetryCount, &ev.LastError); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = models.EventType(eventType)
		ev.Status = models.EventStatus(status)
		ev.Payload = json.RawMessage(payload)

		ev.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", ev.ID, err)
		}
		if syncedAt.Valid && syncedAt.String != "" {
			ts, err := parseTimestamp(syncedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse synced_at for %s: %w", ev.ID, err)
			}
			ev.SyncedAt = &ts
		}

		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return events, nil
}

// parseTimestamp tries common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
