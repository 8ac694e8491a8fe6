package db

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

const schema = `
-- Outgoing sync event queue. Append-only audit trail: rows are never
-- deleted, only their sync status changes. seq is the flush order:
-- created_at ties (same-instant batches) must still push in the order
-- they were recorded.
CREATE TABLE IF NOT EXISTS sync_events (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    id          TEXT NOT NULL UNIQUE,
    event_type  TEXT NOT NULL,
    payload     JSON NOT NULL,
    created_at  DATETIME NOT NULL,
    synced_at   DATETIME,
    status      TEXT NOT NULL DEFAULT 'pending',
    retry_count INTEGER NOT NULL DEFAULT 0,
    last_error  TEXT DEFAULT ''
);

-- Supports the "all pending, in recorded order" flush query.
CREATE INDEX IF NOT EXISTS idx_sync_events_status_seq
    ON sync_events(status, seq);

-- Read-only copies of remote views, served when offline. Never merged
-- into authoritative local records.
CREATE TABLE IF NOT EXISTS replica_cache (
    view      TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    payload   JSON NOT NULL,
    cached_at DATETIME NOT NULL,
    PRIMARY KEY (view, tenant_id)
);

-- Frozen dashboard resolutions for offline display.
CREATE TABLE IF NOT EXISTS dashboard_snapshots (
    snapshot_id  TEXT PRIMARY KEY,
    dashboard_id TEXT NOT NULL,
    subject_id   TEXT NOT NULL,
    tenant_id    TEXT NOT NULL,
    checksum     TEXT NOT NULL,
    payload      JSON NOT NULL,
    evaluated_at DATETIME NOT NULL,
    expires_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dashboard_snapshots_subject
    ON dashboard_snapshots(subject_id, tenant_id, dashboard_id);

-- Schema metadata
CREATE TABLE IF NOT EXISTS schema_info (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
