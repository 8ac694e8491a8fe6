package models

import (
	"encoding/json"
	"time"
)

// Replica source labels. Remote views are display-only and never merged
// back into authoritative local records.
const (
	SourceRemote  = "remote"
	SourceReplica = "replica"
)

// InventoryItem is one stock line in a remote inventory view.
type InventoryItem struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// InventoryView is the remote read-only inventory for a tenant.
type InventoryView struct {
	TenantID string          `json:"tenant_id"`
	Items    []InventoryItem `json:"items"`
	CachedAt time.Time       `json:"cached_at"`
	Source   string          `json:"source"`
}

// LedgerEntry is one row of the remote sales ledger.
type LedgerEntry struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// LedgerView is the remote read-only ledger for a tenant.
type LedgerView struct {
	TenantID string        `json:"tenant_id"`
	Entries  []LedgerEntry `json:"entries"`
	CachedAt time.Time     `json:"cached_at"`
	Source   string        `json:"source"`
}

// RemoteSyncStatus is the remote side's view of what it has received.
type RemoteSyncStatus struct {
	TenantID      string     `json:"tenant_id"`
	EventCount    int64      `json:"event_count"`
	LastEventTime *time.Time `json:"last_event_time,omitempty"`
	CachedAt      time.Time  `json:"cached_at"`
	Source        string     `json:"source"`
}
