package models

import (
	"encoding/json"
	"time"
)

// EventStatus is the sync lifecycle state of a queued event.
type EventStatus string

const (
	StatusPending EventStatus = "pending"
	StatusSynced  EventStatus = "synced"
	StatusFailed  EventStatus = "failed"
)

// SyncEvent is a locally-generated business event queued for push to the
// remote system-of-record. Rows are append-only: a synced or failed event
// stays queryable as an audit trail.
type SyncEvent struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	SyncedAt   *time.Time      `json:"synced_at,omitempty"`
	Status     EventStatus     `json:"status"`
	RetryCount int             `json:"retry_count"`
	LastError  string          `json:"last_error,omitempty"`
}

// DashboardSection is one gated element of a dashboard declaration.
type DashboardSection struct {
	ID                   string   `json:"id" yaml:"id"`
	Label                string   `json:"label" yaml:"label"`
	Order                int      `json:"order" yaml:"order"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty" yaml:"required_capabilities"`
	RequiredEntitlements []string `json:"required_entitlements,omitempty" yaml:"required_entitlements"`
	RequiredFeatures     []string `json:"required_features,omitempty" yaml:"required_features"`
}

// DashboardDeclaration is the static, externally supplied description of a
// dashboard surface. The resolver never mutates it.
type DashboardDeclaration struct {
	ID                   string             `json:"id" yaml:"id"`
	Label                string             `json:"label" yaml:"label"`
	RequiredCapabilities []string           `json:"required_capabilities,omitempty" yaml:"required_capabilities"`
	RequiredEntitlements []string           `json:"required_entitlements,omitempty" yaml:"required_entitlements"`
	RequiredFeatures     []string           `json:"required_features,omitempty" yaml:"required_features"`
	Sections             []DashboardSection `json:"sections" yaml:"sections"`
}

// ReasonKind classifies why a dashboard element was hidden.
type ReasonKind string

const (
	ReasonMissingCapability  ReasonKind = "missing_capability"
	ReasonMissingEntitlement ReasonKind = "missing_entitlement"
	ReasonMissingFeature     ReasonKind = "missing_feature"
)

// HiddenReason explains a single hidden element. For a declaration-level
// denial SectionID holds the declaration id.
type HiddenReason struct {
	SectionID string     `json:"section_id"`
	Kind      ReasonKind `json:"kind"`
	Missing   []string   `json:"missing"`
}

// ResolvedDashboard is the derived visible/hidden partition of a declaration.
// Invariant: VisibleSections plus HiddenSections cover every declared section
// exactly once.
type ResolvedDashboard struct {
	DashboardID     string             `json:"dashboard_id"`
	VisibleSections []DashboardSection `json:"visible_sections"`
	HiddenSections  []string           `json:"hidden_sections"`
	Reasons         []HiddenReason     `json:"reasons,omitempty"`
}
