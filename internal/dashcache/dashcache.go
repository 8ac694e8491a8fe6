// Package dashcache freezes dashboard resolutions so they can be displayed
// offline without re-evaluating policy. Snapshots are immutable; a refresh
// always creates a new snapshot.
package dashcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/tillworks/till/internal/models"
)

// DefaultTTL is how long a frozen snapshot stays renderable.
const DefaultTTL = time.Hour

// Snapshot wraps a resolved dashboard with identity, a content-derived
// checksum, and an expiry.
type Snapshot struct {
	SnapshotID  string                   `json:"snapshot_id"`
	DashboardID string                   `json:"dashboard_id"`
	SubjectID   string                   `json:"subject_id"`
	TenantID    string                   `json:"tenant_id"`
	Checksum    string                   `json:"checksum"`
	EvaluatedAt time.Time                `json:"evaluated_at"`
	ExpiresAt   time.Time                `json:"expires_at"`
	Resolved    models.ResolvedDashboard `json:"resolved"`
}

// Cache freezes and validates snapshots against an injected clock.
type Cache struct {
	clock clockwork.Clock
	ttl   time.Duration
}

// New creates a cache with the default TTL.
func New(clock clockwork.Clock) *Cache {
	return &Cache{clock: clock, ttl: DefaultTTL}
}

// NewWithTTL creates a cache with a custom TTL.
func NewWithTTL(clock clockwork.Clock, ttl time.Duration) *Cache {
	return &Cache{clock: clock, ttl: ttl}
}

// Freeze wraps a resolution in a new immutable snapshot.
func (c *Cache) Freeze(resolved models.ResolvedDashboard, subjectID, tenantID string) Snapshot {
	now := c.clock.Now().UTC()
	return Snapshot{
		SnapshotID:  uuid.NewString(),
		DashboardID: resolved.DashboardID,
		SubjectID:   subjectID,
		TenantID:    tenantID,
		Checksum:    checksum(resolved, subjectID, now),
		EvaluatedAt: now,
		ExpiresAt:   now.Add(c.ttl),
		Resolved:    resolved,
	}
}

// Validate reports whether a snapshot may still be rendered without
// re-resolution: it must carry an id and a checksum matching its content,
// and must not be past its expiry.
func (c *Cache) Validate(snap Snapshot) bool {
	if snap.SnapshotID == "" || snap.Checksum == "" {
		return false
	}
	if snap.Checksum != checksum(snap.Resolved, snap.SubjectID, snap.EvaluatedAt) {
		return false
	}
	return !c.clock.Now().After(snap.ExpiresAt)
}

// checksum derives a digest that changes whenever the dashboard id, subject,
// or visible/hidden partition changes. The evaluation time is mixed in so
// two resolutions of the same content remain distinguishable.
func checksum(resolved models.ResolvedDashboard, subjectID string, evaluatedAt time.Time) string {
	visible := make([]string, 0, len(resolved.VisibleSections))
	for _, s := range resolved.VisibleSections {
		visible = append(visible, s.ID)
	}
	material := fmt.Sprintf("%s|%s|%s|%s|%d",
		resolved.DashboardID,
		subjectID,
		strings.Join(visible, ","),
		strings.Join(resolved.HiddenSections, ","),
		evaluatedAt.UnixNano(),
	)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}
