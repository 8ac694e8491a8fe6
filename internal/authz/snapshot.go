package authz

import "time"

// Snapshot is the frozen authorization context for a subject at evaluation
// time. It is rebuilt whenever the controlling session changes and is never
// persisted as authoritative state — caching it is for offline display only.
type Snapshot struct {
	SubjectID      string
	SubjectType    string
	TenantID       string
	PartnerID      string
	Capabilities   Set
	Entitlements   Set
	FeatureFlags   Set
	EvaluationTime time.Time
}

// NewSnapshot assembles a snapshot from grant lists.
func NewSnapshot(subjectID, subjectType, tenantID, partnerID string, capabilities, entitlements, features []string, at time.Time) Snapshot {
	return Snapshot{
		SubjectID:      subjectID,
		SubjectType:    subjectType,
		TenantID:       tenantID,
		PartnerID:      partnerID,
		Capabilities:   NewSet(capabilities...),
		Entitlements:   NewSet(entitlements...),
		FeatureFlags:   NewSet(features...),
		EvaluationTime: at,
	}
}
