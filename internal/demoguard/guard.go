// Package demoguard blocks irreversible operations while the client runs
// under the canonical demo identity. The policy table is a hard-coded
// safety net, not user configuration, and a denial is never retryable.
package demoguard

// Canonical demo identity. Exact-match comparison only.
const (
	DemoPartnerSlug = "till-demo"
	DemoTenantSlug  = "demo-counter"
)

// OperationKind classifies operations the guard knows about.
type OperationKind string

const (
	OpDelete       OperationKind = "delete"
	OpPayment      OperationKind = "payment"
	OpIrreversible OperationKind = "irreversible"
	OpExport       OperationKind = "export"
)

// Decision is the guard's verdict. Reason is user-readable and only set on
// denial.
type Decision struct {
	Allowed bool
	Reason  string
}

// demoPolicy maps operation kinds to verdicts under the demo identity.
// Export stays allowed: demo data leaving the system is harmless, demo
// money moving is not.
var demoPolicy = map[OperationKind]Decision{
	OpDelete:       {Allowed: false, Reason: "deleting records is disabled on the demo register"},
	OpPayment:      {Allowed: false, Reason: "payments cannot be taken on the demo register"},
	OpIrreversible: {Allowed: false, Reason: "this action cannot be undone and is disabled on the demo register"},
	OpExport:       {Allowed: true},
}

// IsDemoIdentity reports whether the active context is the canonical demo
// identity. An explicit upstream flag, when provided, is authoritative and
// short-circuits slug comparison.
func IsDemoIdentity(partnerSlug, tenantSlug string, explicit *bool) bool {
	if explicit != nil {
		return *explicit
	}
	return partnerSlug == DemoPartnerSlug && tenantSlug == DemoTenantSlug
}

// Guard returns the verdict for an operation under the given identity.
// Non-demo identities are always allowed.
func Guard(partnerSlug, tenantSlug string, op OperationKind) Decision {
	return GuardWithFlag(partnerSlug, tenantSlug, nil, op)
}

// GuardWithFlag is Guard with an explicit demo flag from upstream.
func GuardWithFlag(partnerSlug, tenantSlug string, explicit *bool, op OperationKind) Decision {
	if !IsDemoIdentity(partnerSlug, tenantSlug, explicit) {
		return Decision{Allowed: true}
	}
	if d, ok := demoPolicy[op]; ok {
		return d
	}
	// Unknown kinds are not guarded.
	return Decision{Allowed: true}
}
