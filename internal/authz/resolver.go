package authz

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tillworks/till/internal/models"
)

// ErrMalformedDeclaration marks a configuration defect: a declaration the
// resolver refuses to evaluate. Loud by design so a deployment bug is never
// mistaken for an authorization denial.
var ErrMalformedDeclaration = errors.New("malformed dashboard declaration")

// gateCheck pairs a requirement list with the snapshot set it is checked
// against and the reason kind reported on failure.
type gateCheck struct {
	kind      models.ReasonKind
	required  []string
	available Set
}

// evaluateGates runs the fixed capability → entitlement → feature order and
// returns the first failing gate. The ordering is a tie-break contract, not
// an implementation accident: an element missing both a capability and an
// entitlement is always reported as missing the capability.
func evaluateGates(checks []gateCheck) (models.ReasonKind, []string, bool) {
	for _, c := range checks {
		if res := CheckGates(c.required, c.available); !res.Allowed {
			return c.kind, res.Missing, false
		}
	}
	return "", nil, true
}

func declarationChecks(caps, ents, feats []string, snap Snapshot) []gateCheck {
	return []gateCheck{
		{models.ReasonMissingCapability, caps, snap.Capabilities},
		{models.ReasonMissingEntitlement, ents, snap.Entitlements},
		{models.ReasonMissingFeature, feats, snap.FeatureFlags},
	}
}

// Resolve computes the visible/hidden partition of a dashboard declaration
// for the given snapshot. Every declared section lands in exactly one of the
// two output lists, and every hidden section carries exactly one reason.
func Resolve(decl models.DashboardDeclaration, snap Snapshot) (models.ResolvedDashboard, error) {
	if decl.ID == "" {
		return models.ResolvedDashboard{}, fmt.Errorf("%w: empty dashboard id", ErrMalformedDeclaration)
	}
	if len(decl.Sections) == 0 {
		return models.ResolvedDashboard{}, fmt.Errorf("%w: dashboard %q has no sections", ErrMalformedDeclaration, decl.ID)
	}

	resolved := models.ResolvedDashboard{DashboardID: decl.ID}

	// Declaration-level gates deny the whole surface with a single
	// top-level reason naming the first failing gate kind.
	kind, missing, ok := evaluateGates(declarationChecks(
		decl.RequiredCapabilities, decl.RequiredEntitlements, decl.RequiredFeatures, snap))
	if !ok {
		resolved.VisibleSections = []models.DashboardSection{}
		for _, section := range decl.Sections {
			resolved.HiddenSections = append(resolved.HiddenSections, section.ID)
		}
		resolved.Reasons = []models.HiddenReason{{SectionID: decl.ID, Kind: kind, Missing: missing}}
		return resolved, nil
	}

	for _, section := range decl.Sections {
		kind, missing, ok := evaluateGates(declarationChecks(
			section.RequiredCapabilities, section.RequiredEntitlements, section.RequiredFeatures, snap))
		if !ok {
			resolved.HiddenSections = append(resolved.HiddenSections, section.ID)
			resolved.Reasons = append(resolved.Reasons, models.HiddenReason{
				SectionID: section.ID,
				Kind:      kind,
				Missing:   missing,
			})
			continue
		}
		resolved.VisibleSections = append(resolved.VisibleSections, section)
	}

	// Declared order is preserved; an explicit order field wins. The sort
	// is stable so ties keep declaration order.
	sort.SliceStable(resolved.VisibleSections, func(i, j int) bool {
		return resolved.VisibleSections[i].Order < resolved.VisibleSections[j].Order
	})

	if resolved.VisibleSections == nil {
		resolved.VisibleSections = []models.DashboardSection{}
	}
	return resolved, nil
}
