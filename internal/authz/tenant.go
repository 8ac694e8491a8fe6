package authz

import (
	"sort"

	"github.com/tillworks/till/internal/models"
)

// TenantContext is the flat authorization context used when no nested
// declaration applies — the whole tenant's grants in one place.
type TenantContext struct {
	Capabilities Set
	Entitlements Set
	FeatureFlags Set
}

// SectionSummary is a flat visible-section result.
type SectionSummary struct {
	ID    string
	Label string
	Order int
}

// ResolveTenantSections filters sections directly against a tenant context.
// Gate semantics are identical to the nested resolver: same capability →
// entitlement → feature order, same first-failing-gate reason, via the same
// CheckGates primitive.
func ResolveTenantSections(sections []models.DashboardSection, tctx TenantContext) ([]SectionSummary, []models.HiddenReason) {
	var (
		visible []SectionSummary
		reasons []models.HiddenReason
	)
	for _, section := range sections {
		kind, missing, ok := evaluateGates([]gateCheck{
			{models.ReasonMissingCapability, section.RequiredCapabilities, tctx.Capabilities},
			{models.ReasonMissingEntitlement, section.RequiredEntitlements, tctx.Entitlements},
			{models.ReasonMissingFeature, section.RequiredFeatures, tctx.FeatureFlags},
		})
		if !ok {
			reasons = append(reasons, models.HiddenReason{SectionID: section.ID, Kind: kind, Missing: missing})
			continue
		}
		visible = append(visible, SectionSummary{ID: section.ID, Label: section.Label, Order: section.Order})
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Order < visible[j].Order
	})
	return visible, reasons
}
