// Package control loads the static declaration document supplied by the
// control collaborator: capability and entitlement lists, feature flags
// with defaults, and the dashboard declaration tree. The document is
// read-only input; a malformed one is a deployment defect and fails loudly.
package control

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tillworks/till/internal/models"
)

// FeatureFlag declares a flag and its default state.
type FeatureFlag struct {
	Name        string `yaml:"name"`
	Default     bool   `yaml:"default"`
	Description string `yaml:"description"`
}

// Registry is the parsed control document.
type Registry struct {
	Version      int                         `yaml:"version"`
	Capabilities []string                    `yaml:"capabilities"`
	Entitlements []string                    `yaml:"entitlements"`
	Features     []FeatureFlag               `yaml:"features"`
	Dashboard    models.DashboardDeclaration `yaml:"dashboard"`
}

// Load reads and validates a control document from disk.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read control declaration: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a control document.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse control declaration: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks structural integrity. Every failure here is a
// configuration error, distinguishable from an authorization denial.
func (r *Registry) Validate() error {
	if r.Version < 1 {
		return fmt.Errorf("control declaration: missing or invalid version")
	}
	if r.Dashboard.ID == "" {
		return fmt.Errorf("control declaration: dashboard id is required")
	}
	if len(r.Dashboard.Sections) == 0 {
		return fmt.Errorf("control declaration: dashboard %q declares no sections", r.Dashboard.ID)
	}

	caps := toSet(r.Capabilities)
	ents := toSet(r.Entitlements)
	feats := make(map[string]bool, len(r.Features))
	for _, f := range r.Features {
		if f.Name == "" {
			return fmt.Errorf("control declaration: feature with empty name")
		}
		if feats[f.Name] {
			return fmt.Errorf("control declaration: duplicate feature %q", f.Name)
		}
		feats[f.Name] = true
	}

	if err := checkRefs("dashboard "+r.Dashboard.ID, r.Dashboard.RequiredCapabilities, r.Dashboard.RequiredEntitlements, r.Dashboard.RequiredFeatures, caps, ents, feats); err != nil {
		return err
	}

	seen := make(map[string]bool, len(r.Dashboard.Sections))
	for _, section := range r.Dashboard.Sections {
		if section.ID == "" {
			return fmt.Errorf("control declaration: section with empty id in dashboard %q", r.Dashboard.ID)
		}
		if seen[section.ID] {
			return fmt.Errorf("control declaration: duplicate section id %q", section.ID)
		}
		seen[section.ID] = true
		if err := checkRefs("section "+section.ID, section.RequiredCapabilities, section.RequiredEntitlements, section.RequiredFeatures, caps, ents, feats); err != nil {
			return err
		}
	}
	return nil
}

// FeatureDefaults returns the declared default value per feature flag.
func (r *Registry) FeatureDefaults() map[string]bool {
	defaults := make(map[string]bool, len(r.Features))
	for _, f := range r.Features {
		defaults[f.Name] = f.Default
	}
	return defaults
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

func checkRefs(where string, caps, ents, feats []string, knownCaps, knownEnts, knownFeats map[string]bool) error {
	for _, id := range caps {
		if !knownCaps[id] {
			return fmt.Errorf("control declaration: %s references unknown capability %q", where, id)
		}
	}
	for _, id := range ents {
		if !knownEnts[id] {
			return fmt.Errorf("control declaration: %s references unknown entitlement %q", where, id)
		}
	}
	for _, id := range feats {
		if !knownFeats[id] {
			return fmt.Errorf("control declaration: %s references unknown feature %q", where, id)
		}
	}
	return nil
}
