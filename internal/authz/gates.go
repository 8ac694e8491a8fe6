// Package authz resolves which parts of a declared dashboard surface a
// subject may see, given their capabilities, entitlements, and feature
// flags. Resolution is pure: no I/O, deterministic for identical inputs.
package authz

import "sort"

// Set is an unordered collection of grant identifiers.
type Set map[string]struct{}

// NewSet builds a Set from identifiers.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GateResult is the outcome of checking one requirement list.
type GateResult struct {
	Allowed bool
	Missing []string
}

// CheckGates is the single gate primitive shared by every resolver: the
// required identifiers not present in available are the missing set, sorted
// for deterministic output.
func CheckGates(required []string, available Set) GateResult {
	var missing []string
	for _, id := range required {
		if !available.Has(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return GateResult{Allowed: true}
	}
	sort.Strings(missing)
	return GateResult{Allowed: false, Missing: missing}
}
