// Package features resolves feature flags. Declared defaults come from the
// control document; local config may override per flag; environment
// variables win over everything for operator intervention.
package features

import (
	"os"
	"sort"
	"strings"
	"unicode"
)

// Client-side flags registered in addition to whatever the control
// document declares.
const (
	OfflineReplica = "offline_replica"
	AutoFlush      = "auto_flush"
	DashboardCache = "dashboard_cache"
)

var clientDefaults = map[string]bool{
	OfflineReplica: true,
	AutoFlush:      true,
	DashboardCache: true,
}

// Resolver computes the effective state of each flag.
type Resolver struct {
	defaults  map[string]bool
	overrides map[string]bool
}

// NewResolver merges control-declared defaults over the built-in client
// flags; overrides come from local config.
func NewResolver(controlDefaults, configOverrides map[string]bool) *Resolver {
	defaults := make(map[string]bool, len(clientDefaults)+len(controlDefaults))
	for name, v := range clientDefaults {
		defaults[name] = v
	}
	for name, v := range controlDefaults {
		defaults[normalizeName(name)] = v
	}
	overrides := make(map[string]bool, len(configOverrides))
	for name, v := range configOverrides {
		overrides[normalizeName(name)] = v
	}
	return &Resolver{defaults: defaults, overrides: overrides}
}

// IsEnabled resolves a flag: env, then config override, then default.
func (r *Resolver) IsEnabled(name string) bool {
	enabled, _ := r.Resolve(name)
	return enabled
}

// Resolve returns the flag state and its source ("env", "config",
// "default"). Unknown flags are off.
func (r *Resolver) Resolve(name string) (bool, string) {
	canonical := normalizeName(name)

	if enabled, ok := resolveEnvOverride(canonical); ok {
		return enabled, "env"
	}
	if enabled, ok := r.overrides[canonical]; ok {
		return enabled, "config"
	}
	if enabled, ok := r.defaults[canonical]; ok {
		return enabled, "default"
	}
	return false, "default"
}

// EnabledFlags returns the sorted names of every flag that resolves to
// enabled — the feature set of an authorization snapshot.
func (r *Resolver) EnabledFlags() []string {
	names := make(map[string]bool, len(r.defaults)+len(r.overrides))
	for name := range r.defaults {
		names[name] = true
	}
	for name := range r.overrides {
		names[name] = true
	}

	var enabled []string
	for name := range names {
		if r.IsEnabled(name) {
			enabled = append(enabled, name)
		}
	}
	sort.Strings(enabled)
	return enabled
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func resolveEnvOverride(name string) (bool, bool) {
	// Emergency kill-switch for everything experimental.
	if disabled, ok := parseBoolEnv("TILL_DISABLE_EXPERIMENTAL"); ok && disabled {
		return false, true
	}

	if enabled, ok := parseBoolEnv("TILL_FEATURE_" + normalizeForEnvKey(name)); ok {
		return enabled, true
	}

	if containsFeatureName(os.Getenv("TILL_DISABLE_FEATURES"), name) {
		return false, true
	}
	if containsFeatureName(os.Getenv("TILL_ENABLE_FEATURES"), name) {
		return true, true
	}
	return false, false
}

func normalizeForEnvKey(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range upper {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

func parseBoolEnv(key string) (bool, bool) {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "on", "yes":
		return true, true
	case "0", "false", "off", "no":
		return false, true
	default:
		return false, false
	}
}

func containsFeatureName(raw, target string) bool {
	if raw == "" {
		return false
	}
	target = normalizeName(target)
	for _, item := range strings.Split(raw, ",") {
		if normalizeName(item) == target {
			return true
		}
	}
	return false
}
