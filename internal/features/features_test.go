package features

import (
	"reflect"
	"testing"
)

func TestResolve_Precedence(t *testing.T) {
	r := NewResolver(
		map[string]bool{"labs_panel": false, "quick_sale": true},
		map[string]bool{"labs_panel": true},
	)

	if enabled, source := r.Resolve("quick_sale"); !enabled || source != "default" {
		t.Fatalf("quick_sale: got %v/%s", enabled, source)
	}
	// Config override beats the declared default
	if enabled, source := r.Resolve("labs_panel"); !enabled || source != "config" {
		t.Fatalf("labs_panel: got %v/%s", enabled, source)
	}
	// Env beats config
	t.Setenv("TILL_FEATURE_LABS_PANEL", "false")
	if enabled, source := r.Resolve("labs_panel"); enabled || source != "env" {
		t.Fatalf("labs_panel with env: got %v/%s", enabled, source)
	}
}

func TestResolve_UnknownFlagIsOff(t *testing.T) {
	r := NewResolver(nil, nil)
	if enabled, source := r.Resolve("no_such_flag"); enabled || source != "default" {
		t.Fatalf("got %v/%s", enabled, source)
	}
}

func TestResolve_ClientDefaults(t *testing.T) {
	r := NewResolver(nil, nil)
	for _, name := range []string{OfflineReplica, AutoFlush, DashboardCache} {
		if !r.IsEnabled(name) {
			t.Fatalf("%s should default on", name)
		}
	}
}

func TestResolve_EnvLists(t *testing.T) {
	r := NewResolver(map[string]bool{"labs_panel": false}, nil)

	t.Setenv("TILL_ENABLE_FEATURES", "labs_panel, other")
	if !r.IsEnabled("labs_panel") {
		t.Fatal("enable list should turn the flag on")
	}

	// The disable list wins over the enable list
	t.Setenv("TILL_DISABLE_FEATURES", "labs_panel")
	if r.IsEnabled("labs_panel") {
		t.Fatal("disable list should turn the flag off")
	}
}

func TestResolve_KillSwitch(t *testing.T) {
	r := NewResolver(map[string]bool{"labs_panel": true}, nil)
	t.Setenv("TILL_DISABLE_EXPERIMENTAL", "1")

	if r.IsEnabled("labs_panel") {
		t.Fatal("kill-switch should disable every flag")
	}
	if r.IsEnabled(AutoFlush) {
		t.Fatal("kill-switch should disable client flags too")
	}
}

func TestResolve_NameNormalization(t *testing.T) {
	r := NewResolver(map[string]bool{"Labs_Panel": true}, nil)
	if !r.IsEnabled("labs_panel") {
		t.Fatal("declared names are case-insensitive")
	}
	if !r.IsEnabled("  LABS_PANEL  ") {
		t.Fatal("lookups are trimmed and case-insensitive")
	}
}

func TestEnabledFlags(t *testing.T) {
	r := NewResolver(
		map[string]bool{"labs_panel": false, "quick_sale": true},
		map[string]bool{"labs_panel": true},
	)

	want := []string{AutoFlush, DashboardCache, "labs_panel", OfflineReplica, "quick_sale"}
	got := r.EnabledFlags()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("enabled flags: got %v, want %v", got, want)
	}
}
