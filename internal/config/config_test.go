package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	demo := true
	maxRetries := 3
	cfg := &Config{
		Sync: SyncSettings{
			URL:           "https://sync.example.com",
			APIKey:        "key-1",
			DeviceID:      "dev-1",
			FlushInterval: "10s",
			MaxRetries:    &maxRetries,
		},
		Identity: Identity{
			SubjectID:   "u1",
			SubjectType: "staff",
			TenantID:    "t1",
			TenantSlug:  "main-st",
			PartnerSlug: "acme",
			Demo:        &demo,
		},
		ControlPath:  "/etc/till/control.yaml",
		FeatureFlags: map[string]bool{"labs_panel": true},
		Capabilities: []string{"sales.read"},
	}
	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Sync.URL != cfg.Sync.URL || loaded.Sync.DeviceID != "dev-1" {
		t.Fatalf("sync: %+v", loaded.Sync)
	}
	if loaded.Sync.MaxRetries == nil || *loaded.Sync.MaxRetries != 3 {
		t.Fatalf("max retries: %v", loaded.Sync.MaxRetries)
	}
	if loaded.Identity.TenantSlug != "main-st" {
		t.Fatalf("identity: %+v", loaded.Identity)
	}
	if loaded.Identity.Demo == nil || !*loaded.Identity.Demo {
		t.Fatalf("demo flag: %v", loaded.Identity.Demo)
	}
	if !loaded.FeatureFlags["labs_panel"] {
		t.Fatalf("feature flags: %v", loaded.FeatureFlags)
	}
}

func TestLoadFrom_MissingFileIsEmptyConfig(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sync.URL != "" || cfg.Identity.SubjectID != "" {
		t.Fatalf("expected empty config: %+v", cfg)
	}
	// Demo stays undecided, not false
	if cfg.Identity.Demo != nil {
		t.Fatalf("demo: %v", cfg.Identity.Demo)
	}
}

func TestLoadFrom_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestServerURL_Priority(t *testing.T) {
	cfg := &Config{}
	if got := cfg.ServerURL(); got != defaultServerURL {
		t.Fatalf("default: got %s", got)
	}

	cfg.Sync.URL = "https://configured.example.com"
	if got := cfg.ServerURL(); got != "https://configured.example.com" {
		t.Fatalf("config: got %s", got)
	}

	t.Setenv("TILL_SYNC_URL", "https://env.example.com")
	if got := cfg.ServerURL(); got != "https://env.example.com" {
		t.Fatalf("env: got %s", got)
	}
}

func TestAPIKey_Priority(t *testing.T) {
	cfg := &Config{Sync: SyncSettings{APIKey: "from-config"}}
	if got := cfg.APIKey(); got != "from-config" {
		t.Fatalf("config: got %s", got)
	}
	t.Setenv("TILL_API_KEY", "from-env")
	if got := cfg.APIKey(); got != "from-env" {
		t.Fatalf("env: got %s", got)
	}
}

func TestDeviceID_GeneratedOnceAndPersisted(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := &Config{}
	id, err := cfg.DeviceID()
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	if len(id) != 32 { // 16 random bytes, hex encoded
		t.Fatalf("id length: got %d (%s)", len(id), id)
	}

	// Stable across calls
	again, err := cfg.DeviceID()
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	if again != id {
		t.Fatalf("id changed: %s vs %s", id, again)
	}

	// And persisted for the next process
	reloaded, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.Sync.DeviceID != id {
		t.Fatalf("persisted id: got %s, want %s", reloaded.Sync.DeviceID, id)
	}
}
