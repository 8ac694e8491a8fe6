// Package config manages the client configuration stored at
// ~/.config/till/config.json: server connection, the active identity, and
// local policy knobs.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const defaultServerURL = "http://localhost:8080"

// Identity is the subject/tenant context the client runs under.
type Identity struct {
	SubjectID   string `json:"subject_id"`
	SubjectType string `json:"subject_type"`
	TenantID    string `json:"tenant_id"`
	TenantSlug  string `json:"tenant_slug"`
	PartnerID   string `json:"partner_id,omitempty"`
	PartnerSlug string `json:"partner_slug,omitempty"`
	// Demo, when set, is the authoritative demo marker pushed by upstream
	// provisioning. nil means "decide by slug comparison".
	Demo *bool `json:"demo,omitempty"`
}

// SyncSettings holds sync-related knobs.
type SyncSettings struct {
	URL           string `json:"url"`
	APIKey        string `json:"api_key,omitempty"`
	DeviceID      string `json:"device_id,omitempty"`
	FlushInterval string `json:"flush_interval,omitempty"` // duration string, default "30s"
	MaxRetries    *int   `json:"max_retries,omitempty"`    // nil = default 5
}

// Config is the full client configuration.
type Config struct {
	Sync         SyncSettings    `json:"sync"`
	Identity     Identity        `json:"identity"`
	ControlPath  string          `json:"control_path,omitempty"`
	FeatureFlags map[string]bool `json:"feature_flags,omitempty"`
	Capabilities []string        `json:"capabilities,omitempty"`
	Entitlements []string        `json:"entitlements,omitempty"`
}

// Dir returns ~/.config/till, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "till")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the config; a missing file yields an empty config.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, "config.json"))
}

// LoadFrom reads the config from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config atomically (temp file + rename) so a crash never
// leaves a torn file.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return SaveTo(filepath.Join(dir, "config.json"), cfg)
}

// SaveTo writes the config atomically to an explicit path.
func SaveTo(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// ServerURL returns the sync server URL.
// Priority: TILL_SYNC_URL env > config > default.
func (c *Config) ServerURL() string {
	if v := os.Getenv("TILL_SYNC_URL"); v != "" {
		return v
	}
	if c.Sync.URL != "" {
		return c.Sync.URL
	}
	return defaultServerURL
}

// APIKey returns the API key. Priority: TILL_API_KEY env > config.
func (c *Config) APIKey() string {
	if v := os.Getenv("TILL_API_KEY"); v != "" {
		return v
	}
	return c.Sync.APIKey
}

// DeviceID returns the stable device id, generating and persisting one on
// first use.
func (c *Config) DeviceID() (string, error) {
	if c.Sync.DeviceID != "" {
		return c.Sync.DeviceID, nil
	}
	id, err := generateDeviceID()
	if err != nil {
		return "", err
	}
	c.Sync.DeviceID = id
	if err := Save(c); err != nil {
		return "", err
	}
	return id, nil
}

// generateDeviceID creates a new random device id (16 bytes hex).
func generateDeviceID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
