package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.DatabasePath != "freakinbeats.db" {
		t.Errorf("DatabasePath = %q, want freakinbeats.db", cfg.DatabasePath)
	}
	if cfg.Discogs.Seller != "freakin_beats" {
		t.Errorf("Discogs.Seller = %q, want freakin_beats", cfg.Discogs.Seller)
	}
	if cfg.Discogs.UserAgent != "FreakinbeatsWebApp/1.0" {
		t.Errorf("Discogs.UserAgent = %q", cfg.Discogs.UserAgent)
	}
	if !cfg.Gemini.EnableOverviews {
		t.Error("Gemini.EnableOverviews should default to true")
	}
	if cfg.Sync.Auto {
		t.Error("Sync.Auto should default to false")
	}
	if cfg.Sync.IntervalHours != 1 {
		t.Errorf("Sync.IntervalHours = %d, want 1", cfg.Sync.IntervalHours)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "freakinbeats.yaml")

	content := `port: 8081
database_path: /tmp/test.db
discogs:
  seller: other_seller
  token: abc123
sync:
  interval_hours: 6
  auto: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != 8081 {
		t.Errorf("Port = %d, want 8081", cfg.Port)
	}
	if cfg.DatabasePath != "/tmp/test.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Discogs.Seller != "other_seller" {
		t.Errorf("Discogs.Seller = %q", cfg.Discogs.Seller)
	}
	if cfg.Discogs.Token != "abc123" {
		t.Errorf("Discogs.Token = %q", cfg.Discogs.Token)
	}
	if !cfg.Sync.Auto {
		t.Error("Sync.Auto should be true")
	}
	if cfg.Sync.IntervalHours != 6 {
		t.Errorf("Sync.IntervalHours = %d, want 6", cfg.Sync.IntervalHours)
	}
	// Unset keys keep their defaults.
	if cfg.Discogs.UserAgent != "FreakinbeatsWebApp/1.0" {
		t.Errorf("Discogs.UserAgent = %q, want default", cfg.Discogs.UserAgent)
	}
}

func TestLoadExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DISCOGS_TOKEN", "envtoken")
	t.Setenv("DISCOGS_SELLER_USERNAME", "env_seller")
	t.Setenv("ENABLE_AI_OVERVIEWS", "false")
	t.Setenv("ENABLE_AUTO_SYNC", "TRUE")
	t.Setenv("DATABASE_URL", "sqlite:///env.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.Discogs.Token != "envtoken" {
		t.Errorf("Discogs.Token = %q", cfg.Discogs.Token)
	}
	if cfg.Discogs.Seller != "env_seller" {
		t.Errorf("Discogs.Seller = %q", cfg.Discogs.Seller)
	}
	if cfg.Gemini.EnableOverviews {
		t.Error("EnableOverviews should be false")
	}
	if !cfg.Sync.Auto {
		t.Error("Sync.Auto should be true (case-insensitive)")
	}
	if cfg.DatabasePath != "env.db" {
		t.Errorf("DatabasePath = %q, want env.db", cfg.DatabasePath)
	}
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	t.Setenv("FB_PORT", "7001")
	t.Setenv("PORT", "7002")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 7001 {
		t.Errorf("Port = %d, want FB_PORT value 7001", cfg.Port)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestNormalizeDatabasePath(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"empty uses default", "", "freakinbeats.db", false},
		{"bare path", "data/shop.db", "data/shop.db", false},
		{"sqlite triple slash", "sqlite:///freakinbeats.db", "freakinbeats.db", false},
		{"sqlite absolute", "sqlite:////var/db/shop.db", "/var/db/shop.db", false},
		{"postgres rejected", "postgres://localhost/shop", "", true},
		{"mysql rejected", "mysql://localhost/shop", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeDatabasePath(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("normalizeDatabasePath(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeDatabasePath(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("normalizeDatabasePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		wantIn string
	}{
		{"port zero", func(c *Config) { c.Port = 0 }, "port"},
		{"port too big", func(c *Config) { c.Port = 70000 }, "port"},
		{"empty db path", func(c *Config) { c.DatabasePath = "" }, "database_path"},
		{"zero interval", func(c *Config) { c.Sync.IntervalHours = 0 }, "interval_hours"},
		{"zero session ttl", func(c *Config) { c.Admin.SessionTTLHours = 0 }, "session_ttl"},
		{"plaintext admin password", func(c *Config) { c.Admin.PasswordHash = "hunter2" }, "bcrypt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error %q does not mention %q", err, tt.wantIn)
			}
		})
	}

	t.Run("bcrypt hash accepted", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Admin.PasswordHash = "$2a$12$saltsaltsaltsaltsalts.hashhashhashhashhashhashhashhas"
		if err := cfg.Validate(); err != nil {
			t.Errorf("bcrypt-shaped hash should validate: %v", err)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "freakinbeats.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("written default config should load: %v", err)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
}
