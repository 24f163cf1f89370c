package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// DefaultFileName is the config file looked up in the working directory
// when no explicit path is given.
const DefaultFileName = "freakinbeats.yaml"

// Load loads configuration from defaults, an optional YAML file, and
// environment variables, in that order. An explicit non-empty path must
// exist; otherwise $FREAKINBEATS_CONFIG and ./freakinbeats.yaml are tried
// and silently skipped when absent.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("FREAKINBEATS_CONFIG")
	}
	if path == "" {
		path = DefaultFileName
	}

	if err := loadFile(path, cfg); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	dbPath, err := normalizeDatabasePath(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	cfg.DatabasePath = dbPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

// applyEnv overlays environment variables onto cfg. Each setting accepts
// an FB_-prefixed name and the legacy bare name used by earlier deployments.
func applyEnv(cfg *Config) error {
	if v, ok := lookupEnv("FB_PORT", "PORT"); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = p
	}
	if v, ok := lookupEnv("FB_DATABASE_URL", "DATABASE_URL"); ok {
		cfg.DatabasePath = v
	}
	if v, ok := lookupEnv("FB_DISCOGS_TOKEN", "DISCOGS_TOKEN"); ok {
		cfg.Discogs.Token = v
	}
	if v, ok := lookupEnv("FB_DISCOGS_SELLER", "DISCOGS_SELLER_USERNAME"); ok {
		cfg.Discogs.Seller = v
	}
	if v, ok := lookupEnv("FB_DISCOGS_USER_AGENT", "DISCOGS_USER_AGENT"); ok {
		cfg.Discogs.UserAgent = v
	}
	if v, ok := lookupEnv("FB_GEMINI_API_KEY", "GEMINI_API_KEY"); ok {
		cfg.Gemini.APIKey = v
	}
	if v, ok := lookupEnv("FB_ENABLE_AI_OVERVIEWS", "ENABLE_AI_OVERVIEWS"); ok {
		cfg.Gemini.EnableOverviews = strings.EqualFold(v, "true")
	}
	if v, ok := lookupEnv("FB_SYNC_INTERVAL_HOURS", "SYNC_INTERVAL_HOURS"); ok {
		h, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SYNC_INTERVAL_HOURS %q: %w", v, err)
		}
		cfg.Sync.IntervalHours = h
	}
	if v, ok := lookupEnv("FB_ENABLE_AUTO_SYNC", "ENABLE_AUTO_SYNC"); ok {
		cfg.Sync.Auto = strings.EqualFold(v, "true")
	}
	if v, ok := lookupEnv("FB_STRIPE_SECRET_KEY", "STRIPE_SECRET_KEY"); ok {
		cfg.Stripe.SecretKey = v
	}
	if v, ok := lookupEnv("FB_ADMIN_PASSWORD_HASH", "ADMIN_PASSWORD_HASH"); ok {
		cfg.Admin.PasswordHash = v
	}
	return nil
}

func lookupEnv(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// normalizeDatabasePath accepts a bare filesystem path or a sqlite:///
// URL. SQLite is the only supported backend; any other scheme is an error.
func normalizeDatabasePath(raw string) (string, error) {
	if raw == "" {
		return DefaultConfig().DatabasePath, nil
	}
	for _, prefix := range []string{"sqlite:///", "sqlite://"} {
		if strings.HasPrefix(raw, prefix) {
			return strings.TrimPrefix(raw, prefix), nil
		}
	}
	if strings.Contains(raw, "://") {
		return "", fmt.Errorf("unsupported database URL %q: only sqlite paths are supported", raw)
	}
	return raw, nil
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.Sync.IntervalHours < 1 {
		return fmt.Errorf("sync.interval_hours must be at least 1, got %d", c.Sync.IntervalHours)
	}
	if c.Admin.SessionTTLHours < 1 {
		return fmt.Errorf("admin.session_ttl_hours must be at least 1, got %d", c.Admin.SessionTTLHours)
	}
	if h := c.Admin.PasswordHash; h != "" && !looksLikeBcrypt(h) {
		return fmt.Errorf("admin.password_hash is not a bcrypt hash; generate one with 'freakinbeats admin hash-password'")
	}
	return nil
}

func looksLikeBcrypt(h string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(h, prefix) {
			return true
		}
	}
	return false
}
