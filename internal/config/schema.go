package config

// Config is the full application configuration.
type Config struct {
	// HTTP port for the storefront server
	Port int `yaml:"port" mapstructure:"port"`

	// Path to the SQLite database file
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`

	Discogs DiscogsConfig `yaml:"discogs" mapstructure:"discogs"`
	Gemini  GeminiConfig  `yaml:"gemini" mapstructure:"gemini"`
	Sync    SyncConfig    `yaml:"sync" mapstructure:"sync"`
	Stripe  StripeConfig  `yaml:"stripe" mapstructure:"stripe"`
	Admin   AdminConfig   `yaml:"admin" mapstructure:"admin"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
}

// DiscogsConfig configures the Discogs marketplace client
type DiscogsConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	Seller    string `yaml:"seller" mapstructure:"seller"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// GeminiConfig configures AI label overview generation
type GeminiConfig struct {
	APIKey          string `yaml:"api_key" mapstructure:"api_key"`
	EnableOverviews bool   `yaml:"enable_overviews" mapstructure:"enable_overviews"`
}

// SyncConfig configures inventory synchronization
type SyncConfig struct {
	IntervalHours int  `yaml:"interval_hours" mapstructure:"interval_hours"`
	Auto          bool `yaml:"auto" mapstructure:"auto"`
}

// StripeConfig configures checkout payments
type StripeConfig struct {
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
}

// AdminConfig configures the admin panel. An empty password hash
// disables the panel entirely.
type AdminConfig struct {
	PasswordHash    string `yaml:"password_hash" mapstructure:"password_hash"`
	SessionTTLHours int    `yaml:"session_ttl_hours" mapstructure:"session_ttl_hours"`
}

// IngestConfig configures CSV import defaults
type IngestConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	CSVPattern string `yaml:"csv_pattern" mapstructure:"csv_pattern"`
}
