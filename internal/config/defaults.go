package config

import (
	"os"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Port:         3000,
		DatabasePath: "freakinbeats.db",
		Discogs: DiscogsConfig{
			Seller:    "freakin_beats",
			UserAgent: "FreakinbeatsWebApp/1.0",
		},
		Gemini: GeminiConfig{
			EnableOverviews: true,
		},
		Sync: SyncConfig{
			IntervalHours: 1,
			Auto:          false,
		},
		Admin: AdminConfig{
			SessionTTLHours: 24,
		},
		Ingest: IngestConfig{
			Dir:        "ingest",
			CSVPattern: "discogs_seller_listings*.csv",
		},
	}
}

// WriteDefault writes a commented default configuration to a file
func WriteDefault(path string) error {
	content := `# Freakinbeats Configuration

# HTTP port for the storefront server
port: 3000

# SQLite database file
database_path: freakinbeats.db

# Discogs marketplace access
discogs:
  # Personal access token (or set DISCOGS_TOKEN)
  token: ""
  seller: freakin_beats
  user_agent: FreakinbeatsWebApp/1.0

# AI label overviews
gemini:
  # API key (or set GEMINI_API_KEY)
  api_key: ""
  enable_overviews: true

# Inventory synchronization
sync:
  interval_hours: 1
  # Run the hourly background sync while serving
  auto: false

# Checkout payments (or set STRIPE_SECRET_KEY)
stripe:
  secret_key: ""

# Admin panel. Generate the hash with: freakinbeats admin hash-password
# Leaving it empty disables the panel.
admin:
  password_hash: ""
  session_ttl_hours: 24

# CSV import defaults
ingest:
  dir: ingest
  csv_pattern: "discogs_seller_listings*.csv"
`
	return os.WriteFile(path, []byte(content), 0644)
}
