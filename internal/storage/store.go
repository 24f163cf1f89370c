package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store handles SQLite storage for listings, label overviews, access
// logs, and admin sessions.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at dbPath and
// runs migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return store, nil
}

// migrate creates the necessary tables
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS artists (
			uuid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS listings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			listing_id TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT '',
			condition TEXT NOT NULL DEFAULT '',
			sleeve_condition TEXT NOT NULL DEFAULT '',
			posted TEXT NOT NULL DEFAULT '',
			uri TEXT NOT NULL DEFAULT '',
			resource_url TEXT NOT NULL DEFAULT '',
			price_value REAL NOT NULL DEFAULT 0 CHECK (price_value >= 0),
			price_currency TEXT NOT NULL DEFAULT '',
			shipping_price REAL,
			shipping_currency TEXT NOT NULL DEFAULT '',
			weight REAL,
			format_quantity INTEGER,
			external_id TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			comments TEXT NOT NULL DEFAULT '',
			release_id TEXT NOT NULL DEFAULT '',
			release_title TEXT NOT NULL DEFAULT '',
			release_year TEXT NOT NULL DEFAULT '',
			release_resource_url TEXT NOT NULL DEFAULT '',
			release_uri TEXT NOT NULL DEFAULT '',
			artist_names TEXT NOT NULL DEFAULT '',
			primary_artist TEXT NOT NULL DEFAULT '',
			artist_id TEXT REFERENCES artists(uuid),
			label_names TEXT NOT NULL DEFAULT '',
			primary_label TEXT NOT NULL DEFAULT '',
			format_names TEXT NOT NULL DEFAULT '',
			primary_format TEXT NOT NULL DEFAULT '',
			genres TEXT NOT NULL DEFAULT '',
			styles TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			catalog_number TEXT NOT NULL DEFAULT '',
			barcode TEXT NOT NULL DEFAULT '',
			master_id TEXT NOT NULL DEFAULT '',
			master_url TEXT NOT NULL DEFAULT '',
			image_uri TEXT NOT NULL DEFAULT '',
			image_resource_url TEXT NOT NULL DEFAULT '',
			release_community_have INTEGER,
			release_community_want INTEGER,
			export_timestamp TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			removed_at DATETIME,
			sold_at DATETIME,
			custom_metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS label_info (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label_name TEXT NOT NULL UNIQUE,
			overview TEXT NOT NULL DEFAULT '',
			generated_by TEXT NOT NULL DEFAULT 'gemini-1.5-flash',
			generated_at DATETIME,
			updated_at DATETIME,
			cache_valid INTEGER NOT NULL DEFAULT 1,
			generation_error TEXT
		);

		CREATE TABLE IF NOT EXISTS access_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			query_string TEXT NOT NULL DEFAULT '',
			full_url TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			referrer TEXT NOT NULL DEFAULT '',
			status_code INTEGER NOT NULL DEFAULT 0,
			response_time_ms REAL NOT NULL DEFAULT 0,
			endpoint TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS admin_sessions (
			token TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
		CREATE INDEX IF NOT EXISTS idx_listings_release_id ON listings(release_id);
		CREATE INDEX IF NOT EXISTS idx_listings_primary_artist ON listings(primary_artist);
		CREATE INDEX IF NOT EXISTS idx_listings_posted ON listings(posted);
		CREATE INDEX IF NOT EXISTS idx_artists_name ON artists(name);
		CREATE INDEX IF NOT EXISTS idx_access_logs_timestamp ON access_logs(timestamp);
		CREATE INDEX IF NOT EXISTS idx_access_logs_path ON access_logs(path);
		CREATE INDEX IF NOT EXISTS idx_access_logs_ip ON access_logs(ip_address);
		CREATE INDEX IF NOT EXISTS idx_access_logs_status ON access_logs(status_code);
		CREATE INDEX IF NOT EXISTS idx_admin_sessions_expires ON admin_sessions(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GenerateID returns a new random UUID string
func GenerateID() string {
	return uuid.New().String()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}
