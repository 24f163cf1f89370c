package storage

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"
)

// CreateSession mints a new admin session token valid for ttl. Expired
// sessions are purged opportunistically.
func (s *Store) CreateSession(ttl time.Duration) (string, error) {
	_ = s.PurgeExpiredSessions()

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO admin_sessions (token, created_at, expires_at)
		VALUES (?, ?, ?)
	`, token, now, now.Add(ttl))
	if err != nil {
		return "", err
	}
	return token, nil
}

// ValidSession reports whether a token exists and has not expired
func (s *Store) ValidSession(token string) (bool, error) {
	var expires time.Time
	err := s.db.QueryRow(`SELECT expires_at FROM admin_sessions WHERE token = ?`, token).Scan(&expires)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return time.Now().UTC().Before(expires), nil
}

// DeleteSession removes a session token
func (s *Store) DeleteSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM admin_sessions WHERE token = ?`, token)
	return err
}

// PurgeExpiredSessions removes sessions past their expiry
func (s *Store) PurgeExpiredSessions() error {
	_, err := s.db.Exec(`DELETE FROM admin_sessions WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
