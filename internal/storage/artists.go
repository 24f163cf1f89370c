package storage

import (
	"database/sql"
)

// Artist is a catalog artist row linked from listings.
type Artist struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// EnsureArtist returns the UUID for an artist name, creating the row on
// first sight.
func (s *Store) EnsureArtist(name string) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT uuid FROM artists WHERE name = ? LIMIT 1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	id = GenerateID()
	if _, err := s.db.Exec(`
		INSERT INTO artists (uuid, name, description) VALUES (?, ?, '')
	`, id, name); err != nil {
		return "", err
	}
	return id, nil
}

// ArtistByUUID returns an artist row
func (s *Store) ArtistByUUID(id string) (*Artist, error) {
	var a Artist
	err := s.db.QueryRow(`SELECT uuid, name, description FROM artists WHERE uuid = ?`, id).Scan(&a.UUID, &a.Name, &a.Description)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
