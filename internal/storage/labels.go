package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// LabelInfo is a cached AI-generated overview of a record label.
type LabelInfo struct {
	ID              int64      `json:"id"`
	LabelName       string     `json:"label_name"`
	Overview        string     `json:"overview"`
	GeneratedBy     string     `json:"generated_by"`
	GeneratedAt     *time.Time `json:"generated_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
	CacheValid      bool       `json:"cache_valid"`
	GenerationError *string    `json:"generation_error"`
}

// LabelOverview returns the cached overview row for a label name
func (s *Store) LabelOverview(name string) (*LabelInfo, error) {
	row := s.db.QueryRow(`
		SELECT id, label_name, overview, generated_by, generated_at, updated_at,
			cache_valid, generation_error
		FROM label_info WHERE label_name = ?
	`, name)

	var info LabelInfo
	var generatedAt, updatedAt sql.NullTime
	var genErr sql.NullString

	err := row.Scan(&info.ID, &info.LabelName, &info.Overview, &info.GeneratedBy,
		&generatedAt, &updatedAt, &info.CacheValid, &genErr)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("label %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	info.GeneratedAt = timePtr(generatedAt)
	info.UpdatedAt = timePtr(updatedAt)
	info.GenerationError = stringPtr(genErr)
	return &info, nil
}

// SaveLabelOverview upserts a generated overview, marking the cache valid
// and clearing any previous generation error.
func (s *Store) SaveLabelOverview(name, overview, model string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO label_info (label_name, overview, generated_by, generated_at, updated_at, cache_valid, generation_error)
		VALUES (?, ?, ?, ?, ?, 1, NULL)
		ON CONFLICT(label_name) DO UPDATE SET
			overview = excluded.overview,
			generated_by = excluded.generated_by,
			updated_at = excluded.updated_at,
			cache_valid = 1,
			generation_error = NULL
	`, name, overview, model, now, now)
	return err
}

// RecordLabelError stores the failure reason without invalidating an
// existing overview.
func (s *Store) RecordLabelError(name, message string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO label_info (label_name, overview, generated_at, updated_at, cache_valid, generation_error)
		VALUES (?, '', NULL, ?, 0, ?)
		ON CONFLICT(label_name) DO UPDATE SET
			updated_at = excluded.updated_at,
			generation_error = excluded.generation_error
	`, name, now, message)
	return err
}

// InvalidateLabelOverview marks a cached overview stale so the next
// request regenerates it. Returns false when the label is not cached.
func (s *Store) InvalidateLabelOverview(name string) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE label_info SET cache_valid = 0, updated_at = ? WHERE label_name = ?
	`, time.Now().UTC(), name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// PurgeLabelOverviews deletes the whole overview cache, returning the
// number of rows removed.
func (s *Store) PurgeLabelOverviews() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM label_info`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AllLabelOverviews lists cached overviews for the admin panel
func (s *Store) AllLabelOverviews() ([]*LabelInfo, error) {
	rows, err := s.db.Query(`
		SELECT id, label_name, overview, generated_by, generated_at, updated_at,
			cache_valid, generation_error
		FROM label_info ORDER BY label_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []*LabelInfo
	for rows.Next() {
		var info LabelInfo
		var generatedAt, updatedAt sql.NullTime
		var genErr sql.NullString
		if err := rows.Scan(&info.ID, &info.LabelName, &info.Overview, &info.GeneratedBy,
			&generatedAt, &updatedAt, &info.CacheValid, &genErr); err != nil {
			return nil, err
		}
		info.GeneratedAt = timePtr(generatedAt)
		info.UpdatedAt = timePtr(updatedAt)
		info.GenerationError = stringPtr(genErr)
		infos = append(infos, &info)
	}
	return infos, rows.Err()
}
