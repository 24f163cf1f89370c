package storage

import (
	"time"
)

// AccessLog is one recorded HTTP request.
type AccessLog struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	QueryString    string    `json:"query_string"`
	FullURL        string    `json:"full_url"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	Referrer       string    `json:"referrer"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	Endpoint       string    `json:"endpoint"`
}

// AccessSummary aggregates traffic since a point in time.
type AccessSummary struct {
	TotalRequests int     `json:"total_requests"`
	UniqueIPs     int     `json:"unique_ips"`
	AvgResponseMS float64 `json:"avg_response_ms"`
	ErrorCount    int     `json:"error_count"`
}

// PathCount is a request count for one path.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// DailyCount is a request count for one calendar day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// InsertAccessLog records one request
func (s *Store) InsertAccessLog(entry *AccessLog) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO access_logs (timestamp, method, path, query_string, full_url,
			ip_address, user_agent, referrer, status_code, response_time_ms, endpoint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ts, entry.Method, entry.Path, entry.QueryString, entry.FullURL,
		entry.IPAddress, entry.UserAgent, entry.Referrer, entry.StatusCode,
		entry.ResponseTimeMS, entry.Endpoint)
	return err
}

// AccessSummary aggregates requests recorded since the given time
func (s *Store) AccessSummary(since time.Time) (*AccessSummary, error) {
	var summary AccessSummary
	err := s.db.QueryRow(`
		SELECT COUNT(*),
			COUNT(DISTINCT ip_address),
			COALESCE(AVG(response_time_ms), 0),
			COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0)
		FROM access_logs WHERE timestamp >= ?
	`, since).Scan(&summary.TotalRequests, &summary.UniqueIPs, &summary.AvgResponseMS, &summary.ErrorCount)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// TopPaths returns the most requested paths since the given time
func (s *Store) TopPaths(since time.Time, limit int) ([]PathCount, error) {
	rows, err := s.db.Query(`
		SELECT path, COUNT(*) FROM access_logs
		WHERE timestamp >= ?
		GROUP BY path
		ORDER BY COUNT(*) DESC
		LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []PathCount
	for rows.Next() {
		var p PathCount
		if err := rows.Scan(&p.Path, &p.Count); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// RecentAccess returns the latest recorded requests, newest first
func (s *Store) RecentAccess(limit int) ([]*AccessLog, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, method, path, query_string, full_url, ip_address,
			user_agent, referrer, status_code, response_time_ms, endpoint
		FROM access_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*AccessLog
	for rows.Next() {
		var e AccessLog
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Method, &e.Path, &e.QueryString,
			&e.FullURL, &e.IPAddress, &e.UserAgent, &e.Referrer, &e.StatusCode,
			&e.ResponseTimeMS, &e.Endpoint); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// DailyCounts returns per-day request counts for the last N days
func (s *Store) DailyCounts(days int) ([]DailyCount, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.Query(`
		SELECT strftime('%Y-%m-%d', timestamp), COUNT(*)
		FROM access_logs
		WHERE timestamp >= ?
		GROUP BY strftime('%Y-%m-%d', timestamp)
		ORDER BY strftime('%Y-%m-%d', timestamp) ASC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []DailyCount
	for rows.Next() {
		var c DailyCount
		if err := rows.Scan(&c.Date, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
