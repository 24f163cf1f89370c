package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Listing is a flattened Discogs marketplace listing.
type Listing struct {
	ID                   int64           `json:"id"`
	ListingID            string          `json:"listing_id"`
	Status               string          `json:"status"`
	Condition            string          `json:"condition"`
	SleeveCondition      string          `json:"sleeve_condition"`
	Posted               string          `json:"posted"`
	URI                  string          `json:"uri"`
	ResourceURL          string          `json:"resource_url"`
	PriceValue           float64         `json:"price_value"`
	PriceCurrency        string          `json:"price_currency"`
	ShippingPrice        *float64        `json:"shipping_price"`
	ShippingCurrency     string          `json:"shipping_currency"`
	Weight               *float64        `json:"weight"`
	FormatQuantity       *int64          `json:"format_quantity"`
	ExternalID           string          `json:"external_id"`
	Location             string          `json:"location"`
	Comments             string          `json:"comments"`
	ReleaseID            string          `json:"release_id"`
	ReleaseTitle         string          `json:"release_title"`
	ReleaseYear          string          `json:"release_year"`
	ReleaseResourceURL   string          `json:"release_resource_url"`
	ReleaseURI           string          `json:"release_uri"`
	ArtistNames          string          `json:"artist_names"`
	PrimaryArtist        string          `json:"primary_artist"`
	ArtistID             *string         `json:"artist_id"`
	LabelNames           string          `json:"label_names"`
	PrimaryLabel         string          `json:"primary_label"`
	FormatNames          string          `json:"format_names"`
	PrimaryFormat        string          `json:"primary_format"`
	Genres               string          `json:"genres"`
	Styles               string          `json:"styles"`
	Country              string          `json:"country"`
	CatalogNumber        string          `json:"catalog_number"`
	Barcode              string          `json:"barcode"`
	MasterID             string          `json:"master_id"`
	MasterURL            string          `json:"master_url"`
	ImageURI             string          `json:"image_uri"`
	ImageResourceURL     string          `json:"image_resource_url"`
	ReleaseCommunityHave *int64          `json:"release_community_have"`
	ReleaseCommunityWant *int64          `json:"release_community_want"`
	ExportTimestamp      string          `json:"export_timestamp"`
	IsActive             bool            `json:"is_active"`
	RemovedAt            *time.Time      `json:"removed_at"`
	SoldAt               *time.Time      `json:"sold_at"`
	CustomMetadata       json.RawMessage `json:"custom_metadata"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// FilterParams narrows listings on the browse page. Query is a free-text
// match; the remaining fields must equal the stored value exactly.
type FilterParams struct {
	Query           string
	Artist          string
	Label           string
	Year            string
	Condition       string
	SleeveCondition string
}

// FacetEntry is a single value with its occurrence count.
type FacetEntry struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Facets groups the distinct filterable values of the active inventory.
type Facets struct {
	Artists          []FacetEntry `json:"artists"`
	Labels           []FacetEntry `json:"labels"`
	Years            []FacetEntry `json:"years"`
	Conditions       []FacetEntry `json:"conditions"`
	SleeveConditions []FacetEntry `json:"sleeve_conditions"`
}

// Stats summarizes the active inventory.
type Stats struct {
	TotalListings int        `json:"total_listings"`
	LastUpdated   *time.Time `json:"last_updated"`
}

// SyncBatch is one reconciliation pass applied in a single transaction.
type SyncBatch struct {
	Inserts   []*Listing
	Updates   []*Listing
	DeleteIDs []string
}

const listingColumns = `id, listing_id, status, condition, sleeve_condition, posted, uri,
	resource_url, price_value, price_currency, shipping_price, shipping_currency,
	weight, format_quantity, external_id, location, comments, release_id,
	release_title, release_year, release_resource_url, release_uri, artist_names,
	primary_artist, artist_id, label_names, primary_label, format_names,
	primary_format, genres, styles, country, catalog_number, barcode, master_id,
	master_url, image_uri, image_resource_url, release_community_have,
	release_community_want, export_timestamp, is_active, removed_at, sold_at,
	custom_metadata, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func scanListing(row scanner) (*Listing, error) {
	var l Listing
	var shipping, weight sql.NullFloat64
	var formatQty, have, want sql.NullInt64
	var artistID, custom sql.NullString
	var removedAt, soldAt sql.NullTime

	err := row.Scan(
		&l.ID, &l.ListingID, &l.Status, &l.Condition, &l.SleeveCondition,
		&l.Posted, &l.URI, &l.ResourceURL, &l.PriceValue, &l.PriceCurrency,
		&shipping, &l.ShippingCurrency, &weight, &formatQty, &l.ExternalID,
		&l.Location, &l.Comments, &l.ReleaseID, &l.ReleaseTitle, &l.ReleaseYear,
		&l.ReleaseResourceURL, &l.ReleaseURI, &l.ArtistNames, &l.PrimaryArtist,
		&artistID, &l.LabelNames, &l.PrimaryLabel, &l.FormatNames, &l.PrimaryFormat,
		&l.Genres, &l.Styles, &l.Country, &l.CatalogNumber, &l.Barcode,
		&l.MasterID, &l.MasterURL, &l.ImageURI, &l.ImageResourceURL, &have, &want,
		&l.ExportTimestamp, &l.IsActive, &removedAt, &soldAt, &custom,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.ShippingPrice = floatPtr(shipping)
	l.Weight = floatPtr(weight)
	l.FormatQuantity = intPtr(formatQty)
	l.ArtistID = stringPtr(artistID)
	l.ReleaseCommunityHave = intPtr(have)
	l.ReleaseCommunityWant = intPtr(want)
	l.RemovedAt = timePtr(removedAt)
	l.SoldAt = timePtr(soldAt)
	if custom.Valid && custom.String != "" {
		l.CustomMetadata = json.RawMessage(custom.String)
	}

	return &l, nil
}

func insertListing(e execer, l *Listing, now time.Time) error {
	var custom any
	if len(l.CustomMetadata) > 0 {
		custom = string(l.CustomMetadata)
	}

	_, err := e.Exec(`
		INSERT INTO listings (
			listing_id, status, condition, sleeve_condition, posted, uri,
			resource_url, price_value, price_currency, shipping_price, shipping_currency,
			weight, format_quantity, external_id, location, comments, release_id,
			release_title, release_year, release_resource_url, release_uri, artist_names,
			primary_artist, artist_id, label_names, primary_label, format_names,
			primary_format, genres, styles, country, catalog_number, barcode, master_id,
			master_url, image_uri, image_resource_url, release_community_have,
			release_community_want, export_timestamp, is_active, removed_at, sold_at,
			custom_metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		l.ListingID, l.Status, l.Condition, l.SleeveCondition, l.Posted, l.URI,
		l.ResourceURL, l.PriceValue, l.PriceCurrency, nullFloat(l.ShippingPrice), l.ShippingCurrency,
		nullFloat(l.Weight), nullInt(l.FormatQuantity), l.ExternalID, l.Location, l.Comments, l.ReleaseID,
		l.ReleaseTitle, l.ReleaseYear, l.ReleaseResourceURL, l.ReleaseURI, l.ArtistNames,
		l.PrimaryArtist, nullStringPtr(l.ArtistID), l.LabelNames, l.PrimaryLabel, l.FormatNames,
		l.PrimaryFormat, l.Genres, l.Styles, l.Country, l.CatalogNumber, l.Barcode, l.MasterID,
		l.MasterURL, l.ImageURI, l.ImageResourceURL, nullInt(l.ReleaseCommunityHave),
		nullInt(l.ReleaseCommunityWant), l.ExportTimestamp, l.IsActive, nullTime(l.RemovedAt), nullTime(l.SoldAt),
		custom, now, now,
	)
	return err
}

// updateListing overwrites the marketplace fields of an existing row.
// Local state (is_active, removed_at, sold_at, artist_id, custom_metadata)
// is left untouched so admin actions survive a sync.
func updateListing(e execer, l *Listing, now time.Time) error {
	_, err := e.Exec(`
		UPDATE listings SET
			status = ?, condition = ?, sleeve_condition = ?, posted = ?, uri = ?,
			resource_url = ?, price_value = ?, price_currency = ?, shipping_price = ?,
			shipping_currency = ?, weight = ?, format_quantity = ?, external_id = ?,
			location = ?, comments = ?, release_id = ?, release_title = ?,
			release_year = ?, release_resource_url = ?, release_uri = ?,
			artist_names = ?, primary_artist = ?, label_names = ?, primary_label = ?,
			format_names = ?, primary_format = ?, genres = ?, styles = ?, country = ?,
			catalog_number = ?, barcode = ?, master_id = ?, master_url = ?,
			image_uri = ?, image_resource_url = ?, release_community_have = ?,
			release_community_want = ?, export_timestamp = ?, updated_at = ?
		WHERE listing_id = ?
	`,
		l.Status, l.Condition, l.SleeveCondition, l.Posted, l.URI,
		l.ResourceURL, l.PriceValue, l.PriceCurrency, nullFloat(l.ShippingPrice),
		l.ShippingCurrency, nullFloat(l.Weight), nullInt(l.FormatQuantity), l.ExternalID,
		l.Location, l.Comments, l.ReleaseID, l.ReleaseTitle,
		l.ReleaseYear, l.ReleaseResourceURL, l.ReleaseURI,
		l.ArtistNames, l.PrimaryArtist, l.LabelNames, l.PrimaryLabel,
		l.FormatNames, l.PrimaryFormat, l.Genres, l.Styles, l.Country,
		l.CatalogNumber, l.Barcode, l.MasterID, l.MasterURL,
		l.ImageURI, l.ImageResourceURL, nullInt(l.ReleaseCommunityHave),
		nullInt(l.ReleaseCommunityWant), l.ExportTimestamp, now,
		l.ListingID,
	)
	return err
}

// InsertListing inserts a new listing row
func (s *Store) InsertListing(l *Listing) error {
	return insertListing(s.db, l, time.Now().UTC())
}

// UpdateListing updates the marketplace fields of an existing listing
func (s *Store) UpdateListing(l *Listing) error {
	return updateListing(s.db, l, time.Now().UTC())
}

// DeleteListing removes a listing row entirely
func (s *Store) DeleteListing(listingID string) error {
	_, err := s.db.Exec(`DELETE FROM listings WHERE listing_id = ?`, listingID)
	return err
}

// ApplySyncBatch applies one reconciliation pass atomically. Either every
// insert, update, and delete lands or none of them do.
func (s *Store) ApplySyncBatch(batch *SyncBatch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, l := range batch.Inserts {
		if err := insertListing(tx, l, now); err != nil {
			return fmt.Errorf("inserting listing %s: %w", l.ListingID, err)
		}
	}
	for _, l := range batch.Updates {
		if err := updateListing(tx, l, now); err != nil {
			return fmt.Errorf("updating listing %s: %w", l.ListingID, err)
		}
	}
	for _, id := range batch.DeleteIDs {
		if _, err := tx.Exec(`DELETE FROM listings WHERE listing_id = ?`, id); err != nil {
			return fmt.Errorf("deleting listing %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// ListingExists reports whether a listing_id exists, active or not
func (s *Store) ListingExists(listingID string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM listings WHERE listing_id = ?`, listingID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AllListingIDs returns every stored listing_id, active or not
func (s *Store) AllListingIDs() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT listing_id FROM listings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// AllListings returns listings newest-posted first
func (s *Store) AllListings(onlyActive bool) ([]*Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings`
	if onlyActive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY posted DESC`
	return s.queryListings(query)
}

// ActiveListingByListingID returns an active listing by its Discogs listing ID
func (s *Store) ActiveListingByListingID(listingID string) (*Listing, error) {
	row := s.db.QueryRow(`SELECT `+listingColumns+` FROM listings WHERE listing_id = ? AND is_active = 1`, listingID)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	return l, err
}

// ActiveListingByID returns an active listing by its database primary key
func (s *Store) ActiveListingByID(id int64) (*Listing, error) {
	row := s.db.QueryRow(`SELECT `+listingColumns+` FROM listings WHERE id = ? AND is_active = 1`, id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("listing id %d: %w", id, ErrNotFound)
	}
	return l, err
}

// ListingByListingID returns a listing regardless of its active state
func (s *Store) ListingByListingID(listingID string) (*Listing, error) {
	row := s.db.QueryRow(`SELECT `+listingColumns+` FROM listings WHERE listing_id = ?`, listingID)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	return l, err
}

// SearchListings matches active listings on free-text and category fields.
// Empty arguments are skipped.
func (s *Store) SearchListings(query, artist, genre, format string) ([]*Listing, error) {
	where := `is_active = 1`
	var args []any

	if query != "" {
		where += ` AND (release_title LIKE ? OR artist_names LIKE ?)`
		pat := "%" + query + "%"
		args = append(args, pat, pat)
	}
	if artist != "" {
		where += ` AND artist_names LIKE ?`
		args = append(args, "%"+artist+"%")
	}
	if genre != "" {
		where += ` AND genres LIKE ?`
		args = append(args, "%"+genre+"%")
	}
	if format != "" {
		where += ` AND format_names LIKE ?`
		args = append(args, "%"+format+"%")
	}

	q := `SELECT ` + listingColumns + ` FROM listings WHERE ` + where + ` ORDER BY posted DESC`
	return s.queryListings(q, args...)
}

// FilterListings narrows active listings by the facet values
func (s *Store) FilterListings(p FilterParams) ([]*Listing, error) {
	where := `is_active = 1`
	var args []any

	if p.Query != "" {
		where += ` AND (release_title LIKE ? OR artist_names LIKE ? OR label_names LIKE ?)`
		pat := "%" + p.Query + "%"
		args = append(args, pat, pat, pat)
	}
	if p.Artist != "" {
		where += ` AND primary_artist = ?`
		args = append(args, p.Artist)
	}
	if p.Label != "" {
		where += ` AND primary_label = ?`
		args = append(args, p.Label)
	}
	if p.Year != "" {
		where += ` AND release_year = ?`
		args = append(args, p.Year)
	}
	if p.Condition != "" {
		where += ` AND condition = ?`
		args = append(args, p.Condition)
	}
	if p.SleeveCondition != "" {
		where += ` AND sleeve_condition = ?`
		args = append(args, p.SleeveCondition)
	}

	q := `SELECT ` + listingColumns + ` FROM listings WHERE ` + where + ` ORDER BY posted DESC`
	return s.queryListings(q, args...)
}

func (s *Store) queryListings(query string, args ...any) ([]*Listing, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// Facets returns the filterable values of the active inventory with counts
func (s *Store) Facets() (*Facets, error) {
	f := &Facets{}

	var err error
	if f.Artists, err = s.facetValues("primary_artist", "COUNT(*) DESC"); err != nil {
		return nil, err
	}
	if f.Labels, err = s.facetValues("primary_label", "COUNT(*) DESC"); err != nil {
		return nil, err
	}
	if f.Years, err = s.facetValues("release_year", "release_year DESC"); err != nil {
		return nil, err
	}
	if f.Conditions, err = s.facetValues("condition", "COUNT(*) DESC"); err != nil {
		return nil, err
	}
	if f.SleeveConditions, err = s.facetValues("sleeve_condition", "COUNT(*) DESC"); err != nil {
		return nil, err
	}

	return f, nil
}

func (s *Store) facetValues(column, orderBy string) ([]FacetEntry, error) {
	q := fmt.Sprintf(`
		SELECT %s, COUNT(*) FROM listings
		WHERE is_active = 1 AND %s != ''
		GROUP BY %s
		ORDER BY %s
	`, column, column, column, orderBy)

	rows, err := s.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []FacetEntry
	for rows.Next() {
		var e FacetEntry
		if err := rows.Scan(&e.Value, &e.Count); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns the active listing count and the most recent update time
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRow(`SELECT COUNT(*) FROM listings WHERE is_active = 1`).Scan(&stats.TotalListings)
	if err != nil {
		return nil, err
	}

	var last time.Time
	err = s.db.QueryRow(`SELECT updated_at FROM listings WHERE is_active = 1 ORDER BY updated_at DESC LIMIT 1`).Scan(&last)
	if err == nil {
		stats.LastUpdated = &last
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return stats, nil
}

// CountListings counts stored listings
func (s *Store) CountListings(onlyActive bool) (int, error) {
	query := `SELECT COUNT(*) FROM listings`
	if onlyActive {
		query += ` WHERE is_active = 1`
	}
	var n int
	err := s.db.QueryRow(query).Scan(&n)
	return n, err
}

// ClearListings deletes every listing row
func (s *Store) ClearListings() error {
	_, err := s.db.Exec(`DELETE FROM listings`)
	return err
}

// SoftDeleteListing hides a listing from the storefront. Returns false
// when the listing_id does not exist at all.
func (s *Store) SoftDeleteListing(listingID string) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE listings SET is_active = 0, removed_at = ?, updated_at = ?
		WHERE listing_id = ?
	`, now, now, listingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RestoreListing returns a soft-deleted listing to the storefront
func (s *Store) RestoreListing(listingID string) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE listings SET is_active = 1, removed_at = NULL, updated_at = ?
		WHERE listing_id = ?
	`, now, listingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkListingSold deactivates a listing and records the sale time
func (s *Store) MarkListingSold(listingID string) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE listings SET is_active = 0, sold_at = ?, updated_at = ?
		WHERE listing_id = ?
	`, now, now, listingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
