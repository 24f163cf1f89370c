package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
)

// ImportStats summarizes one import run.
type ImportStats struct {
	TotalRows int `json:"total_rows"`
	Imported  int `json:"imported"`
	Updated   int `json:"updated"`
	Errors    int `json:"errors"`
	Skipped   int `json:"skipped"`
}

// ListingWriter is the storage surface the importer needs.
type ListingWriter interface {
	ListingExists(listingID string) (bool, error)
	InsertListing(l *storage.Listing) error
	UpdateListing(l *storage.Listing) error
	ClearListings() error
	EnsureArtist(name string) (string, error)
}

// Importer loads Discogs seller export CSVs into the listings table.
type Importer struct {
	store  ListingWriter
	logger *zap.Logger
}

// NewImporter creates a CSV importer
func NewImporter(store ListingWriter, logger *zap.Logger) *Importer {
	return &Importer{store: store, logger: logger}
}

// ImportFile imports the CSV at path. With clear set, the listings table
// is emptied first.
func (im *Importer) ImportFile(path string, clear bool) (*ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening CSV file: %w", err)
	}
	defer f.Close()

	im.logger.Info("importing CSV", zap.String("file", path), zap.Bool("clear", clear))
	return im.Import(f, clear)
}

// Import reads CSV rows from r and upserts them by listing_id. Rows
// without a listing_id are skipped; a storage error fails only that row.
func (im *Importer) Import(r io.Reader, clear bool) (*ImportStats, error) {
	if clear {
		if err := im.store.ClearListings(); err != nil {
			return nil, fmt.Errorf("clearing listings: %w", err)
		}
		im.logger.Info("cleared existing listings")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	stats := &ImportStats{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}

		stats.TotalRows++
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}

		listing := listingFromRow(row)
		if listing.ListingID == "" {
			im.logger.Warn("skipping row without listing_id", zap.Int("row", stats.TotalRows))
			stats.Skipped++
			continue
		}

		exists, err := im.store.ListingExists(listing.ListingID)
		if err != nil {
			im.logger.Warn("listing lookup failed",
				zap.String("listing_id", listing.ListingID),
				zap.Error(err))
			stats.Errors++
			continue
		}

		if exists {
			err = im.store.UpdateListing(listing)
		} else {
			// New rows get linked to an artists row; updates leave the
			// existing link alone.
			if listing.PrimaryArtist != "" {
				if artistID, aerr := im.store.EnsureArtist(listing.PrimaryArtist); aerr != nil {
					im.logger.Warn("artist lookup failed",
						zap.String("artist", listing.PrimaryArtist),
						zap.Error(aerr))
				} else {
					listing.ArtistID = &artistID
				}
			}
			err = im.store.InsertListing(listing)
		}
		if err != nil {
			im.logger.Warn("listing upsert failed",
				zap.String("listing_id", listing.ListingID),
				zap.Error(err))
			stats.Errors++
			continue
		}

		if exists {
			stats.Updated++
		} else {
			stats.Imported++
		}
	}

	im.logger.Info("CSV import finished",
		zap.Int("total_rows", stats.TotalRows),
		zap.Int("imported", stats.Imported),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors))

	return stats, nil
}

// FindLatest returns the most recently modified file under dir matching
// pattern, for the default import source.
func FindLatest(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("globbing %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no CSV files matching %q in %s", pattern, dir)
	}

	var latest string
	var latestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod > latestMod {
			latest = m
			latestMod = mod
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no readable CSV files matching %q in %s", pattern, dir)
	}
	return latest, nil
}

// listingFromRow maps one CSV row onto a listing. Strings are trimmed and
// numerics parsed leniently; anything unparseable becomes NULL.
func listingFromRow(row map[string]string) *storage.Listing {
	return &storage.Listing{
		ListingID:            cleanString(row["listing_id"]),
		Status:               cleanString(row["status"]),
		Condition:            cleanString(row["condition"]),
		SleeveCondition:      cleanString(row["sleeve_condition"]),
		Posted:               cleanString(row["posted"]),
		URI:                  cleanString(row["uri"]),
		ResourceURL:          cleanString(row["resource_url"]),
		PriceValue:           parseFloatValue(row["price_value"]),
		PriceCurrency:        cleanString(row["price_currency"]),
		ShippingPrice:        parseFloat(row["shipping_price"]),
		ShippingCurrency:     cleanString(row["shipping_currency"]),
		Weight:               parseFloat(row["weight"]),
		FormatQuantity:       parseInt(row["format_quantity"]),
		ExternalID:           cleanString(row["external_id"]),
		Location:             cleanString(row["location"]),
		Comments:             cleanString(row["comments"]),
		ReleaseID:            cleanString(row["release_id"]),
		ReleaseTitle:         cleanString(row["release_title"]),
		ReleaseYear:          cleanString(row["release_year"]),
		ReleaseResourceURL:   cleanString(row["release_resource_url"]),
		ReleaseURI:           cleanString(row["release_uri"]),
		ArtistNames:          cleanString(row["artist_names"]),
		PrimaryArtist:        cleanString(row["primary_artist"]),
		LabelNames:           cleanString(row["label_names"]),
		PrimaryLabel:         cleanString(row["primary_label"]),
		FormatNames:          cleanString(row["format_names"]),
		PrimaryFormat:        cleanString(row["primary_format"]),
		Genres:               cleanString(row["genres"]),
		Styles:               cleanString(row["styles"]),
		Country:              cleanString(row["country"]),
		CatalogNumber:        cleanString(row["catalog_number"]),
		Barcode:              cleanString(row["barcode"]),
		MasterID:             cleanString(row["master_id"]),
		MasterURL:            cleanString(row["master_url"]),
		ImageURI:             cleanString(row["image_uri"]),
		ImageResourceURL:     cleanString(row["image_resource_url"]),
		ReleaseCommunityHave: parseInt(row["release_community_have"]),
		ReleaseCommunityWant: parseInt(row["release_community_want"]),
		ExportTimestamp:      cleanString(row["export_timestamp"]),
		IsActive:             true,
	}
}

func cleanString(v string) string {
	return strings.TrimSpace(v)
}

func parseFloatValue(v string) float64 {
	if p := parseFloat(v); p != nil {
		return *p
	}
	return 0
}

func parseFloat(v string) *float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseInt(v string) *int64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
