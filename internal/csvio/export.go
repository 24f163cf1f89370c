package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/discogs"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
)

// ErrNoListings means the seller had nothing for sale to export.
var ErrNoListings = errors.New("no listings to export")

// InventoryFetcher pulls seller inventory pages.
type InventoryFetcher interface {
	FetchListings(ctx context.Context, maxPages int) ([]discogs.RawListing, error)
}

// Exporter writes a seller's live inventory to CSV.
type Exporter struct {
	source InventoryFetcher
	logger *zap.Logger

	now func() time.Time
}

// NewExporter creates a CSV exporter
func NewExporter(source InventoryFetcher, logger *zap.Logger) *Exporter {
	return &Exporter{source: source, logger: logger, now: time.Now}
}

// ExportFile fetches the inventory and writes it to path.
func (ex *Exporter) ExportFile(ctx context.Context, path string, maxPages int) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	n, err := ex.Export(ctx, f, maxPages)
	if err != nil {
		return n, err
	}
	ex.logger.Info("exported listings", zap.Int("count", n), zap.String("file", path))
	return n, nil
}

// Export fetches up to maxPages of inventory (0 = all) and writes the
// flattened listings to w. The header is the sorted union of field names
// and rows use CRLF endings.
func (ex *Exporter) Export(ctx context.Context, w io.Writer, maxPages int) (int, error) {
	raw, err := ex.source.FetchListings(ctx, maxPages)
	if err != nil {
		return 0, fmt.Errorf("fetching inventory: %w", err)
	}

	now := ex.now().UTC()
	records := make([]map[string]string, 0, len(raw))
	for _, r := range raw {
		listing := discogs.Flatten(r, now)
		if listing == nil {
			ex.logger.Warn("skipping listing without id")
			continue
		}
		records = append(records, listingRecord(listing))
	}
	if len(records) == 0 {
		return 0, ErrNoListings
	}

	fields := map[string]bool{}
	for _, rec := range records {
		for name := range rec {
			fields[name] = true
		}
	}
	header := make([]string, 0, len(fields))
	for name := range fields {
		header = append(header, name)
	}
	sort.Strings(header)

	writer := csv.NewWriter(w)
	writer.UseCRLF = true

	if err := writer.Write(header); err != nil {
		return 0, fmt.Errorf("writing CSV header: %w", err)
	}
	row := make([]string, len(header))
	for _, rec := range records {
		for i, name := range header {
			row[i] = rec[name]
		}
		if err := writer.Write(row); err != nil {
			return 0, fmt.Errorf("writing CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("flushing CSV: %w", err)
	}

	return len(records), nil
}

// listingRecord renders a listing as CSV cells keyed by column name.
func listingRecord(l *storage.Listing) map[string]string {
	return map[string]string{
		"listing_id":             l.ListingID,
		"status":                 l.Status,
		"condition":              l.Condition,
		"sleeve_condition":       l.SleeveCondition,
		"posted":                 l.Posted,
		"uri":                    l.URI,
		"resource_url":           l.ResourceURL,
		"price_value":            formatFloat(l.PriceValue),
		"price_currency":         l.PriceCurrency,
		"shipping_price":         formatFloatPtr(l.ShippingPrice),
		"shipping_currency":      l.ShippingCurrency,
		"weight":                 formatFloatPtr(l.Weight),
		"format_quantity":        formatIntPtr(l.FormatQuantity),
		"external_id":            l.ExternalID,
		"location":               l.Location,
		"comments":               l.Comments,
		"release_id":             l.ReleaseID,
		"release_title":          l.ReleaseTitle,
		"release_year":           l.ReleaseYear,
		"release_resource_url":   l.ReleaseResourceURL,
		"release_uri":            l.ReleaseURI,
		"artist_names":           l.ArtistNames,
		"primary_artist":         l.PrimaryArtist,
		"label_names":            l.LabelNames,
		"primary_label":          l.PrimaryLabel,
		"format_names":           l.FormatNames,
		"primary_format":         l.PrimaryFormat,
		"genres":                 l.Genres,
		"styles":                 l.Styles,
		"country":                l.Country,
		"catalog_number":         l.CatalogNumber,
		"barcode":                l.Barcode,
		"master_id":              l.MasterID,
		"master_url":             l.MasterURL,
		"image_uri":              l.ImageURI,
		"image_resource_url":     l.ImageResourceURL,
		"release_community_have": formatIntPtr(l.ReleaseCommunityHave),
		"release_community_want": formatIntPtr(l.ReleaseCommunityWant),
		"export_timestamp":       l.ExportTimestamp,
	}
}

func formatFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatIntPtr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
