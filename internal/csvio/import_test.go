package csvio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
)

type fakeWriter struct {
	rows        map[string]*storage.Listing
	artists     map[string]string
	cleared     bool
	failIDs     map[string]bool
	failArtists bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		rows:    make(map[string]*storage.Listing),
		artists: make(map[string]string),
	}
}

func (f *fakeWriter) ListingExists(listingID string) (bool, error) {
	_, ok := f.rows[listingID]
	return ok, nil
}

func (f *fakeWriter) InsertListing(l *storage.Listing) error {
	if f.failIDs[l.ListingID] {
		return errors.New("insert failed")
	}
	f.rows[l.ListingID] = l
	return nil
}

func (f *fakeWriter) UpdateListing(l *storage.Listing) error {
	if f.failIDs[l.ListingID] {
		return errors.New("update failed")
	}
	f.rows[l.ListingID] = l
	return nil
}

func (f *fakeWriter) ClearListings() error {
	f.rows = make(map[string]*storage.Listing)
	f.cleared = true
	return nil
}

func (f *fakeWriter) EnsureArtist(name string) (string, error) {
	if f.failArtists {
		return "", errors.New("artists table unavailable")
	}
	if id, ok := f.artists[name]; ok {
		return id, nil
	}
	id := "artist-" + name
	f.artists[name] = id
	return id, nil
}

const importHeader = "listing_id,status,condition,price_value,price_currency,weight,format_quantity,release_year,artist_names,release_title\n"

func TestImportNewAndExisting(t *testing.T) {
	store := newFakeWriter()
	store.rows["100"] = &storage.Listing{ListingID: "100"}

	csvData := importHeader +
		"100,For Sale,Near Mint (NM or M-),29.99,USD,,1,1998,Boards Of Canada,Music Has The Right To Children\n" +
		"200,For Sale,Very Good Plus (VG+),10.00,USD,230.5,2,1996,DJ Shadow,Endtroducing.....\n" +
		"300,For Sale,Mint (M),25.00,USD,,,1994,Portishead,Dummy\n"

	imp := NewImporter(store, zap.NewNop())
	stats, err := imp.Import(strings.NewReader(csvData), false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if stats.TotalRows != 3 {
		t.Errorf("TotalRows = %d, want 3", stats.TotalRows)
	}
	if stats.Updated != 1 {
		t.Errorf("Updated = %d, want 1", stats.Updated)
	}
	if stats.Imported != 2 {
		t.Errorf("Imported = %d, want 2", stats.Imported)
	}
	if stats.Errors != 0 || stats.Skipped != 0 {
		t.Errorf("Errors = %d, Skipped = %d, want 0, 0", stats.Errors, stats.Skipped)
	}
	if len(store.rows) != 3 {
		t.Errorf("stored rows = %d, want 3", len(store.rows))
	}
}

func TestImportFieldParsing(t *testing.T) {
	store := newFakeWriter()

	csvData := importHeader +
		"  750 , For Sale ,Near Mint (NM or M-),29.99,USD,230.5,2,1998, Boards Of Canada ,LP1\n"

	imp := NewImporter(store, zap.NewNop())
	if _, err := imp.Import(strings.NewReader(csvData), false); err != nil {
		t.Fatalf("Import: %v", err)
	}

	l := store.rows["750"]
	if l == nil {
		t.Fatal("listing 750 not stored")
	}
	if l.Status != "For Sale" {
		t.Errorf("Status = %q, want trimmed", l.Status)
	}
	if l.PriceValue != 29.99 {
		t.Errorf("PriceValue = %v, want 29.99", l.PriceValue)
	}
	if l.Weight == nil || *l.Weight != 230.5 {
		t.Errorf("Weight = %v, want 230.5", l.Weight)
	}
	if l.FormatQuantity == nil || *l.FormatQuantity != 2 {
		t.Errorf("FormatQuantity = %v, want 2", l.FormatQuantity)
	}
	if l.ReleaseYear != "1998" {
		t.Errorf("ReleaseYear = %q, want string 1998", l.ReleaseYear)
	}
	if l.ArtistNames != "Boards Of Canada" {
		t.Errorf("ArtistNames = %q, want trimmed", l.ArtistNames)
	}
	if !l.IsActive {
		t.Error("imported listing should be active")
	}
}

func TestImportLenientNumericParsing(t *testing.T) {
	store := newFakeWriter()

	csvData := importHeader +
		"750,For Sale,NM,not-a-price,USD,oops,2.5,1998,BOC,LP1\n"

	imp := NewImporter(store, zap.NewNop())
	stats, err := imp.Import(strings.NewReader(csvData), false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Errors != 0 {
		t.Errorf("Errors = %d, invalid numerics should not fail the row", stats.Errors)
	}

	l := store.rows["750"]
	if l.PriceValue != 0 {
		t.Errorf("PriceValue = %v, want 0 for unparseable", l.PriceValue)
	}
	if l.Weight != nil {
		t.Errorf("Weight = %v, want nil for unparseable", l.Weight)
	}
	if l.FormatQuantity != nil {
		t.Errorf("FormatQuantity = %v, want nil for non-integer", l.FormatQuantity)
	}
}

func TestImportSkipsRowsWithoutListingID(t *testing.T) {
	store := newFakeWriter()

	csvData := importHeader +
		",For Sale,NM,29.99,USD,,,1998,BOC,LP1\n" +
		"   ,For Sale,NM,29.99,USD,,,1998,BOC,LP2\n" +
		"300,For Sale,NM,25.00,USD,,,1994,Portishead,Dummy\n"

	imp := NewImporter(store, zap.NewNop())
	stats, err := imp.Import(strings.NewReader(csvData), false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped)
	}
	if stats.Imported != 1 {
		t.Errorf("Imported = %d, want 1", stats.Imported)
	}
}

func TestImportRowErrorsDoNotAbort(t *testing.T) {
	store := newFakeWriter()
	store.failIDs = map[string]bool{"200": true}

	csvData := importHeader +
		"100,For Sale,NM,29.99,USD,,,1998,BOC,LP1\n" +
		"200,For Sale,NM,10.00,USD,,,1996,DJ Shadow,Endtroducing.....\n" +
		"300,For Sale,NM,25.00,USD,,,1994,Portishead,Dummy\n"

	imp := NewImporter(store, zap.NewNop())
	stats, err := imp.Import(strings.NewReader(csvData), false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if stats.Imported != 2 {
		t.Errorf("Imported = %d, want 2", stats.Imported)
	}
	if _, ok := store.rows["200"]; ok {
		t.Error("failed row should not be stored")
	}
}

func TestImportLinksArtistOnInsert(t *testing.T) {
	store := newFakeWriter()
	store.rows["100"] = &storage.Listing{ListingID: "100"}

	header := "listing_id,status,primary_artist,release_title\n"
	csvData := header +
		"100,For Sale,Boards Of Canada,Music Has The Right To Children\n" +
		"200,For Sale,Boards Of Canada,Geogaddi\n" +
		"300,For Sale,,White Label\n"

	imp := NewImporter(store, zap.NewNop())
	if _, err := imp.Import(strings.NewReader(csvData), false); err != nil {
		t.Fatalf("Import: %v", err)
	}

	// Existing row: update path leaves the link alone.
	if store.rows["100"].ArtistID != nil {
		t.Errorf("updated row ArtistID = %v, want nil", *store.rows["100"].ArtistID)
	}
	// New row with an artist gets linked.
	if store.rows["200"].ArtistID == nil || *store.rows["200"].ArtistID != "artist-Boards Of Canada" {
		t.Errorf("ArtistID = %v, want artist-Boards Of Canada", store.rows["200"].ArtistID)
	}
	// New row without an artist stays unlinked.
	if store.rows["300"].ArtistID != nil {
		t.Errorf("artistless row ArtistID = %v, want nil", *store.rows["300"].ArtistID)
	}
	if len(store.artists) != 1 {
		t.Errorf("artists created = %d, want 1", len(store.artists))
	}
}

func TestImportArtistFailureDoesNotFailRow(t *testing.T) {
	store := newFakeWriter()
	store.failArtists = true

	csvData := "listing_id,status,primary_artist\n" +
		"200,For Sale,Boards Of Canada\n"

	imp := NewImporter(store, zap.NewNop())
	stats, err := imp.Import(strings.NewReader(csvData), false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if stats.Imported != 1 || stats.Errors != 0 {
		t.Errorf("Imported = %d, Errors = %d, want 1, 0", stats.Imported, stats.Errors)
	}
	if store.rows["200"].ArtistID != nil {
		t.Error("row should be stored without an artist link")
	}
}

func TestImportClear(t *testing.T) {
	store := newFakeWriter()
	store.rows["999"] = &storage.Listing{ListingID: "999"}

	csvData := importHeader +
		"100,For Sale,NM,29.99,USD,,,1998,BOC,LP1\n"

	imp := NewImporter(store, zap.NewNop())
	stats, err := imp.Import(strings.NewReader(csvData), true)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if !store.cleared {
		t.Error("clear flag should empty the table first")
	}
	if stats.Imported != 1 {
		t.Errorf("Imported = %d, want 1", stats.Imported)
	}
	if _, ok := store.rows["999"]; ok {
		t.Error("pre-existing row should be gone after clear")
	}
}

func TestImportShortRows(t *testing.T) {
	store := newFakeWriter()

	// Row has fewer cells than the header; missing fields default empty.
	csvData := importHeader + "100,For Sale\n"

	imp := NewImporter(store, zap.NewNop())
	stats, err := imp.Import(strings.NewReader(csvData), false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Imported != 1 {
		t.Fatalf("Imported = %d, want 1", stats.Imported)
	}
	if store.rows["100"].Condition != "" {
		t.Errorf("Condition = %q, want empty", store.rows["100"].Condition)
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "discogs_seller_listings_old.csv")
	newer := filepath.Join(dir, "discogs_seller_listings_new.csv")
	for _, p := range []string{older, newer} {
		if err := os.WriteFile(p, []byte("listing_id\n"), 0o644); err != nil {
			t.Fatalf("writing %s: %v", p, err)
		}
	}
	base := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, base, base); err != nil {
		t.Fatalf("touching old file: %v", err)
	}
	if err := os.Chtimes(newer, base.Add(time.Minute), base.Add(time.Minute)); err != nil {
		t.Fatalf("touching new file: %v", err)
	}

	got, err := FindLatest(dir, "discogs_seller_listings*.csv")
	if err != nil {
		t.Fatalf("FindLatest: %v", err)
	}
	if got != newer {
		t.Errorf("FindLatest = %s, want %s", got, newer)
	}
}

func TestFindLatestNoMatches(t *testing.T) {
	if _, err := FindLatest(t.TempDir(), "discogs_seller_listings*.csv"); err == nil {
		t.Fatal("expected error when no files match")
	}
}
