package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testListing(listingID, posted string) *Listing {
	return &Listing{
		ListingID:     listingID,
		Status:        "For Sale",
		Condition:     "Very Good Plus (VG+)",
		Posted:        posted,
		PriceValue:    25.00,
		PriceCurrency: "USD",
		ReleaseID:     "r" + listingID,
		ReleaseTitle:  "Test Record " + listingID,
		ArtistNames:   "Test Artist",
		PrimaryArtist: "Test Artist",
		IsActive:      true,
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	store := newTestStore(t)

	n, err := store.CountListings(false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInsertAndGetListing(t *testing.T) {
	store := newTestStore(t)

	l := testListing("123", "2024-01-15T10:30:00-08:00")
	shipping := 5.0
	l.ShippingPrice = &shipping
	require.NoError(t, store.InsertListing(l))

	got, err := store.ActiveListingByListingID("123")
	require.NoError(t, err)
	assert.Equal(t, "123", got.ListingID)
	assert.Equal(t, "Test Record 123", got.ReleaseTitle)
	assert.Equal(t, 25.00, got.PriceValue)
	require.NotNil(t, got.ShippingPrice)
	assert.Equal(t, 5.0, *got.ShippingPrice)
	assert.Nil(t, got.Weight)
	assert.Nil(t, got.ReleaseCommunityHave)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.RemovedAt)
	assert.Nil(t, got.SoldAt)
	assert.False(t, got.CreatedAt.IsZero())

	byID, err := store.ActiveListingByID(got.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ListingID, byID.ListingID)
}

func TestGetMissingListing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ActiveListingByListingID("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.ActiveListingByID(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateListingPreservesLocalState(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.InsertListing(testListing("123", "2024-01-15T10:30:00-08:00")))
	found, err := store.SoftDeleteListing("123")
	require.NoError(t, err)
	require.True(t, found)

	updated := testListing("123", "2024-01-15T10:30:00-08:00")
	updated.PriceValue = 30.00
	updated.ReleaseTitle = "Retitled"
	require.NoError(t, store.UpdateListing(updated))

	got, err := store.ListingByListingID("123")
	require.NoError(t, err)
	assert.Equal(t, 30.00, got.PriceValue)
	assert.Equal(t, "Retitled", got.ReleaseTitle)
	assert.False(t, got.IsActive, "sync update must not reactivate a removed listing")
	assert.NotNil(t, got.RemovedAt)
}

func TestApplySyncBatchAtomic(t *testing.T) {
	store := newTestStore(t)

	// Second insert violates the listing_id unique constraint, so the
	// whole batch must roll back.
	batch := &SyncBatch{
		Inserts: []*Listing{
			testListing("1", "2024-01-01T00:00:00+00:00"),
			testListing("1", "2024-01-02T00:00:00+00:00"),
		},
	}
	err := store.ApplySyncBatch(batch)
	require.Error(t, err)

	n, err := store.CountListings(false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestApplySyncBatchAddsUpdatesRemoves(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.InsertListing(testListing("keep", "2024-01-01T00:00:00+00:00")))
	require.NoError(t, store.InsertListing(testListing("gone", "2024-01-02T00:00:00+00:00")))

	updated := testListing("keep", "2024-01-01T00:00:00+00:00")
	updated.PriceValue = 99.0

	batch := &SyncBatch{
		Inserts:   []*Listing{testListing("new", "2024-01-03T00:00:00+00:00")},
		Updates:   []*Listing{updated},
		DeleteIDs: []string{"gone"},
	}
	require.NoError(t, store.ApplySyncBatch(batch))

	ids, err := store.AllListingIDs()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"keep": true, "new": true}, ids)

	got, err := store.ActiveListingByListingID("keep")
	require.NoError(t, err)
	assert.Equal(t, 99.0, got.PriceValue)
}

func TestAllListingsOrderAndActiveFilter(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.InsertListing(testListing("old", "2024-01-01T00:00:00+00:00")))
	require.NoError(t, store.InsertListing(testListing("new", "2024-06-01T00:00:00+00:00")))
	require.NoError(t, store.InsertListing(testListing("mid", "2024-03-01T00:00:00+00:00")))

	_, err := store.SoftDeleteListing("mid")
	require.NoError(t, err)

	active, err := store.AllListings(true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "new", active[0].ListingID)
	assert.Equal(t, "old", active[1].ListingID)

	all, err := store.AllListings(false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSearchListings(t *testing.T) {
	store := newTestStore(t)

	jazz := testListing("1", "2024-01-01T00:00:00+00:00")
	jazz.ReleaseTitle = "Blue Train"
	jazz.ArtistNames = "John Coltrane"
	jazz.Genres = "Jazz"
	jazz.FormatNames = "Vinyl; LP"
	require.NoError(t, store.InsertListing(jazz))

	techno := testListing("2", "2024-01-02T00:00:00+00:00")
	techno.ReleaseTitle = "Tresor Nights"
	techno.ArtistNames = "Jeff Mills"
	techno.Genres = "Electronic"
	techno.FormatNames = "Vinyl; 12\""
	require.NoError(t, store.InsertListing(techno))

	byTitle, err := store.SearchListings("blue", "", "", "")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "1", byTitle[0].ListingID)

	byArtist, err := store.SearchListings("", "mills", "", "")
	require.NoError(t, err)
	require.Len(t, byArtist, 1)
	assert.Equal(t, "2", byArtist[0].ListingID)

	byGenre, err := store.SearchListings("", "", "jazz", "")
	require.NoError(t, err)
	assert.Len(t, byGenre, 1)

	byFormat, err := store.SearchListings("", "", "", "vinyl")
	require.NoError(t, err)
	assert.Len(t, byFormat, 2)
}

func TestFilterListings(t *testing.T) {
	store := newTestStore(t)

	a := testListing("1", "2024-01-01T00:00:00+00:00")
	a.PrimaryArtist = "Aphex Twin"
	a.PrimaryLabel = "Warp"
	a.ReleaseYear = "1994"
	require.NoError(t, store.InsertListing(a))

	b := testListing("2", "2024-01-02T00:00:00+00:00")
	b.PrimaryArtist = "Boards of Canada"
	b.PrimaryLabel = "Warp"
	b.ReleaseYear = "1998"
	require.NoError(t, store.InsertListing(b))

	byLabel, err := store.FilterListings(FilterParams{Label: "Warp"})
	require.NoError(t, err)
	assert.Len(t, byLabel, 2)

	byArtist, err := store.FilterListings(FilterParams{Artist: "Aphex Twin"})
	require.NoError(t, err)
	require.Len(t, byArtist, 1)
	assert.Equal(t, "1", byArtist[0].ListingID)

	// Exact match only.
	none, err := store.FilterListings(FilterParams{Artist: "Aphex"})
	require.NoError(t, err)
	assert.Empty(t, none)

	byYear, err := store.FilterListings(FilterParams{Year: "1998"})
	require.NoError(t, err)
	require.Len(t, byYear, 1)
	assert.Equal(t, "2", byYear[0].ListingID)
}

func TestFacets(t *testing.T) {
	store := newTestStore(t)

	for i, artist := range []string{"A", "A", "B"} {
		l := testListing(string(rune('1'+i)), "2024-01-01T00:00:00+00:00")
		l.PrimaryArtist = artist
		l.PrimaryLabel = "L"
		l.ReleaseYear = "199" + string(rune('0'+i))
		require.NoError(t, store.InsertListing(l))
	}

	// Empty values never become facet entries.
	empty := testListing("9", "2024-01-01T00:00:00+00:00")
	empty.PrimaryArtist = ""
	empty.Condition = ""
	require.NoError(t, store.InsertListing(empty))

	facets, err := store.Facets()
	require.NoError(t, err)

	require.Len(t, facets.Artists, 2)
	assert.Equal(t, FacetEntry{Value: "A", Count: 2}, facets.Artists[0])
	assert.Equal(t, FacetEntry{Value: "B", Count: 1}, facets.Artists[1])

	require.Len(t, facets.Years, 3)
	assert.Equal(t, "1992", facets.Years[0].Value, "years sort newest first")

	require.NotEmpty(t, facets.Conditions)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalListings)
	assert.Nil(t, stats.LastUpdated)

	require.NoError(t, store.InsertListing(testListing("1", "2024-01-01T00:00:00+00:00")))

	stats, err = store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalListings)
	require.NotNil(t, stats.LastUpdated)
	assert.WithinDuration(t, time.Now().UTC(), *stats.LastUpdated, time.Minute)
}

func TestSoftDeleteRestoreMarkSold(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InsertListing(testListing("123", "2024-01-01T00:00:00+00:00")))

	found, err := store.SoftDeleteListing("123")
	require.NoError(t, err)
	assert.True(t, found)

	_, err = store.ActiveListingByListingID("123")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := store.ListingByListingID("123")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.RemovedAt)

	// Soft-deleting an already hidden listing still reports found.
	found, err = store.SoftDeleteListing("123")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.RestoreListing("123")
	require.NoError(t, err)
	assert.True(t, found)

	got, err = store.ActiveListingByListingID("123")
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.RemovedAt)

	found, err = store.MarkListingSold("123")
	require.NoError(t, err)
	assert.True(t, found)

	got, err = store.ListingByListingID("123")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.SoldAt)
}

func TestSoftDeleteUnknownListing(t *testing.T) {
	store := newTestStore(t)

	for name, op := range map[string]func(string) (bool, error){
		"soft delete": store.SoftDeleteListing,
		"restore":     store.RestoreListing,
		"mark sold":   store.MarkListingSold,
	} {
		found, err := op("missing")
		require.NoError(t, err, name)
		assert.False(t, found, name)
	}
}

func TestCustomMetadataRoundTrip(t *testing.T) {
	store := newTestStore(t)

	l := testListing("123", "2024-01-01T00:00:00+00:00")
	l.CustomMetadata = json.RawMessage(`{"staff_pick":true,"note":"store favorite"}`)
	require.NoError(t, store.InsertListing(l))

	got, err := store.ActiveListingByListingID("123")
	require.NoError(t, err)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(got.CustomMetadata, &meta))
	assert.Equal(t, true, meta["staff_pick"])
	assert.Equal(t, "store favorite", meta["note"])
}

func TestLabelOverviewCache(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LabelOverview("Warp")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveLabelOverview("Warp", "Warp is a UK electronic label.", "gemini-flash-latest"))

	info, err := store.LabelOverview("Warp")
	require.NoError(t, err)
	assert.Equal(t, "Warp is a UK electronic label.", info.Overview)
	assert.Equal(t, "gemini-flash-latest", info.GeneratedBy)
	assert.True(t, info.CacheValid)
	assert.Nil(t, info.GenerationError)
	require.NotNil(t, info.GeneratedAt)
	firstID := info.ID

	// Saving again updates the same row instead of creating a second one.
	require.NoError(t, store.SaveLabelOverview("Warp", "Updated overview.", "gemini-flash-latest"))
	info, err = store.LabelOverview("Warp")
	require.NoError(t, err)
	assert.Equal(t, firstID, info.ID)
	assert.Equal(t, "Updated overview.", info.Overview)

	found, err := store.InvalidateLabelOverview("Warp")
	require.NoError(t, err)
	assert.True(t, found)

	info, err = store.LabelOverview("Warp")
	require.NoError(t, err)
	assert.False(t, info.CacheValid)

	found, err = store.InvalidateLabelOverview("Unknown Label")
	require.NoError(t, err)
	assert.False(t, found)

	n, err := store.PurgeLabelOverviews()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRecordLabelError(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordLabelError("Obscure", "generation failed"))

	info, err := store.LabelOverview("Obscure")
	require.NoError(t, err)
	assert.False(t, info.CacheValid)
	require.NotNil(t, info.GenerationError)
	assert.Equal(t, "generation failed", *info.GenerationError)
	// Schema default survives error-only rows.
	assert.Equal(t, "gemini-1.5-flash", info.GeneratedBy)
}

func TestAccessLogAnalytics(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().UTC().Add(-1 * time.Hour)
	entries := []*AccessLog{
		{Timestamp: base, Method: "GET", Path: "/", IPAddress: "1.1.1.1", StatusCode: 200, ResponseTimeMS: 10},
		{Timestamp: base.Add(time.Minute), Method: "GET", Path: "/", IPAddress: "2.2.2.2", StatusCode: 200, ResponseTimeMS: 30},
		{Timestamp: base.Add(2 * time.Minute), Method: "GET", Path: "/api/data", IPAddress: "1.1.1.1", StatusCode: 500, ResponseTimeMS: 20},
	}
	for _, e := range entries {
		require.NoError(t, store.InsertAccessLog(e))
	}

	summary, err := store.AccessSummary(base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalRequests)
	assert.Equal(t, 2, summary.UniqueIPs)
	assert.Equal(t, 1, summary.ErrorCount)
	assert.InDelta(t, 20.0, summary.AvgResponseMS, 0.001)

	paths, err := store.TopPaths(base.Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, PathCount{Path: "/", Count: 2}, paths[0])

	recent, err := store.RecentAccess(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "/api/data", recent[0].Path)

	daily, err := store.DailyCounts(7)
	require.NoError(t, err)
	require.NotEmpty(t, daily)
	total := 0
	for _, d := range daily {
		total += d.Count
	}
	assert.Equal(t, 3, total)
}

func TestSessions(t *testing.T) {
	store := newTestStore(t)

	token, err := store.CreateSession(time.Hour)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	valid, err := store.ValidSession(token)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = store.ValidSession("bogus")
	require.NoError(t, err)
	assert.False(t, valid)

	require.NoError(t, store.DeleteSession(token))
	valid, err = store.ValidSession(token)
	require.NoError(t, err)
	assert.False(t, valid)

	expired, err := store.CreateSession(-time.Minute)
	require.NoError(t, err)
	valid, err = store.ValidSession(expired)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestEnsureArtist(t *testing.T) {
	store := newTestStore(t)

	id1, err := store.EnsureArtist("Aphex Twin")
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := store.EnsureArtist("Aphex Twin")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	other, err := store.EnsureArtist("Autechre")
	require.NoError(t, err)
	assert.NotEqual(t, id1, other)

	a, err := store.ArtistByUUID(id1)
	require.NoError(t, err)
	assert.Equal(t, "Aphex Twin", a.Name)
}

func TestClearListings(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InsertListing(testListing("1", "2024-01-01T00:00:00+00:00")))
	require.NoError(t, store.ClearListings())
	n, err := store.CountListings(false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
