package discogs

import (
	"strconv"
	"strings"
	"time"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
)

// RawListing is a marketplace listing as the inventory API returns it.
type RawListing struct {
	ID              int64      `json:"id"`
	Status          string     `json:"status"`
	Condition       string     `json:"condition"`
	SleeveCondition string     `json:"sleeve_condition"`
	Posted          string     `json:"posted"`
	URI             string     `json:"uri"`
	ResourceURL     string     `json:"resource_url"`
	Price           Money      `json:"price"`
	ShippingPrice   Money      `json:"shipping_price"`
	Weight          float64    `json:"weight"`
	FormatQuantity  int64      `json:"format_quantity"`
	ExternalID      string     `json:"external_id"`
	Location        string     `json:"location"`
	Comments        string     `json:"comments"`
	Release         RawRelease `json:"release"`
}

// Money is a price with its currency.
type Money struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// RawRelease is the nested release block of an inventory listing.
type RawRelease struct {
	ID            int64        `json:"id"`
	Title         string       `json:"title"`
	Year          int64        `json:"year"`
	ResourceURL   string       `json:"resource_url"`
	URI           string       `json:"uri"`
	Artist        string       `json:"artist"`
	Artists       []RawArtist  `json:"artists"`
	Label         string       `json:"label"`
	Labels        []RawLabel   `json:"labels"`
	Formats       []RawFormat  `json:"formats"`
	Genres        []string     `json:"genres"`
	Styles        []string     `json:"styles"`
	Country       string       `json:"country"`
	CatalogNumber string       `json:"catalog_number"`
	Barcode       string       `json:"barcode"`
	MasterID      int64        `json:"master_id"`
	MasterURL     string       `json:"master_url"`
	Images        []RawImage   `json:"images"`
	Community     RawCommunity `json:"community"`
}

// RawArtist is one credited artist.
type RawArtist struct {
	Name string `json:"name"`
}

// RawLabel is one release label credit.
type RawLabel struct {
	Name  string `json:"name"`
	CatNo string `json:"catno"`
}

// RawFormat is one media format entry.
type RawFormat struct {
	Name         string   `json:"name"`
	Qty          string   `json:"qty"`
	Descriptions []string `json:"descriptions"`
}

// RawImage is one release image.
type RawImage struct {
	URI         string `json:"uri"`
	ResourceURL string `json:"resource_url"`
}

// RawCommunity holds release collection counts.
type RawCommunity struct {
	Have int64 `json:"have"`
	Want int64 `json:"want"`
}

// Flatten maps a nested API listing onto a flat storage row. Returns nil
// when the listing has no usable ID; callers skip those rows.
func Flatten(raw RawListing, now time.Time) *storage.Listing {
	if raw.ID == 0 {
		return nil
	}

	rel := raw.Release
	l := &storage.Listing{
		ListingID:            strconv.FormatInt(raw.ID, 10),
		Status:               raw.Status,
		Condition:            raw.Condition,
		SleeveCondition:      raw.SleeveCondition,
		Posted:               raw.Posted,
		URI:                  raw.URI,
		ResourceURL:          raw.ResourceURL,
		PriceValue:           raw.Price.Value,
		PriceCurrency:        raw.Price.Currency,
		ShippingPrice:        nonZeroFloat(raw.ShippingPrice.Value),
		ShippingCurrency:     raw.ShippingPrice.Currency,
		Weight:               nonZeroFloat(raw.Weight),
		FormatQuantity:       nonZeroInt(raw.FormatQuantity),
		ExternalID:           raw.ExternalID,
		Location:             raw.Location,
		Comments:             raw.Comments,
		ReleaseID:            formatID(rel.ID),
		ReleaseTitle:         rel.Title,
		ReleaseYear:          formatID(rel.Year),
		ReleaseResourceURL:   rel.ResourceURL,
		ReleaseURI:           rel.URI,
		Country:              rel.Country,
		CatalogNumber:        rel.CatalogNumber,
		Barcode:              rel.Barcode,
		MasterID:             formatID(rel.MasterID),
		MasterURL:            rel.MasterURL,
		Genres:               strings.Join(rel.Genres, "; "),
		Styles:               strings.Join(rel.Styles, "; "),
		ReleaseCommunityHave: nonZeroInt(rel.Community.Have),
		ReleaseCommunityWant: nonZeroInt(rel.Community.Want),
		ExportTimestamp:      now.UTC().Format(time.RFC3339),
		IsActive:             true,
	}

	// A plain artist string wins over the credits array.
	switch {
	case rel.Artist != "":
		l.ArtistNames = rel.Artist
		l.PrimaryArtist = rel.Artist
	case len(rel.Artists) > 0:
		names := make([]string, 0, len(rel.Artists))
		for _, a := range rel.Artists {
			names = append(names, a.Name)
		}
		l.ArtistNames = strings.Join(names, "; ")
		l.PrimaryArtist = rel.Artists[0].Name
	}

	switch {
	case rel.Label != "":
		l.LabelNames = rel.Label
		l.PrimaryLabel = rel.Label
	case len(rel.Labels) > 0:
		names := make([]string, 0, len(rel.Labels))
		for _, lb := range rel.Labels {
			names = append(names, lb.Name)
		}
		l.LabelNames = strings.Join(names, "; ")
		l.PrimaryLabel = rel.Labels[0].Name
	}

	if len(rel.Formats) > 0 {
		names := make([]string, 0, len(rel.Formats))
		for _, f := range rel.Formats {
			names = append(names, f.Name)
		}
		l.FormatNames = strings.Join(names, "; ")
		l.PrimaryFormat = rel.Formats[0].Name
	}

	if len(rel.Images) > 0 {
		l.ImageURI = rel.Images[0].URI
		l.ImageResourceURL = rel.Images[0].ResourceURL
	}

	return l
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func nonZeroFloat(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func nonZeroInt(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
