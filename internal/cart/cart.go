package cart

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
)

const (
	taxRate         = 0.085
	flatShipping    = 5.99
	freeShippingMin = 50.0
)

// ListingGetter resolves a cart entry to an active listing.
type ListingGetter interface {
	ActiveListingByListingID(listingID string) (*storage.Listing, error)
}

// RawItem is one cart entry as the client sends it. Quantity stays
// untyped because clients send numbers and numeric strings.
type RawItem struct {
	ListingID string `json:"listing_id"`
	Quantity  any    `json:"quantity"`
}

// Item is a validated cart entry projected from the live listing.
type Item struct {
	ListingID string  `json:"listing_id"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ItemTotal float64 `json:"item_total"`
	Currency  string  `json:"currency"`
	Image     string  `json:"image"`
}

// Summary is the cart totals block.
type Summary struct {
	Subtotal             float64 `json:"subtotal"`
	Tax                  float64 `json:"tax"`
	Shipping             float64 `json:"shipping"`
	Total                float64 `json:"total"`
	Currency             string  `json:"currency"`
	ItemCount            int     `json:"item_count"`
	FreeShippingEligible bool    `json:"free_shipping_eligible"`
}

// Validation is the result of checking a whole cart.
type Validation struct {
	Valid   bool     `json:"valid"`
	Items   []Item   `json:"items"`
	Errors  []string `json:"errors"`
	Summary Summary  `json:"summary"`
}

// Service validates carts and computes totals against live listings.
type Service struct {
	store ListingGetter
}

// NewService creates a cart service
func NewService(store ListingGetter) *Service {
	return &Service{store: store}
}

// ValidateItem checks one cart entry and projects it from the current
// listing state. The returned error text is client-facing.
func (s *Service) ValidateItem(raw RawItem) (*Item, error) {
	if raw.ListingID == "" {
		return nil, errors.New("Missing required field: listing_id")
	}
	if raw.Quantity == nil {
		return nil, errors.New("Missing required field: quantity")
	}

	qty, err := parseQuantity(raw.Quantity)
	if err != nil {
		return nil, err
	}
	if qty < 1 {
		return nil, errors.New("Quantity must be a positive integer")
	}

	listing, err := s.store.ActiveListingByListingID(raw.ListingID)
	if err != nil {
		return nil, fmt.Errorf("Item %s no longer available", raw.ListingID)
	}

	return &Item{
		ListingID: raw.ListingID,
		Title:     listing.ReleaseTitle,
		Artist:    listing.ArtistNames,
		Price:     listing.PriceValue,
		Quantity:  qty,
		ItemTotal: listing.PriceValue * float64(qty),
		Currency:  listing.PriceCurrency,
		Image:     listing.ImageURI,
	}, nil
}

// ValidateCart checks every entry, collecting per-item errors. An empty
// cart is valid with zero totals.
func (s *Service) ValidateCart(raw []RawItem) *Validation {
	v := &Validation{Items: []Item{}, Errors: []string{}}
	for _, r := range raw {
		item, err := s.ValidateItem(r)
		if err != nil {
			v.Errors = append(v.Errors, err.Error())
			continue
		}
		v.Items = append(v.Items, *item)
	}
	v.Valid = len(v.Errors) == 0
	v.Summary = Summarize(v.Items)
	return v
}

// Summarize computes subtotal, tax, shipping, and total for validated
// items. Currency comes from the first item.
func Summarize(items []Item) Summary {
	sum := Summary{}
	if len(items) == 0 {
		return sum
	}

	for _, item := range items {
		sum.Subtotal += item.ItemTotal
		sum.ItemCount += item.Quantity
	}
	sum.Currency = items[0].Currency

	sum.Tax = sum.Subtotal * taxRate
	if sum.Subtotal >= freeShippingMin {
		sum.FreeShippingEligible = true
	} else {
		sum.Shipping = flatShipping
	}
	sum.Total = sum.Subtotal + sum.Tax + sum.Shipping

	sum.Subtotal = round2(sum.Subtotal)
	sum.Tax = round2(sum.Tax)
	sum.Shipping = round2(sum.Shipping)
	sum.Total = round2(sum.Total)
	return sum
}

func parseQuantity(v any) (int, error) {
	switch q := v.(type) {
	case float64:
		if q != math.Trunc(q) {
			return 0, errors.New("Quantity must be a valid integer")
		}
		return int(q), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(q))
		if err != nil {
			return 0, errors.New("Quantity must be a valid integer")
		}
		return i, nil
	case int:
		return q, nil
	default:
		return 0, errors.New("Quantity must be a valid integer")
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// cents converts a 2dp amount to an integer minor-unit amount.
func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}
