package cart

import "strings"

// ValidationError is returned when a cart fails validation on the way
// to payment. It carries the client-facing per-item messages.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "Cart validation failed"
}

// PaymentCart is a validated cart shaped for payment processing.
type PaymentCart struct {
	Items         []Item  `json:"items"`
	Summary       Summary `json:"summary"`
	PaymentAmount int64   `json:"payment_amount"`
	CurrencyCode  string  `json:"currency_code"`
}

// StripeLine mirrors one Stripe Checkout line item.
type StripeLine struct {
	PriceData PriceData `json:"price_data"`
	Quantity  int       `json:"quantity"`
}

// PriceData is the price block of a Stripe line item.
type PriceData struct {
	Currency    string      `json:"currency"`
	ProductData ProductData `json:"product_data"`
	UnitAmount  int64       `json:"unit_amount"`
}

// ProductData names the product on a Stripe line item.
type ProductData struct {
	Name   string   `json:"name"`
	Images []string `json:"images,omitempty"`
}

// StripeCart is a validated cart expanded into Stripe line items, with
// shipping and tax as their own lines.
type StripeCart struct {
	LineItems   []StripeLine `json:"line_items"`
	TotalAmount int64        `json:"total_amount"`
	Currency    string       `json:"currency"`
	Summary     Summary      `json:"summary"`
}

// PrepareForPayment validates the cart and converts the total to an
// integer minor-unit amount.
func (s *Service) PrepareForPayment(raw []RawItem) (*PaymentCart, error) {
	v := s.ValidateCart(raw)
	if !v.Valid {
		return nil, &ValidationError{Errors: v.Errors}
	}

	code := strings.ToLower(v.Summary.Currency)
	if code == "" {
		code = "usd"
	}

	return &PaymentCart{
		Items:         v.Items,
		Summary:       v.Summary,
		PaymentAmount: cents(v.Summary.Total),
		CurrencyCode:  code,
	}, nil
}

// StripeLines validates the cart and expands it into Stripe Checkout
// line items: one per record plus Shipping and Tax lines when nonzero.
func (s *Service) StripeLines(raw []RawItem) (*StripeCart, error) {
	payment, err := s.PrepareForPayment(raw)
	if err != nil {
		return nil, err
	}

	lines := make([]StripeLine, 0, len(payment.Items)+2)
	for _, item := range payment.Items {
		product := ProductData{Name: item.Title + " - " + item.Artist}
		if item.Image != "" {
			product.Images = []string{item.Image}
		}
		lines = append(lines, StripeLine{
			PriceData: PriceData{
				Currency:    payment.CurrencyCode,
				ProductData: product,
				UnitAmount:  cents(item.Price),
			},
			Quantity: item.Quantity,
		})
	}

	if payment.Summary.Shipping > 0 {
		lines = append(lines, StripeLine{
			PriceData: PriceData{
				Currency:    payment.CurrencyCode,
				ProductData: ProductData{Name: "Shipping"},
				UnitAmount:  cents(payment.Summary.Shipping),
			},
			Quantity: 1,
		})
	}
	if payment.Summary.Tax > 0 {
		lines = append(lines, StripeLine{
			PriceData: PriceData{
				Currency:    payment.CurrencyCode,
				ProductData: ProductData{Name: "Tax"},
				UnitAmount:  cents(payment.Summary.Tax),
			},
			Quantity: 1,
		})
	}

	return &StripeCart{
		LineItems:   lines,
		TotalAmount: payment.PaymentAmount,
		Currency:    payment.CurrencyCode,
		Summary:     payment.Summary,
	}, nil
}
