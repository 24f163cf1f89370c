package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"go.uber.org/zap"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/cart"
)

// ErrNotConfigured is returned when checkout is requested without a
// Stripe secret key configured.
var ErrNotConfigured = errors.New("payment not configured")

// Session is a created hosted-checkout session.
type Session struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// CheckoutCreator starts a hosted checkout for a validated cart.
type CheckoutCreator interface {
	Enabled() bool
	CreateCheckout(ctx context.Context, sc *cart.StripeCart, origin string) (*Session, error)
}

// Disabled rejects every checkout. Used when no secret key is set.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) CreateCheckout(ctx context.Context, sc *cart.StripeCart, origin string) (*Session, error) {
	return nil, ErrNotConfigured
}

// StripeCheckout creates Stripe Checkout sessions.
type StripeCheckout struct {
	logger *zap.Logger
}

// NewStripeCheckout configures the Stripe client with the secret key.
func NewStripeCheckout(secretKey string, logger *zap.Logger) *StripeCheckout {
	stripe.Key = secretKey
	return &StripeCheckout{logger: logger}
}

func (s *StripeCheckout) Enabled() bool { return true }

// CreateCheckout opens a payment-mode checkout session for the cart.
// The shopper lands on {origin}/checkout/success or back on
// {origin}/cart.
func (s *StripeCheckout) CreateCheckout(ctx context.Context, sc *cart.StripeCart, origin string) (*Session, error) {
	params := sessionParams(sc, origin)
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}

	s.logger.Info("checkout session created",
		zap.String("session_id", sess.ID),
		zap.Int64("amount", sc.TotalAmount),
		zap.String("currency", sc.Currency))

	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func sessionParams(sc *cart.StripeCart, origin string) *stripe.CheckoutSessionParams {
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(sc.LineItems))
	for _, line := range sc.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(line.PriceData.ProductData.Name),
		}
		if len(line.PriceData.ProductData.Images) > 0 {
			product.Images = stripe.StringSlice(line.PriceData.ProductData.Images)
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(line.PriceData.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(line.PriceData.UnitAmount),
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}

	return &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  items,
		SuccessURL: stripe.String(origin + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(origin + "/cart"),
	}
}
