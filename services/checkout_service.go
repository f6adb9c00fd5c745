package services

import (
	"fmt"
	"os"

	"jastalkAPI/internal/types/catalog"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

type CheckoutService struct {
	successURL string
	cancelURL  string
}

func NewCheckoutService() *CheckoutService {
	base := os.Getenv("APP_BASE_URL")
	if base == "" {
		base = "http://localhost:3333"
	}

	return &CheckoutService{
		successURL: base + "/payment-success",
		cancelURL:  base + "/payment-cancelled",
	}
}

// CreateCheckoutSession builds a one-off Stripe Checkout session for a credit
// package. The user and package ids ride along in the session metadata so the
// webhook can fulfill the purchase without any extra lookup.
func (s *CheckoutService) CreateCheckoutSession(userID string, pkg catalog.CreditPackage) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(pkg.PriceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(pkg.Name),
						Description: stripe.String(fmt.Sprintf("%d interview minutes", pkg.Minutes)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
	}
	params.AddMetadata("user_id", userID)
	params.AddMetadata("package_id", pkg.ID)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess, nil
}
