// Package stripe wraps the payment processor behind the three calls the
// checkout pipeline needs: authorize an amount, capture it after buyer
// approval, or cancel the authorization.
package stripe

import (
	"errors"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/webhook"
)

type Event = stripe.Event

type Client interface {
	// CreateAuthorization places a hold for amount (in the currency's
	// smallest unit) and returns the authorization id. No money moves yet.
	CreateAuthorization(amount int64, currency string, description string) (string, error)
	// Capture settles a previously approved authorization and returns the
	// transaction id of the resulting charge.
	Capture(authorizationID string) (string, error)
	// CancelAuthorization releases the hold without charging the buyer.
	CancelAuthorization(authorizationID string) error
	VerifyWebhookSignature(payload []byte, signature string) (Event, error)
}

type stripeClient struct {
	webhookSecret string
}

func NewStripeClient(apiKey string, webhookSecret string) Client {
	stripe.Key = apiKey

	return &stripeClient{webhookSecret: webhookSecret}
}

func (s *stripeClient) CreateAuthorization(amount int64, currency string, description string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(currency),
		Description:   stripe.String(description),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}

	return intent.ID, nil
}

func (s *stripeClient) Capture(authorizationID string) (string, error) {
	intent, err := paymentintent.Capture(authorizationID, &stripe.PaymentIntentCaptureParams{})
	if err != nil {
		return "", err
	}

	if intent.LatestCharge != nil && intent.LatestCharge.ID != "" {
		return intent.LatestCharge.ID, nil
	}

	return intent.ID, nil
}

func (s *stripeClient) CancelAuthorization(authorizationID string) error {
	_, err := paymentintent.Cancel(authorizationID, nil)

	return err
}

func (s *stripeClient) VerifyWebhookSignature(payload []byte, signature string) (Event, error) {
	if s.webhookSecret == "" {
		return Event{}, errors.New("webhook secret not configured")
	}

	return webhook.ConstructEvent(payload, signature, s.webhookSecret)
}
