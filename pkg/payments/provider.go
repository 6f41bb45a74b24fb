package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Provider webhook event types handled by the service.
const (
	EventIntentSucceeded   = "payment_intent.succeeded"
	EventIntentFailed      = "payment_intent.payment_failed"
	EventCheckoutCompleted = "checkout.session.completed"
)

type IntentParams struct {
	Amount      int64
	Currency    string
	Description string
	Metadata    map[string]string
}

type Intent struct {
	ID           string
	ClientSecret string
}

type CheckoutParams struct {
	Amount        int64
	Currency      string
	ProductName   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

type Checkout struct {
	ID  string
	URL string
}

// Event is the provider-neutral view of a verified webhook.
type Event struct {
	Type     string
	ObjectID string
	Amount   int64
	Currency string
	Metadata map[string]string
}

type Provider interface {
	CreateIntent(ctx context.Context, p IntentParams) (Intent, error)
	CreateCheckout(ctx context.Context, p CheckoutParams) (Checkout, error)
	// ParseEvent verifies the signature and decodes the event.
	ParseEvent(payload []byte, signature string) (Event, error)
}

// Stripe is the Provider backed by the Stripe API.
type Stripe struct {
	api           *client.API
	webhookSecret string
}

func NewStripe(secretKey, webhookSecret string) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api, webhookSecret: webhookSecret}
}

func (s *Stripe) CreateIntent(ctx context.Context, p IntentParams) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(p.Amount),
		Currency:    stripe.String(p.Currency),
		Description: stripe.String(p.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, err
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (s *Stripe) CreateCheckout(ctx context.Context, p CheckoutParams) (Checkout, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(p.Currency),
				UnitAmount:  stripe.Int64(p.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(p.ProductName)},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Checkout{}, err
	}
	return Checkout{ID: sess.ID, URL: sess.URL}, nil
}

func (s *Stripe) ParseEvent(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := Event{Type: string(ev.Type)}
	switch out.Type {
	case EventIntentSucceeded, EventIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return Event{}, fmt.Errorf("decode payment intent: %w", err)
		}
		out.ObjectID, out.Amount, out.Currency, out.Metadata = pi.ID, pi.Amount, string(pi.Currency), pi.Metadata
	case EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return Event{}, fmt.Errorf("decode checkout session: %w", err)
		}
		out.ObjectID, out.Amount, out.Currency, out.Metadata = cs.ID, cs.AmountTotal, string(cs.Currency), cs.Metadata
	}
	return out, nil
}

// ErrNotConfigured is returned by Unconfigured for every call.
var ErrNotConfigured = errors.New("payment provider not configured")

// Unconfigured stands in for Stripe when no secret key is set. Payment
// routes then fail with an upstream error instead of the server refusing to
// start.
type Unconfigured struct{}

func (Unconfigured) CreateIntent(context.Context, IntentParams) (Intent, error) {
	return Intent{}, ErrNotConfigured
}

func (Unconfigured) CreateCheckout(context.Context, CheckoutParams) (Checkout, error) {
	return Checkout{}, ErrNotConfigured
}

func (Unconfigured) ParseEvent([]byte, string) (Event, error) {
	return Event{}, ErrInvalidSignature
}
