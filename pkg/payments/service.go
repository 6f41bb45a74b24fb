// Package payments passes payments through to the provider and keeps the
// local Payment rows in step with its webhooks.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"invictcrm/models"
	"invictcrm/pkg/apperr"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/events"
	"invictcrm/pkg/metrics"
	"invictcrm/pkg/store"
)

// MinAmount is the smallest chargeable amount in minor units.
const MinAmount = 50

type Store interface {
	store.Payments
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type Service struct {
	store    Store
	provider Provider
	events   events.Publisher
	currency string
	appURL   string
	log      *slog.Logger
}

func NewService(s Store, p Provider, pub events.Publisher, currency, appURL string, log *slog.Logger) *Service {
	return &Service{store: s, provider: p, events: pub, currency: currency, appURL: appURL, log: log}
}

type IntentInput struct {
	Amount      int64             `json:"amount"`
	Description string            `json:"description"`
	Kind        string            `json:"kind"`
	Metadata    map[string]string `json:"metadata"`
}

type IntentResult struct {
	ClientSecret string `json:"clientSecret"`
	PaymentID    string `json:"paymentId"`
}

type CheckoutInput struct {
	Amount      int64  `json:"amount"`
	ServiceType string `json:"serviceType"`
}

type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

func kindOf(s string) models.PaymentKind {
	switch k := models.PaymentKind(strings.ToUpper(s)); k {
	case models.PaymentServiceFee, models.PaymentDocumentFee:
		return k
	}
	return models.PaymentGeneral
}

func (s *Service) payer(ctx context.Context, caller auth.Identity) (*models.User, error) {
	u, err := s.store.GetUser(ctx, caller.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	return u, err
}

func studentOf(u *models.User) *string {
	if u.StudentProfile == nil {
		return nil
	}
	id := u.StudentProfile.ID
	return &id
}

func (s *Service) CreateIntent(ctx context.Context, caller auth.Identity, in IntentInput) (*IntentResult, error) {
	if in.Amount < MinAmount {
		return nil, apperr.Validation("Invalid amount")
	}
	u, err := s.payer(ctx, caller)
	if err != nil {
		return nil, err
	}
	meta := map[string]string{}
	for k, v := range in.Metadata {
		meta[k] = v
	}
	meta["userId"] = u.ID
	intent, err := s.provider.CreateIntent(ctx, IntentParams{Amount: in.Amount, Currency: s.currency, Description: in.Description, Metadata: meta})
	if err != nil {
		return nil, apperr.Upstream("Payment provider error", err)
	}
	p := &models.Payment{
		UserID:      u.ID,
		StudentID:   studentOf(u),
		Amount:      in.Amount,
		Currency:    s.currency,
		Kind:        kindOf(in.Kind),
		Status:      models.PaymentPending,
		ProviderID:  intent.ID,
		Description: in.Description,
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	return &IntentResult{ClientSecret: intent.ClientSecret, PaymentID: p.ID}, nil
}

func (s *Service) CreateCheckout(ctx context.Context, caller auth.Identity, in CheckoutInput) (*CheckoutResult, error) {
	if in.Amount < MinAmount {
		return nil, apperr.Validation("Invalid amount")
	}
	u, err := s.payer(ctx, caller)
	if err != nil {
		return nil, err
	}
	service := in.ServiceType
	if service == "" {
		service = "general"
	}
	co, err := s.provider.CreateCheckout(ctx, CheckoutParams{
		Amount:        in.Amount,
		Currency:      s.currency,
		ProductName:   "Invict Academy " + strings.ReplaceAll(service, "_", " "),
		CustomerEmail: u.Email,
		SuccessURL:    s.appURL + "/dashboard/payments/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.appURL + "/dashboard/payments/cancel",
		Metadata:      map[string]string{"userId": u.ID, "serviceType": service},
	})
	if err != nil {
		return nil, apperr.Upstream("Payment provider error", err)
	}
	p := &models.Payment{
		UserID:      u.ID,
		StudentID:   studentOf(u),
		Amount:      in.Amount,
		Currency:    s.currency,
		Kind:        kindOf(service),
		Status:      models.PaymentPending,
		ProviderID:  co.ID,
		Description: service,
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	return &CheckoutResult{SessionID: co.ID, URL: co.URL}, nil
}

// HandleWebhook verifies and applies a provider event. Unhandled event types
// are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if signature == "" {
		return apperr.Validation("No signature")
	}
	ev, err := s.provider.ParseEvent(payload, signature)
	if errors.Is(err, ErrInvalidSignature) {
		return apperr.Validation("Invalid signature")
	}
	if err != nil {
		return apperr.Validation("Invalid payload")
	}
	metrics.RecordPaymentEvent(ev.Type)

	var status models.PaymentStatus
	switch ev.Type {
	case EventIntentSucceeded, EventCheckoutCompleted:
		status = models.PaymentSuccess
	case EventIntentFailed:
		status = models.PaymentFailed
	default:
		s.log.Info("unhandled payment event", "type", ev.Type)
		return nil
	}

	err = s.store.SetPaymentStatus(ctx, ev.ObjectID, status)
	if errors.Is(err, store.ErrNotFound) {
		err = s.recordUnknown(ctx, ev, status)
	}
	if err != nil {
		return fmt.Errorf("apply %s: %w", ev.Type, err)
	}

	evType := events.PaymentSucceeded
	if status == models.PaymentFailed {
		evType = events.PaymentFailed
	}
	s.events.Publish(ctx, events.Event{Type: evType, EntityID: ev.ObjectID, Data: map[string]any{"amount": ev.Amount, "currency": ev.Currency}})
	return nil
}

// recordUnknown creates the row for a successful payment that was started
// outside this API, using the userId the caller put in the metadata.
func (s *Service) recordUnknown(ctx context.Context, ev Event, status models.PaymentStatus) error {
	userID := ev.Metadata["userId"]
	if status != models.PaymentSuccess || userID == "" {
		s.log.Warn("payment event for unknown payment", "type", ev.Type, "id", ev.ObjectID)
		return nil
	}
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("payment event for unknown user", "type", ev.Type, "id", ev.ObjectID, "user_id", userID)
		return nil
	}
	if err != nil {
		return err
	}
	currency := ev.Currency
	if currency == "" {
		currency = s.currency
	}
	err = s.store.CreatePayment(ctx, &models.Payment{
		UserID:     u.ID,
		StudentID:  studentOf(u),
		Amount:     ev.Amount,
		Currency:   currency,
		Kind:       kindOf(ev.Metadata["serviceType"]),
		Status:     status,
		ProviderID: ev.ObjectID,
	})
	if errors.Is(err, store.ErrDuplicate) {
		// a concurrent delivery of the same event won
		return s.store.SetPaymentStatus(ctx, ev.ObjectID, status)
	}
	return err
}

func (s *Service) List(ctx context.Context) ([]models.Payment, error) {
	out, err := s.store.ListPayments(ctx, store.PaymentFilter{})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

// Revenue sums successful payments.
func (s *Service) Revenue(ctx context.Context) (int64, error) {
	total, _, err := s.store.SumPayments(ctx, store.PaymentFilter{Status: models.PaymentSuccess})
	if err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}
