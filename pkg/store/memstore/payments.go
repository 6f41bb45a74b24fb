package memstore

import (
	"context"

	"invictcrm/models"
	"invictcrm/pkg/store"
)

func (s *Store) CreatePayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payments {
		if existing.ProviderID == p.ProviderID {
			return store.ErrDuplicate
		}
	}
	if p.Currency == "" {
		p.Currency = "eur"
	}
	if p.Status == "" {
		p.Status = models.PaymentPending
	}
	if p.Kind == "" {
		p.Kind = models.PaymentGeneral
	}
	s.stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	s.payments[p.ID] = *p
	return nil
}

func (s *Store) GetPaymentByProviderID(_ context.Context, providerID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.payments {
		if p.ProviderID == providerID {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SetPaymentStatus(_ context.Context, providerID string, status models.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.payments {
		if p.ProviderID == providerID {
			p.Status = status
			s.touch(&p.UpdatedAt)
			s.payments[id] = p
			return nil
		}
	}
	return store.ErrNotFound
}

func match(p models.Payment, f store.PaymentFilter) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && p.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !p.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

func (s *Store) ListPayments(_ context.Context, f store.PaymentFilter) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Payment
	for _, p := range s.payments {
		if match(p, f) {
			out = append(out, p)
		}
	}
	newestFirst(s, out, func(p models.Payment) string { return p.ID })
	return out, nil
}

func (s *Store) SumPayments(_ context.Context, f store.PaymentFilter) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total, count int64
	for _, p := range s.payments {
		if match(p, f) {
			total += p.Amount
			count++
		}
	}
	return total, count, nil
}
