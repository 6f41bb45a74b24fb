package store

import (
	"context"

	"gorm.io/gorm"

	"invictcrm/models"
)

func (s *DB) CreatePayment(ctx context.Context, p *models.Payment) error {
	return mapErr(s.db.WithContext(ctx).Create(p).Error)
}

func (s *DB) GetPaymentByProviderID(ctx context.Context, providerID string) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).First(&p, "provider_id = ?", providerID).Error; err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *DB) SetPaymentStatus(ctx context.Context, providerID string, status models.PaymentStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Payment{}).Where("provider_id = ?", providerID).Update("status", status)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DB) ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, error) {
	var out []models.Payment
	if err := s.paymentScope(ctx, f).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *DB) SumPayments(ctx context.Context, f PaymentFilter) (int64, int64, error) {
	var row struct {
		Total int64
		Count int64
	}
	err := s.paymentScope(ctx, f).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Scan(&row).Error
	if err != nil {
		return 0, 0, mapErr(err)
	}
	return row.Total, row.Count, nil
}

func (s *DB) paymentScope(ctx context.Context, f PaymentFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Payment{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	return q
}
