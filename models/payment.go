package models

import (
	"time"

	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

type PaymentKind string

const (
	PaymentServiceFee  PaymentKind = "SERVICE_FEE"
	PaymentDocumentFee PaymentKind = "DOCUMENT_FEE"
	PaymentGeneral     PaymentKind = "GENERAL"
)

// Payment mirrors a provider-side payment intent or checkout session.
type Payment struct {
	ID          string        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	UserID      string        `gorm:"type:uuid;index;not null" json:"userId"`
	StudentID   *string       `gorm:"type:uuid;index" json:"studentId,omitempty"`
	Amount      int64         `gorm:"not null" json:"amount"` // minor units
	Currency    string        `gorm:"size:8;not null;default:eur" json:"currency"`
	Kind        PaymentKind   `gorm:"size:32;not null;default:GENERAL" json:"kind"`
	Status      PaymentStatus `gorm:"size:16;not null;index;default:PENDING" json:"status"`
	ProviderID  string        `gorm:"size:255;not null;uniqueIndex" json:"providerId"`
	Description string        `gorm:"size:512" json:"description,omitempty"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
