package models

import (
	"time"

	"gorm.io/gorm"
)

// Session stores a hashed refresh token. Rows are deleted on logout and on
// rotation; expiry is checked by timestamp.
type Session struct {
	ID               string    `gorm:"type:uuid;primaryKey"`
	CreatedAt        time.Time
	UserID           string    `gorm:"type:uuid;index;not null"`
	RefreshTokenHash string    `gorm:"size:128;not null;uniqueIndex"`
	ExpiresAt        time.Time `gorm:"index;not null"`
}

func (s *Session) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
