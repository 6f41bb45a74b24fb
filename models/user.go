package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account identity. Exactly one of StudentProfile/AssociateProfile
// is created alongside it depending on the role at creation time.
type User struct {
	ID               string            `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	Email            string            `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash     []byte            `gorm:"not null" json:"-"`
	FirstName        string            `gorm:"size:128;not null" json:"firstName"`
	LastName         string            `gorm:"size:128;not null" json:"lastName"`
	Role             Role              `gorm:"size:32;not null;index;default:STUDENT" json:"role"`
	StudentProfile   *StudentProfile   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"studentProfile,omitempty"`
	AssociateProfile *AssociateProfile `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"associateProfile,omitempty"`
	Sessions         []Session         `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserSummary is the name-only projection included with leads and applications.
type UserSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
}

// AssociateProfile belongs to an ASSOCIATE user and carries the referral code
// handed out to partners.
type AssociateProfile struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	UserID       string    `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	ReferralCode string    `gorm:"size:32;uniqueIndex;not null" json:"referralCode"`
}

func (a *AssociateProfile) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
