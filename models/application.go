package models

import (
	"time"

	"gorm.io/gorm"
)

type ApplicationType string

const (
	ApplicationUniversity  ApplicationType = "UNIVERSITY"
	ApplicationScholarship ApplicationType = "SCHOLARSHIP"
	ApplicationVisa        ApplicationType = "VISA"
	ApplicationHousing     ApplicationType = "HOUSING"
)

func (t ApplicationType) Valid() bool {
	switch t {
	case ApplicationUniversity, ApplicationScholarship, ApplicationVisa, ApplicationHousing:
		return true
	}
	return false
}

type ApplicationStatus string

const (
	ApplicationDraft            ApplicationStatus = "DRAFT"
	ApplicationSubmitted        ApplicationStatus = "SUBMITTED"
	ApplicationDocumentsPending ApplicationStatus = "DOCUMENTS_PENDING"
	ApplicationUnderReview      ApplicationStatus = "UNDER_REVIEW"
	ApplicationApproved         ApplicationStatus = "APPROVED"
	ApplicationRejected         ApplicationStatus = "REJECTED"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationDraft, ApplicationSubmitted, ApplicationDocumentsPending, ApplicationUnderReview, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

// Application is one university/program submission tracked through the
// status pipeline. It belongs to exactly one StudentProfile.
type Application struct {
	ID             string            `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	StudentID      string            `gorm:"type:uuid;index;not null" json:"studentId"`
	Student        *StudentProfile   `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Type           ApplicationType   `gorm:"size:32;not null" json:"type"`
	Country        string            `gorm:"size:128;not null" json:"country"`
	University     string            `gorm:"size:255" json:"university,omitempty"`
	Program        string            `gorm:"size:255" json:"program,omitempty"`
	IntakeTerm     string            `gorm:"size:64" json:"intakeTerm,omitempty"`
	Deadline       *time.Time        `json:"deadline,omitempty"`
	Status         ApplicationStatus `gorm:"size:32;not null;index;default:DRAFT" json:"status"`
	ChecklistItems []ChecklistItem   `gorm:"constraint:OnDelete:CASCADE;" json:"checklistItems,omitempty"`
	Tasks          []Task            `gorm:"constraint:OnDelete:CASCADE;" json:"tasks,omitempty"`
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// ChecklistItem is a required step of an application (e.g. "upload transcript").
type ChecklistItem struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	ApplicationID string    `gorm:"type:uuid;index;not null" json:"applicationId"`
	Label         string    `gorm:"size:255;not null" json:"label"`
	Done          bool      `gorm:"not null;default:false" json:"done"`
}

func (c *ChecklistItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
