package models

import (
	"time"

	"gorm.io/gorm"
)

// Task is a follow-up attached to a lead or an application.
type Task struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	DueDate       *time.Time `gorm:"index" json:"dueDate,omitempty"`
	Completed     bool       `gorm:"not null;default:false" json:"completed"`
	LeadID        *string    `gorm:"type:uuid;index" json:"leadId,omitempty"`
	ApplicationID *string    `gorm:"type:uuid;index" json:"applicationId,omitempty"`
	AssigneeID    *string    `gorm:"type:uuid;index" json:"assigneeId,omitempty"`
	Assignee      *User      `gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL;" json:"-"`
	RemindedAt    *time.Time `json:"remindedAt,omitempty"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
