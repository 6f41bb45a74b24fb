package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LeadStatus string

const (
	LeadNew       LeadStatus = "NEW"
	LeadContacted LeadStatus = "CONTACTED"
	LeadQualified LeadStatus = "QUALIFIED"
	LeadConverted LeadStatus = "CONVERTED"
	LeadLost      LeadStatus = "LOST"
)

// ParseLeadStatus accepts the canonical names plus WON as an alias of CONVERTED.
func ParseLeadStatus(s string) (LeadStatus, bool) {
	switch LeadStatus(s) {
	case LeadNew, LeadContacted, LeadQualified, LeadConverted, LeadLost:
		return LeadStatus(s), true
	case "WON":
		return LeadConverted, true
	}
	return "", false
}

// Lead is a prospective customer captured from the public site or entered by
// staff. Email is deliberately not unique: the same person may submit twice.
type Lead struct {
	ID                string                               `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt         time.Time                            `gorm:"index" json:"createdAt"`
	UpdatedAt         time.Time                            `json:"updatedAt"`
	FirstName         string                               `gorm:"size:128;not null" json:"firstName"`
	LastName          string                               `gorm:"size:128;not null" json:"lastName"`
	Email             string                               `gorm:"size:255;not null;index" json:"email"`
	Phone             string                               `gorm:"size:64" json:"phone,omitempty"`
	InterestedDegree  string                               `gorm:"size:128" json:"interestedDegree,omitempty"`
	InterestedCountry string                               `gorm:"size:128" json:"interestedCountry,omitempty"`
	Destinations      datatypes.JSONSlice[string]          `gorm:"type:jsonb" json:"destinations,omitempty"`
	BudgetRange       string                               `gorm:"size:64" json:"budgetRange,omitempty"`
	Timeline          string                               `gorm:"size:64" json:"timeline,omitempty"`
	Status            LeadStatus                           `gorm:"size:32;not null;index;default:NEW" json:"status"`
	Source            string                               `gorm:"size:64" json:"source,omitempty"`
	Score             int                                  `gorm:"not null;default:0" json:"score"`
	AssignedToID      *string                              `gorm:"type:uuid;index" json:"assignedToId,omitempty"`
	AssignedTo        *User                                `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL;" json:"-"`
	Assignee          *UserSummary                         `gorm:"-" json:"assignedTo,omitempty"`
	Activities        []LeadActivity                       `gorm:"constraint:OnDelete:CASCADE;" json:"activities,omitempty"`
	Tasks             []Task                               `gorm:"constraint:OnDelete:CASCADE;" json:"tasks,omitempty"`
}

func (l *Lead) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// AfterFind fills the name-only assignee projection from a preloaded user.
func (l *Lead) AfterFind(*gorm.DB) error {
	if l.AssignedTo != nil {
		l.Assignee = &UserSummary{ID: l.AssignedTo.ID, FirstName: l.AssignedTo.FirstName, LastName: l.AssignedTo.LastName}
	}
	return nil
}

// FullName joins first and last name.
func (l Lead) FullName() string {
	return l.FirstName + " " + l.LastName
}

type ActivityKind string

const (
	ActivityCreated       ActivityKind = "created"
	ActivityStatusChanged ActivityKind = "status_changed"
	ActivityAssigned      ActivityKind = "assigned"
)

// LeadActivity is an append-only history entry for a lead.
type LeadActivity struct {
	ID        string       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	LeadID    string       `gorm:"type:uuid;index;not null" json:"leadId"`
	Kind      ActivityKind `gorm:"size:32;not null" json:"kind"`
	Detail    string       `gorm:"size:512" json:"detail,omitempty"`
}

func (a *LeadActivity) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
