package models

import (
	"time"

	"gorm.io/gorm"
)

type StudentStatus string

const (
	StudentNew            StudentStatus = "NEW"
	StudentActive         StudentStatus = "ACTIVE"
	StudentApplying       StudentStatus = "APPLYING"
	StudentAccepted       StudentStatus = "ACCEPTED"
	StudentVisaInProgress StudentStatus = "VISA_IN_PROGRESS"
	StudentArrived        StudentStatus = "ARRIVED"
)

func (s StudentStatus) Valid() bool {
	switch s {
	case StudentNew, StudentActive, StudentApplying, StudentAccepted, StudentVisaInProgress, StudentArrived:
		return true
	}
	return false
}

// StudentProfile is 1:1 with a STUDENT user and owns applications, documents
// and payments.
type StudentProfile struct {
	ID               string        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `gorm:"index" json:"updatedAt"`
	UserID           string        `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	User             *User         `gorm:"foreignKey:UserID" json:"-"`
	Owner            *UserSummary  `gorm:"-" json:"user,omitempty"`
	Status           StudentStatus `gorm:"size:32;not null;index;default:NEW" json:"status"`
	ReadinessScore   int           `gorm:"not null;default:0" json:"readinessScore"`
	Phone            string        `gorm:"size:64" json:"phone,omitempty"`
	DateOfBirth      *time.Time    `json:"dateOfBirth,omitempty"`
	Nationality      string        `gorm:"size:128" json:"nationality,omitempty"`
	PassportNumber   string        `gorm:"size:64" json:"passportNumber,omitempty"`
	PassportExpiry   *time.Time    `json:"passportExpiry,omitempty"`
	ParentName       string        `gorm:"size:255" json:"parentName,omitempty"`
	ParentPhone      string        `gorm:"size:64" json:"parentPhone,omitempty"`
	EmergencyContact string        `gorm:"size:255" json:"emergencyContact,omitempty"`
	Address          string        `gorm:"size:512" json:"address,omitempty"`
	Applications     []Application `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE;" json:"applications,omitempty"`
	Documents        []Document    `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE;" json:"documents,omitempty"`
	Payments         []Payment     `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE;" json:"payments,omitempty"`
}

func (s *StudentProfile) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func (s *StudentProfile) AfterFind(*gorm.DB) error {
	s.fillOwner()
	return nil
}

func (s *StudentProfile) fillOwner() {
	if s.User != nil {
		s.Owner = &UserSummary{ID: s.User.ID, FirstName: s.User.FirstName, LastName: s.User.LastName, Email: s.User.Email}
	}
}

// SetUser attaches the owning user and refreshes the serialized summary.
func (s *StudentProfile) SetUser(u *User) {
	s.User = u
	s.fillOwner()
}

// readinessFields are the profile fields that count towards readiness.
func (s StudentProfile) readinessFields() []string {
	return []string{s.Phone, s.Nationality, s.PassportNumber, s.Address, s.EmergencyContact}
}

// Readiness scores how far a student is towards a complete file: up to 50
// points for profile completeness and 50 for approved documents, measured
// against at least three documents. The result is rounded down.
func (s StudentProfile) Readiness(docs []Document) int {
	fields := s.readinessFields()
	filled := 0
	for _, f := range fields {
		if f != "" {
			filled++
		}
	}
	approved := 0
	for _, d := range docs {
		if d.Status == DocumentApproved {
			approved++
		}
	}
	expected := max(len(docs), 3)
	// common denominator keeps the sum exact before the final floor
	num := 50*filled*expected + 50*approved*len(fields)
	return num / (len(fields) * expected)
}
