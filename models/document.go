package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type DocumentType string

const (
	DocumentPassport            DocumentType = "PASSPORT"
	DocumentTranscript          DocumentType = "TRANSCRIPT"
	DocumentBachelorDegree      DocumentType = "BACHELOR_DEGREE"
	DocumentLanguageCertificate DocumentType = "LANGUAGE_CERTIFICATE"
	DocumentGeneral             DocumentType = "GENERAL"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentPassport, DocumentTranscript, DocumentBachelorDegree, DocumentLanguageCertificate, DocumentGeneral:
		return true
	}
	return false
}

type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "PENDING"
	DocumentApproved DocumentStatus = "APPROVED"
	DocumentRejected DocumentStatus = "REJECTED"
)

// Document is the metadata row for an object in storage. Size stays 0 until
// the client confirms the upload.
type Document struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	StudentID    string         `gorm:"type:uuid;index;not null" json:"studentId"`
	Type         DocumentType   `gorm:"size:32;not null;default:GENERAL" json:"type"`
	StorageKey   string         `gorm:"size:512;not null;uniqueIndex" json:"storageKey"`
	Filename     string         `gorm:"size:255;not null" json:"filename"`
	MimeType     string         `gorm:"size:128" json:"mimeType"`
	Size         int64          `gorm:"not null;default:0" json:"size"`
	Status       DocumentStatus `gorm:"size:32;not null;index;default:PENDING" json:"status"`
	UploadedAt   *time.Time     `json:"uploadedAt,omitempty"`
	ThumbnailKey string         `gorm:"size:512" json:"thumbnailKey,omitempty"`
	ReviewNotes  string         `gorm:"size:1024" json:"reviewNotes,omitempty"`
}

func (d *Document) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// IsImage reports whether the document can be thumbnailed.
func (d Document) IsImage() bool {
	return strings.HasPrefix(d.MimeType, "image/")
}
