// Package documents handles student document uploads. Bytes never pass
// through the API: clients PUT to a pre-signed URL, then confirm.
package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"invictcrm/models"
	"invictcrm/pkg/apperr"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/events"
	"invictcrm/pkg/notify"
	"invictcrm/pkg/storage"
	"invictcrm/pkg/store"
)

type Store interface {
	store.Documents
	GetStudent(ctx context.Context, id string) (*models.StudentProfile, error)
	GetStudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	UpdateStudent(ctx context.Context, id string, p store.StudentPatch) (*models.StudentProfile, error)
}

type Service struct {
	store   Store
	storage storage.Storage
	notify  notify.Notifier
	events  events.Publisher
	expiry  time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func NewService(s Store, objects storage.Storage, n notify.Notifier, p events.Publisher, expiry time.Duration, log *slog.Logger) *Service {
	return &Service{store: s, storage: objects, notify: n, events: p, expiry: expiry, now: time.Now, log: log}
}

type InitializeInput struct {
	StudentID string `json:"studentId"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType"`
	Type      string `json:"type"`
}

// Upload is returned by Initialize: the pending document plus where to PUT it.
type Upload struct {
	Document  *models.Document `json:"document"`
	UploadURL string           `json:"uploadUrl"`
	ExpiresIn int              `json:"expiresIn"`
}

type Link struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expiresIn"`
}

func (s *Service) Initialize(ctx context.Context, caller auth.Identity, in InitializeInput) (*Upload, error) {
	if strings.TrimSpace(in.Filename) == "" {
		return nil, apperr.Validation("filename is required")
	}
	typ := models.DocumentGeneral
	if in.Type != "" {
		typ = models.DocumentType(strings.ToUpper(in.Type))
		if !typ.Valid() {
			return nil, apperr.Validation("unknown document type " + in.Type)
		}
	}
	mime := strings.TrimSpace(in.MimeType)
	if mime == "" {
		mime = "application/octet-stream"
	}
	studentID, err := s.targetStudent(ctx, caller, in.StudentID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("students/%s/%d-%s", studentID, s.now().UnixMilli(), SanitizeFilename(in.Filename))
	url, err := s.storage.PresignPut(ctx, key, mime, s.expiry)
	if err != nil {
		return nil, apperr.Upstream("Could not create upload URL", err)
	}
	doc := &models.Document{
		StudentID:  studentID,
		Type:       typ,
		StorageKey: key,
		Filename:   in.Filename,
		MimeType:   mime,
		Status:     models.DocumentPending,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return &Upload{Document: doc, UploadURL: url, ExpiresIn: int(s.expiry.Seconds())}, nil
}

// targetStudent resolves whose folder an upload goes to. Students always
// upload to their own profile.
func (s *Service) targetStudent(ctx context.Context, caller auth.Identity, requested string) (string, error) {
	if !caller.IsStaff() {
		sp, err := s.store.GetStudentByUserID(ctx, caller.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.Forbidden("Only students can upload documents")
		}
		if err != nil {
			return "", err
		}
		if requested != "" && requested != sp.ID {
			return "", apperr.Forbidden("You can only upload your own documents")
		}
		return sp.ID, nil
	}
	if requested == "" {
		return "", apperr.Validation("studentId is required")
	}
	if _, err := s.store.GetStudent(ctx, requested); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.NotFound("Student not found")
		}
		return "", err
	}
	return requested, nil
}

// Confirm records that the client finished the PUT. Confirming an upload
// that is already recorded with the same size changes nothing.
func (s *Service) Confirm(ctx context.Context, caller auth.Identity, id string) (*models.Document, error) {
	doc, err := s.visible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	info, err := s.storage.Head(ctx, doc.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Validation("upload not found in storage")
	}
	if err != nil {
		return nil, apperr.Upstream("Could not reach storage", err)
	}
	if doc.UploadedAt != nil && doc.Size == info.Size {
		return doc, nil
	}
	now := s.now().UTC()
	doc, err = s.store.UpdateDocument(ctx, id, store.DocumentPatch{Size: &info.Size, UploadedAt: &now})
	if err != nil {
		return nil, fmt.Errorf("confirm document: %w", err)
	}
	if doc.IsImage() {
		s.notify.Notify(ctx, notify.JobProcessUpload, notify.ProcessUpload{DocumentID: doc.ID, StorageKey: doc.StorageKey, MimeType: doc.MimeType})
	}
	return doc, nil
}

func (s *Service) GetURL(ctx context.Context, caller auth.Identity, id string) (*Link, error) {
	doc, err := s.visible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	url, err := s.storage.PresignGet(ctx, doc.StorageKey, s.expiry)
	if err != nil {
		return nil, apperr.Upstream("Could not create download URL", err)
	}
	return &Link{URL: url, ExpiresIn: int(s.expiry.Seconds())}, nil
}

// List returns a student's documents. Students may omit studentID.
func (s *Service) List(ctx context.Context, caller auth.Identity, studentID string) ([]models.Document, error) {
	if !caller.IsStaff() {
		sp, err := s.store.GetStudentByUserID(ctx, caller.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return []models.Document{}, nil
		}
		if err != nil {
			return nil, err
		}
		if studentID != "" && studentID != sp.ID {
			return nil, apperr.Forbidden("You can only list your own documents")
		}
		studentID = sp.ID
	}
	if studentID == "" {
		return nil, apperr.Validation("studentId is required")
	}
	docs, err := s.store.ListDocuments(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

type ReviewInput struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// Review approves or rejects a document and refreshes the owner's
// readiness score.
func (s *Service) Review(ctx context.Context, id string, in ReviewInput) (*models.Document, error) {
	status := models.DocumentStatus(strings.ToUpper(in.Status))
	if status != models.DocumentApproved && status != models.DocumentRejected {
		return nil, apperr.Validation("status must be APPROVED or REJECTED")
	}
	doc, err := s.store.UpdateDocument(ctx, id, store.DocumentPatch{Status: &status, ReviewNotes: &in.Notes})
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("review document: %w", err)
	}
	if err := s.RefreshReadiness(ctx, doc.StudentID); err != nil {
		s.log.Warn("refresh readiness", "student_id", doc.StudentID, "err", err)
	}
	s.events.Publish(ctx, events.Event{Type: events.DocumentReviewed, EntityID: doc.ID, Data: map[string]string{"status": string(status), "studentId": doc.StudentID}})
	return doc, nil
}

// RefreshReadiness recomputes and stores a student's readiness score.
func (s *Service) RefreshReadiness(ctx context.Context, studentID string) error {
	sp, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return err
	}
	score := sp.Readiness(sp.Documents)
	if score == sp.ReadinessScore {
		return nil
	}
	_, err = s.store.UpdateStudent(ctx, studentID, store.StudentPatch{ReadinessScore: &score})
	return err
}

// visible loads a document the caller may act on. Documents of other
// students look missing to a student.
func (s *Service) visible(ctx context.Context, caller auth.Identity, id string) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Document not found")
	}
	if err != nil {
		return nil, err
	}
	if caller.IsStaff() {
		return doc, nil
	}
	sp, err := s.store.GetStudentByUserID(ctx, caller.UserID)
	if err != nil || sp.ID != doc.StudentID {
		return nil, apperr.NotFound("Document not found")
	}
	return doc, nil
}

// SanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] so the storage key stays URL safe.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	if out == "" {
		return "file"
	}
	return out
}
