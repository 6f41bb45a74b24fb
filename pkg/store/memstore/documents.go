package memstore

import (
	"context"

	"invictcrm/models"
	"invictcrm/pkg/store"
)

func (s *Store) CreateDocument(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.documents {
		if existing.StorageKey == d.StorageKey {
			return store.ErrDuplicate
		}
	}
	if d.Status == "" {
		d.Status = models.DocumentPending
	}
	s.stamp(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	s.documents[d.ID] = *d
	return nil
}

func (s *Store) GetDocument(_ context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (s *Store) ListDocuments(_ context.Context, studentID string) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Document
	for _, d := range s.documents {
		if d.StudentID == studentID {
			out = append(out, d)
		}
	}
	newestFirst(s, out, func(d models.Document) string { return d.ID })
	return out, nil
}

func (s *Store) UpdateDocument(_ context.Context, id string, p store.DocumentPatch) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.Size != nil {
		d.Size = *p.Size
	}
	if p.UploadedAt != nil {
		d.UploadedAt = ptr(*p.UploadedAt)
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.ReviewNotes != nil {
		d.ReviewNotes = *p.ReviewNotes
	}
	if p.ThumbnailKey != nil {
		d.ThumbnailKey = *p.ThumbnailKey
	}
	s.touch(&d.UpdatedAt)
	s.documents[id] = d
	return &d, nil
}
