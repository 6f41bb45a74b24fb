package store

import (
	"context"

	"invictcrm/models"
)

func (s *DB) CreateDocument(ctx context.Context, d *models.Document) error {
	return mapErr(s.db.WithContext(ctx).Create(d).Error)
}

func (s *DB) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var d models.Document
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

func (s *DB) ListDocuments(ctx context.Context, studentID string) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).Where("student_id = ?", studentID).Order("created_at DESC").Find(&docs).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return docs, nil
}

func (s *DB) UpdateDocument(ctx context.Context, id string, p DocumentPatch) (*models.Document, error) {
	m := map[string]any{}
	if p.Size != nil {
		m["size"] = *p.Size
	}
	if p.UploadedAt != nil {
		m["uploaded_at"] = *p.UploadedAt
	}
	if p.Status != nil {
		m["status"] = *p.Status
	}
	if p.ReviewNotes != nil {
		m["review_notes"] = *p.ReviewNotes
	}
	if p.ThumbnailKey != nil {
		m["thumbnail_key"] = *p.ThumbnailKey
	}
	if err := s.updates(ctx, &models.Document{}, id, m); err != nil {
		return nil, err
	}
	return s.GetDocument(ctx, id)
}
