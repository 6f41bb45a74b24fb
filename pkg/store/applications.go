package store

import (
	"context"

	"invictcrm/models"
)

func (s *DB) CreateApplication(ctx context.Context, app *models.Application) error {
	return mapErr(s.db.WithContext(ctx).Omit("Student").Create(app).Error)
}

func (s *DB) ListApplications(ctx context.Context) ([]models.Application, error) {
	var apps []models.Application
	err := s.db.WithContext(ctx).Preload("Student.User").Order("created_at DESC").Find(&apps).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return apps, nil
}

func (s *DB) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	err := s.db.WithContext(ctx).
		Preload("Student.User").
		Preload("ChecklistItems").
		Preload("Tasks").
		First(&app, "id = ?", id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &app, nil
}

func (s *DB) UpdateApplication(ctx context.Context, id string, p ApplicationPatch) (*models.Application, error) {
	m := map[string]any{}
	if p.Status != nil {
		m["status"] = *p.Status
	}
	if p.Deadline != nil {
		m["deadline"] = *p.Deadline
	}
	if err := s.updates(ctx, &models.Application{}, id, m); err != nil {
		return nil, err
	}
	return s.GetApplication(ctx, id)
}

// CountApplications counts all applications, or only those of studentID when
// it is set.
func (s *DB) CountApplications(ctx context.Context, studentID string) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Application{})
	if studentID != "" {
		q = q.Where("student_id = ?", studentID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, mapErr(err)
}
