package store

import (
	"context"
	"time"

	"invictcrm/models"
)

func (s *DB) CreateTask(ctx context.Context, t *models.Task) error {
	return mapErr(s.db.WithContext(ctx).Omit("Assignee").Create(t).Error)
}

func (s *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	if err := s.db.WithContext(ctx).Preload("Assignee").First(&t, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (s *DB) UpdateTask(ctx context.Context, id string, p TaskPatch) (*models.Task, error) {
	m := map[string]any{}
	if p.Completed != nil {
		m["completed"] = *p.Completed
	}
	if p.RemindedAt != nil {
		m["reminded_at"] = *p.RemindedAt
	}
	if err := s.updates(ctx, &models.Task{}, id, m); err != nil {
		return nil, err
	}
	return s.GetTask(ctx, id)
}

func (s *DB) DueTasks(ctx context.Context, before time.Time) ([]models.Task, error) {
	var out []models.Task
	err := s.db.WithContext(ctx).
		Preload("Assignee").
		Where("completed = ? AND reminded_at IS NULL AND due_date IS NOT NULL AND due_date < ?", false, before).
		Order("due_date ASC").
		Find(&out).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *DB) ClaimTaskReminder(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND completed = ? AND reminded_at IS NULL", id, false).
		Update("reminded_at", at)
	if res.Error != nil {
		return false, mapErr(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *DB) ReleaseTaskReminder(ctx context.Context, id string) error {
	return mapErr(s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", id).
		Update("reminded_at", nil).Error)
}
