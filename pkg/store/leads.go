package store

import (
	"context"

	"gorm.io/gorm"

	"invictcrm/models"
)

func (s *DB) CreateLead(ctx context.Context, lead *models.Lead) error {
	return mapErr(s.db.WithContext(ctx).Omit("AssignedTo", "Activities", "Tasks").Create(lead).Error)
}

func (s *DB) ListLeads(ctx context.Context, f LeadFilter) ([]models.Lead, error) {
	q := s.db.WithContext(ctx).Preload("AssignedTo").Order("created_at DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		like := likePattern(f.Search)
		q = q.Where("(first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?)", like, like, like)
	}
	var leads []models.Lead
	if err := q.Find(&leads).Error; err != nil {
		return nil, mapErr(err)
	}
	return leads, nil
}

func (s *DB) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	err := s.db.WithContext(ctx).
		Preload("AssignedTo").
		Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Tasks").
		First(&lead, "id = ?", id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &lead, nil
}

func (s *DB) UpdateLead(ctx context.Context, id string, p LeadPatch) (*models.Lead, error) {
	m := map[string]any{}
	if p.Status != nil {
		m["status"] = *p.Status
	}
	if p.AssignedToID != nil {
		if *p.AssignedToID == "" {
			m["assigned_to_id"] = nil
		} else {
			m["assigned_to_id"] = *p.AssignedToID
		}
	}
	if p.Score != nil {
		m["score"] = *p.Score
	}
	if err := s.updates(ctx, &models.Lead{}, id, m); err != nil {
		return nil, err
	}
	return s.GetLead(ctx, id)
}

func (s *DB) DeleteLead(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Lead{}, "id = ?", id)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DB) AddLeadActivity(ctx context.Context, a *models.LeadActivity) error {
	return mapErr(s.db.WithContext(ctx).Create(a).Error)
}

func (s *DB) CountLeads(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Lead{}).Count(&n).Error
	return n, mapErr(err)
}
