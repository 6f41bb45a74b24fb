package store

import (
	"context"

	"gorm.io/gorm"

	"invictcrm/models"
)

func (s *DB) CreateStudent(ctx context.Context, sp *models.StudentProfile) error {
	return mapErr(s.db.WithContext(ctx).Omit("User", "Applications", "Documents", "Payments").Create(sp).Error)
}

func (s *DB) ListStudents(ctx context.Context, f StudentFilter) ([]models.StudentProfile, error) {
	q := s.db.WithContext(ctx).
		Select("student_profiles.*").
		Joins("JOIN users ON users.id = student_profiles.user_id").
		Preload("User").
		Preload("Applications").
		Order("student_profiles.updated_at DESC")
	if f.Status != "" {
		q = q.Where("student_profiles.status = ?", f.Status)
	}
	if f.Search != "" {
		like := likePattern(f.Search)
		q = q.Where("(users.first_name ILIKE ? OR users.last_name ILIKE ? OR users.email ILIKE ?)", like, like, like)
	}
	var out []models.StudentProfile
	if err := q.Find(&out).Error; err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *DB) GetStudent(ctx context.Context, id string) (*models.StudentProfile, error) {
	return s.getStudent(ctx, "id = ?", id)
}

func (s *DB) GetStudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	return s.getStudent(ctx, "user_id = ?", userID)
}

func (s *DB) getStudent(ctx context.Context, cond string, arg string) (*models.StudentProfile, error) {
	var sp models.StudentProfile
	newest := func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Applications", newest).
		Preload("Documents", newest).
		Preload("Payments", newest).
		First(&sp, cond, arg).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &sp, nil
}

func (s *DB) UpdateStudent(ctx context.Context, id string, p StudentPatch) (*models.StudentProfile, error) {
	m := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			m[col] = *v
		}
	}
	if p.Status != nil {
		m["status"] = *p.Status
	}
	if p.ReadinessScore != nil {
		m["readiness_score"] = *p.ReadinessScore
	}
	if p.DateOfBirth != nil {
		m["date_of_birth"] = *p.DateOfBirth
	}
	if p.PassportExpiry != nil {
		m["passport_expiry"] = *p.PassportExpiry
	}
	set("phone", p.Phone)
	set("nationality", p.Nationality)
	set("passport_number", p.PassportNumber)
	set("parent_name", p.ParentName)
	set("parent_phone", p.ParentPhone)
	set("emergency_contact", p.EmergencyContact)
	set("address", p.Address)
	if err := s.updates(ctx, &models.StudentProfile{}, id, m); err != nil {
		return nil, err
	}
	return s.GetStudent(ctx, id)
}

func (s *DB) CountStudents(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.StudentProfile{}).Count(&n).Error
	return n, mapErr(err)
}
