package store

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"invictcrm/models"
)

func (s *DB) CreateUser(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student, associate := u.StudentProfile, u.AssociateProfile
		if err := tx.Omit("StudentProfile", "AssociateProfile", "Sessions").Create(u).Error; err != nil {
			return mapErr(err)
		}
		if student != nil {
			student.UserID = u.ID
			if err := tx.Omit("User", "Applications", "Documents", "Payments").Create(student).Error; err != nil {
				return mapErr(err)
			}
		}
		if associate != nil {
			associate.UserID = u.ID
			if err := tx.Create(associate).Error; err != nil {
				return mapErr(err)
			}
		}
		return nil
	})
}

func (s *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Preload("StudentProfile").Preload("AssociateProfile").First(&u, "id = ?", id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Preload("StudentProfile").First(&u, "email = ?", strings.ToLower(email)).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, mapErr(err)
	}
	return users, nil
}

func (s *DB) UpdateUser(ctx context.Context, id string, p UserPatch) (*models.User, error) {
	m := map[string]any{}
	if p.FirstName != nil {
		m["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		m["last_name"] = *p.LastName
	}
	if p.Email != nil {
		m["email"] = strings.ToLower(*p.Email)
	}
	if p.Role != nil {
		m["role"] = *p.Role
	}
	if p.PasswordHash != nil {
		m["password_hash"] = p.PasswordHash
	}
	if err := s.updates(ctx, &models.User{}, id, m); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

func (s *DB) DeleteUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
