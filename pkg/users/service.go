// Package users is account administration for admins and the self-service
// profile every signed-in user has.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"invictcrm/models"
	"invictcrm/pkg/apperr"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/store"
)

type Store interface {
	store.Users
	CreateStudent(ctx context.Context, s *models.StudentProfile) error
	GetStudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	UpdateStudent(ctx context.Context, id string, p store.StudentPatch) (*models.StudentProfile, error)
}

type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(s Store, log *slog.Logger) *Service {
	return &Service{store: s, log: log}
}

type CreateInput struct {
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Role      models.Role `json:"role"`
}

// Created is returned once. TemporaryPassword is set only when the admin did
// not choose a password.
type Created struct {
	User              *models.User `json:"user"`
	TemporaryPassword string       `json:"temporaryPassword,omitempty"`
}

type UpdateInput struct {
	FirstName *string      `json:"firstName"`
	LastName  *string      `json:"lastName"`
	Role      *models.Role `json:"role"`
}

// canGrant reports whether caller may hand out role. Only a super admin
// creates or promotes super admins.
func canGrant(caller auth.Identity, role models.Role) bool {
	return role != models.RoleSuperAdmin || caller.Role == models.RoleSuperAdmin
}

func (s *Service) Create(ctx context.Context, caller auth.Identity, in CreateInput) (*Created, error) {
	email, err := auth.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" || last == "" {
		return nil, apperr.Validation("firstName and lastName are required")
	}
	if in.Role == "" {
		in.Role = models.RoleStaff
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown role %q", in.Role))
	}
	if !canGrant(caller, in.Role) {
		return nil, apperr.Forbidden("Forbidden")
	}

	out := &Created{}
	password := in.Password
	if password == "" {
		code, err := auth.RandomCode(6)
		if err != nil {
			return nil, err
		}
		password, out.TemporaryPassword = code, code
	} else if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &models.User{Email: email, PasswordHash: hash, FirstName: first, LastName: last, Role: in.Role}
	if err := auth.AttachProfile(u); err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user created", "user_id", u.ID, "role", u.Role, "by", caller.UserID)
	out.User = u
	return out, nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	out, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	return u, err
}

func (s *Service) Update(ctx context.Context, caller auth.Identity, id string, in UpdateInput) (*models.User, error) {
	target, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := store.UserPatch{}
	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if v == "" {
			return nil, apperr.Validation("firstName cannot be empty")
		}
		p.FirstName = &v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if v == "" {
			return nil, apperr.Validation("lastName cannot be empty")
		}
		p.LastName = &v
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("unknown role %q", *in.Role))
		}
		if !canGrant(caller, *in.Role) || !canGrant(caller, target.Role) {
			return nil, apperr.Forbidden("Forbidden")
		}
		p.Role = in.Role
	}
	u, err := s.store.UpdateUser(ctx, id, p)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, caller auth.Identity, id string) error {
	if id == caller.UserID {
		return apperr.Validation("cannot delete your own account")
	}
	err := s.store.DeleteUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info("user deleted", "user_id", id, "by", caller.UserID)
	return nil
}

// Profile is the flattened self view: the account plus the contact fields
// kept on the student profile.
type Profile struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Role        models.Role `json:"role"`
	CreatedAt   time.Time   `json:"createdAt"`
	Phone       string      `json:"phone,omitempty"`
	Nationality string      `json:"nationality,omitempty"`
}

type ProfileInput struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Nationality     string `json:"nationality"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func profileOf(u *models.User) *Profile {
	p := &Profile{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role, CreatedAt: u.CreatedAt}
	if u.StudentProfile != nil {
		p.Phone, p.Nationality = u.StudentProfile.Phone, u.StudentProfile.Nationality
	}
	return p
}

func (s *Service) Profile(ctx context.Context, caller auth.Identity) (*Profile, error) {
	u, err := s.Get(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return profileOf(u), nil
}

// UpdateProfile applies the non-empty fields of in to the caller's account.
func (s *Service) UpdateProfile(ctx context.Context, caller auth.Identity, in ProfileInput) (*Profile, error) {
	u, err := s.Get(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	p := store.UserPatch{}
	if v := strings.TrimSpace(in.FirstName); v != "" {
		p.FirstName = &v
	}
	if v := strings.TrimSpace(in.LastName); v != "" {
		p.LastName = &v
	}
	if in.Email != "" {
		email, err := auth.NormalizeEmail(in.Email)
		if err != nil {
			return nil, err
		}
		switch other, err := s.store.GetUserByEmail(ctx, email); {
		case err == nil && other.ID != u.ID:
			return nil, apperr.Conflict("Email already in use")
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
		p.Email = &email
	}
	if in.NewPassword != "" {
		if auth.CheckPassword(u.PasswordHash, in.CurrentPassword) != nil {
			return nil, apperr.Validation("Current password is incorrect")
		}
		if err := auth.ValidatePassword(in.NewPassword); err != nil {
			return nil, err
		}
		if p.PasswordHash, err = auth.HashPassword(in.NewPassword); err != nil {
			return nil, err
		}
	}

	if _, err := s.store.UpdateUser(ctx, u.ID, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Email already in use")
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := s.upsertContact(ctx, u, strings.TrimSpace(in.Phone), strings.TrimSpace(in.Nationality)); err != nil {
		return nil, err
	}
	return s.Profile(ctx, caller)
}

func (s *Service) upsertContact(ctx context.Context, u *models.User, phone, nationality string) error {
	if phone == "" && nationality == "" {
		return nil
	}
	sp, err := s.store.GetStudentByUserID(ctx, u.ID)
	if errors.Is(err, store.ErrNotFound) {
		err = s.store.CreateStudent(ctx, &models.StudentProfile{UserID: u.ID, Status: models.StudentNew, Phone: phone, Nationality: nationality})
		if err != nil {
			return fmt.Errorf("create student profile: %w", err)
		}
		return nil
	}
	if err != nil {
		return err
	}
	patch := store.StudentPatch{}
	if phone != "" {
		patch.Phone = &phone
	}
	if nationality != "" {
		patch.Nationality = &nationality
	}
	if _, err := s.store.UpdateStudent(ctx, sp.ID, patch); err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	return nil
}
