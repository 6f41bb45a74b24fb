// Package students serves the student records staff work with and the
// student's own view of their file.
package students

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

type Service struct {
	store store.Students
	log   *slog.Logger
}

func NewService(s store.Students, log *slog.Logger) *Service {
	return &Service{store: s, log: log}
}

// UpdateInput carries the staff-editable profile fields. Nil leaves a field
// unchanged.
type UpdateInput struct {
	Status           *string    `json:"status"`
	Phone            *string    `json:"phone"`
	DateOfBirth      *time.Time `json:"dateOfBirth"`
	Nationality      *string    `json:"nationality"`
	PassportNumber   *string    `json:"passportNumber"`
	PassportExpiry   *time.Time `json:"passportExpiry"`
	ParentName       *string    `json:"parentName"`
	ParentPhone      *string    `json:"parentPhone"`
	EmergencyContact *string    `json:"emergencyContact"`
	Address          *string    `json:"address"`
}

// List filters by status ("" or "all" for any) and searches the owner's
// names and email.
func (s *Service) List(ctx context.Context, status, search string) ([]models.StudentProfile, error) {
	f := store.StudentFilter{Search: strings.TrimSpace(search)}
	if status != "" && !strings.EqualFold(status, "all") {
		st := models.StudentStatus(strings.ToUpper(status))
		if !st.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("unknown student status %q", status))
		}
		f.Status = st
	}
	out, err := s.store.ListStudents(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.StudentProfile, error) {
	sp, err := s.store.GetStudent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Student not found")
	}
	return sp, err
}

// Me returns the caller's own student file.
func (s *Service) Me(ctx context.Context, caller auth.Identity) (*models.StudentProfile, error) {
	sp, err := s.store.GetStudentByUserID(ctx, caller.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Student profile not found")
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, sp.ID)
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.StudentProfile, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	p := store.StudentPatch{
		Phone:            trimmed(in.Phone),
		DateOfBirth:      in.DateOfBirth,
		Nationality:      trimmed(in.Nationality),
		PassportNumber:   trimmed(in.PassportNumber),
		PassportExpiry:   in.PassportExpiry,
		ParentName:       trimmed(in.ParentName),
		ParentPhone:      trimmed(in.ParentPhone),
		EmergencyContact: trimmed(in.EmergencyContact),
		Address:          trimmed(in.Address),
	}
	if in.Status != nil {
		st := models.StudentStatus(strings.ToUpper(*in.Status))
		if !st.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("unknown student status %q", *in.Status))
		}
		p.Status = &st
	}
	if _, err := s.store.UpdateStudent(ctx, id, p); err != nil {
		return nil, fmt.Errorf("update student: %w", err)
	}

	// profile fields count towards readiness
	sp, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if score := sp.Readiness(sp.Documents); score != sp.ReadinessScore {
		if _, err := s.store.UpdateStudent(ctx, id, store.StudentPatch{ReadinessScore: &score}); err != nil {
			return nil, fmt.Errorf("update readiness: %w", err)
		}
		sp.ReadinessScore = score
	}
	return sp, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
