// Package applications tracks university, scholarship, visa and housing
// applications through their status pipeline.
package applications

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
	"invictcrm/pkg/events"
	"invictcrm/pkg/notify"
	"invictcrm/pkg/store"
)

type Store interface {
	store.Applications
	GetStudent(ctx context.Context, id string) (*models.StudentProfile, error)
}

type Service struct {
	store  Store
	notify notify.Notifier
	events events.Publisher
	log    *slog.Logger
}

func NewService(s Store, n notify.Notifier, p events.Publisher, log *slog.Logger) *Service {
	return &Service{store: s, notify: n, events: p, log: log}
}

// CreateInput starts an application in DRAFT. A supplied status is ignored.
type CreateInput struct {
	StudentID      string     `json:"studentId"`
	Type           string     `json:"type"`
	Country        string     `json:"country"`
	University     string     `json:"university"`
	Program        string     `json:"program"`
	IntakeTerm     string     `json:"intakeTerm"`
	Deadline       *time.Time `json:"deadline"`
	Status         string     `json:"status"`
	ChecklistItems []string   `json:"checklistItems"`
}

type UpdateInput struct {
	Status   *string    `json:"status"`
	Deadline *time.Time `json:"deadline"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Application, error) {
	typ := models.ApplicationType(strings.ToUpper(strings.TrimSpace(in.Type)))
	if !typ.Valid() {
		return nil, apperr.Validation("type must be one of UNIVERSITY, SCHOLARSHIP, VISA, HOUSING")
	}
	if strings.TrimSpace(in.Country) == "" {
		return nil, apperr.Validation("country is required")
	}
	if in.StudentID == "" {
		return nil, apperr.Validation("studentId is required")
	}
	if _, err := s.store.GetStudent(ctx, in.StudentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Student not found")
		}
		return nil, fmt.Errorf("get student: %w", err)
	}

	app := &models.Application{
		StudentID:  in.StudentID,
		Type:       typ,
		Country:    strings.TrimSpace(in.Country),
		University: in.University,
		Program:    in.Program,
		IntakeTerm: in.IntakeTerm,
		Deadline:   in.Deadline,
		Status:     models.ApplicationDraft,
	}
	for _, label := range in.ChecklistItems {
		if label = strings.TrimSpace(label); label != "" {
			app.ChecklistItems = append(app.ChecklistItems, models.ChecklistItem{Label: label})
		}
	}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		if errors.Is(err, store.ErrInvalidReference) {
			return nil, apperr.NotFound("Student not found")
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

func (s *Service) FindAll(ctx context.Context) ([]models.Application, error) {
	apps, err := s.store.ListApplications(ctx)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

func (s *Service) FindOne(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.store.GetApplication(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Application not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

// FindOneFor is FindOne scoped to what caller may see: staff see every
// application, students only their own.
func (s *Service) FindOneFor(ctx context.Context, caller auth.Identity, id string) (*models.Application, error) {
	app, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.IsStaff() {
		return app, nil
	}
	if app.Student == nil || app.Student.UserID != caller.UserID {
		return nil, apperr.NotFound("Application not found")
	}
	return app, nil
}

// Update applies a partial change. The student is emailed only on the first
// move into SUBMITTED.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.Application, error) {
	before, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	var patch store.ApplicationPatch
	if in.Status != nil {
		st := models.ApplicationStatus(strings.ToUpper(*in.Status))
		if !st.Valid() {
			return nil, apperr.Validation("unknown application status " + *in.Status)
		}
		patch.Status = &st
	}
	patch.Deadline = in.Deadline

	app, err := s.store.UpdateApplication(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Application not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	if patch.Status == nil || *patch.Status == before.Status {
		return app, nil
	}
	s.events.Publish(ctx, events.Event{
		Type:     events.ApplicationStatusChanged,
		EntityID: app.ID,
		Data:     map[string]string{"from": string(before.Status), "to": string(app.Status), "studentId": app.StudentID},
	})
	if app.Status == models.ApplicationSubmitted {
		s.notifySubmitted(ctx, app)
	}
	return app, nil
}

func (s *Service) notifySubmitted(ctx context.Context, app *models.Application) {
	if app.Student == nil || app.Student.User == nil {
		s.log.Warn("submitted application has no student user", "application_id", app.ID)
		return
	}
	u := app.Student.User
	s.notify.Notify(ctx, notify.JobApplicationStatus, notify.ApplicationStatus{
		Email:         u.Email,
		Name:          u.FullName(),
		ApplicationID: app.ID,
		University:    app.University,
		Status:        string(app.Status),
	})
}
