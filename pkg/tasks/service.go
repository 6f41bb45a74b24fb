// Package tasks manages staff follow-ups on leads and applications.
package tasks

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
	store store.Tasks
	log   *slog.Logger
}

func NewService(s store.Tasks, log *slog.Logger) *Service {
	return &Service{store: s, log: log}
}

// CreateInput describes a task. The assignee defaults to the caller.
type CreateInput struct {
	Title         string     `json:"title"`
	DueDate       *time.Time `json:"dueDate"`
	LeadID        *string    `json:"leadId"`
	ApplicationID *string    `json:"applicationId"`
	AssigneeID    *string    `json:"assigneeId"`
}

type UpdateInput struct {
	Completed *bool `json:"completed"`
}

func blankToNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

func (s *Service) Create(ctx context.Context, caller auth.Identity, in CreateInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	t := &models.Task{
		Title:         title,
		DueDate:       in.DueDate,
		LeadID:        blankToNil(in.LeadID),
		ApplicationID: blankToNil(in.ApplicationID),
		AssigneeID:    blankToNil(in.AssigneeID),
	}
	if t.AssigneeID == nil {
		t.AssigneeID = &caller.UserID
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		if errors.Is(err, store.ErrInvalidReference) {
			return nil, apperr.Validation("task references a lead, application or assignee that does not exist")
		}
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.log.Info("task created", "task_id", t.ID, "assignee_id", *t.AssigneeID)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Task not found")
	}
	return t, err
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.Task, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	t, err := s.store.UpdateTask(ctx, id, store.TaskPatch{Completed: in.Completed})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}
