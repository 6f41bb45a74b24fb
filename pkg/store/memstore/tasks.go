package memstore

import (
	"context"
	"slices"
	"time"

	"invictcrm/models"
	"invictcrm/pkg/store"
)

func (s *Store) CreateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.LeadID != nil {
		if _, ok := s.leads[*t.LeadID]; !ok {
			return store.ErrInvalidReference
		}
	}
	if t.ApplicationID != nil {
		if _, ok := s.applications[*t.ApplicationID]; !ok {
			return store.ErrInvalidReference
		}
	}
	if t.AssigneeID != nil {
		if _, ok := s.users[*t.AssigneeID]; !ok {
			return store.ErrInvalidReference
		}
	}
	s.stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	row := *t
	row.Assignee = nil
	s.tasks[t.ID] = row
	return nil
}

func (s *Store) withAssignee(t models.Task) models.Task {
	if t.AssigneeID != nil {
		if u, ok := s.users[*t.AssigneeID]; ok {
			t.Assignee = ptr(u)
		}
	}
	return t
}

func (s *Store) GetTask(_ context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	t = s.withAssignee(t)
	return &t, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, p store.TaskPatch) (*models.Task, error) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.RemindedAt != nil {
		t.RemindedAt = ptr(*p.RemindedAt)
	}
	s.touch(&t.UpdatedAt)
	s.tasks[id] = t
	s.mu.Unlock()
	return s.GetTask(ctx, id)
}

func (s *Store) DueTasks(_ context.Context, before time.Time) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.Completed || t.RemindedAt != nil || t.DueDate == nil || !t.DueDate.Before(before) {
			continue
		}
		out = append(out, s.withAssignee(t))
	}
	slices.SortFunc(out, func(a, b models.Task) int { return a.DueDate.Compare(*b.DueDate) })
	return out, nil
}

func (s *Store) ClaimTaskReminder(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if t.Completed || t.RemindedAt != nil {
		return false, nil
	}
	t.RemindedAt = ptr(at)
	s.touch(&t.UpdatedAt)
	s.tasks[id] = t
	return true, nil
}

func (s *Store) ReleaseTaskReminder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	t.RemindedAt = nil
	s.touch(&t.UpdatedAt)
	s.tasks[id] = t
	return nil
}
