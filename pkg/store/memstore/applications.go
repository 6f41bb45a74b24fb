package memstore

import (
	"context"

	"invictcrm/models"
	"invictcrm/pkg/store"
)

func (s *Store) CreateApplication(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[app.StudentID]; !ok {
		return store.ErrInvalidReference
	}
	s.stamp(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	for i := range app.ChecklistItems {
		item := &app.ChecklistItems[i]
		item.ApplicationID = app.ID
		s.stamp(&item.ID, &item.CreatedAt, nil)
		s.checklist[item.ID] = *item
	}
	row := *app
	row.Student, row.ChecklistItems, row.Tasks = nil, nil, nil
	s.applications[app.ID] = row
	return nil
}

func (s *Store) withStudent(a models.Application) models.Application {
	if sp, ok := s.students[a.StudentID]; ok {
		if u, ok := s.users[sp.UserID]; ok {
			sp.SetUser(ptr(u))
		}
		a.Student = &sp
	}
	return a
}

func (s *Store) ListApplications(context.Context) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Application, 0, len(s.applications))
	for _, a := range s.applications {
		out = append(out, s.withStudent(a))
	}
	newestFirst(s, out, func(a models.Application) string { return a.ID })
	return out, nil
}

func (s *Store) GetApplication(_ context.Context, id string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	a = s.withStudent(a)
	for _, c := range s.checklist {
		if c.ApplicationID == id {
			a.ChecklistItems = append(a.ChecklistItems, c)
		}
	}
	for _, t := range s.tasks {
		if t.ApplicationID != nil && *t.ApplicationID == id {
			a.Tasks = append(a.Tasks, t)
		}
	}
	return &a, nil
}

func (s *Store) UpdateApplication(ctx context.Context, id string, p store.ApplicationPatch) (*models.Application, error) {
	s.mu.Lock()
	a, ok := s.applications[id]
	if !ok {
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Deadline != nil {
		a.Deadline = ptr(*p.Deadline)
	}
	s.touch(&a.UpdatedAt)
	s.applications[id] = a
	s.mu.Unlock()
	return s.GetApplication(ctx, id)
}

func (s *Store) CountApplications(_ context.Context, studentID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if studentID == "" {
		return int64(len(s.applications)), nil
	}
	var n int64
	for _, a := range s.applications {
		if a.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

func (s *Store) deleteApplicationLocked(id string) {
	delete(s.applications, id)
	for cid, c := range s.checklist {
		if c.ApplicationID == id {
			delete(s.checklist, cid)
		}
	}
	for tid, t := range s.tasks {
		if t.ApplicationID != nil && *t.ApplicationID == id {
			delete(s.tasks, tid)
		}
	}
}
