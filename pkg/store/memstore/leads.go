package memstore

import (
	"context"
	"slices"

	"invictcrm/models"
	"invictcrm/pkg/store"
)

func (s *Store) CreateLead(_ context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
	row := *lead
	row.Destinations = slices.Clone(lead.Destinations)
	row.AssignedTo, row.Assignee, row.Activities, row.Tasks = nil, nil, nil, nil
	s.leads[lead.ID] = row
	return nil
}

func (s *Store) ListLeads(_ context.Context, f store.LeadFilter) ([]models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Lead
	for _, l := range s.leads {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.Search != "" && !contains(l.FirstName, f.Search) && !contains(l.LastName, f.Search) && !contains(l.Email, f.Search) {
			continue
		}
		out = append(out, s.leadWithAssignee(l))
	}
	newestFirst(s, out, func(l models.Lead) string { return l.ID })
	return out, nil
}

func (s *Store) leadWithAssignee(l models.Lead) models.Lead {
	l.Destinations = slices.Clone(l.Destinations)
	if l.AssignedToID != nil {
		if u, ok := s.users[*l.AssignedToID]; ok {
			l.Assignee = &models.UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
		}
	}
	return l
}

func (s *Store) GetLead(_ context.Context, id string) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	l = s.leadWithAssignee(l)
	for _, a := range s.activities {
		if a.LeadID == id {
			l.Activities = append(l.Activities, a)
		}
	}
	newestFirst(s, l.Activities, func(a models.LeadActivity) string { return a.ID })
	slices.Reverse(l.Activities)
	for _, t := range s.tasks {
		if t.LeadID != nil && *t.LeadID == id {
			l.Tasks = append(l.Tasks, t)
		}
	}
	return &l, nil
}

func (s *Store) UpdateLead(ctx context.Context, id string, p store.LeadPatch) (*models.Lead, error) {
	s.mu.Lock()
	l, ok := s.leads[id]
	if !ok {
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.AssignedToID != nil {
		if *p.AssignedToID == "" {
			l.AssignedToID = nil
		} else {
			if _, ok := s.users[*p.AssignedToID]; !ok {
				s.mu.Unlock()
				return nil, store.ErrInvalidReference
			}
			l.AssignedToID = ptr(*p.AssignedToID)
		}
	}
	if p.Score != nil {
		l.Score = *p.Score
	}
	s.touch(&l.UpdatedAt)
	s.leads[id] = l
	s.mu.Unlock()
	return s.GetLead(ctx, id)
}

func (s *Store) DeleteLead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.leads, id)
	for aid, a := range s.activities {
		if a.LeadID == id {
			delete(s.activities, aid)
		}
	}
	for tid, t := range s.tasks {
		if t.LeadID != nil && *t.LeadID == id {
			delete(s.tasks, tid)
		}
	}
	return nil
}

func (s *Store) AddLeadActivity(_ context.Context, a *models.LeadActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[a.LeadID]; !ok {
		return store.ErrNotFound
	}
	s.stamp(&a.ID, &a.CreatedAt, nil)
	s.activities[a.ID] = *a
	return nil
}

func (s *Store) CountLeads(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.leads)), nil
}
