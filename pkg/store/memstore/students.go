package memstore

import (
	"context"
	"slices"

	"invictcrm/models"
	"invictcrm/pkg/store"
)

func stripStudent(sp models.StudentProfile) models.StudentProfile {
	sp.User, sp.Owner, sp.Applications, sp.Documents, sp.Payments = nil, nil, nil, nil, nil
	return sp
}

func (s *Store) CreateStudent(_ context.Context, sp *models.StudentProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[sp.UserID]; !ok {
		return store.ErrInvalidReference
	}
	for _, existing := range s.students {
		if existing.UserID == sp.UserID {
			return store.ErrDuplicate
		}
	}
	if sp.Status == "" {
		sp.Status = models.StudentNew
	}
	s.stamp(&sp.ID, &sp.CreatedAt, &sp.UpdatedAt)
	s.students[sp.ID] = stripStudent(*sp)
	return nil
}

func (s *Store) ListStudents(_ context.Context, f store.StudentFilter) ([]models.StudentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.StudentProfile
	for _, sp := range s.students {
		u := s.users[sp.UserID]
		if f.Status != "" && sp.Status != f.Status {
			continue
		}
		if f.Search != "" && !contains(u.FirstName, f.Search) && !contains(u.LastName, f.Search) && !contains(u.Email, f.Search) {
			continue
		}
		sp.SetUser(ptr(u))
		sp.Applications = s.studentApplications(sp.ID)
		out = append(out, sp)
	}
	newestFirst(s, out, func(sp models.StudentProfile) string { return sp.ID })
	slices.SortStableFunc(out, func(a, b models.StudentProfile) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}

func (s *Store) GetStudent(_ context.Context, id string) (*models.StudentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.students[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.fullStudent(sp), nil
}

func (s *Store) GetStudentByUserID(_ context.Context, userID string) (*models.StudentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sp := range s.students {
		if sp.UserID == userID {
			return s.fullStudent(sp), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) fullStudent(sp models.StudentProfile) *models.StudentProfile {
	if u, ok := s.users[sp.UserID]; ok {
		sp.SetUser(ptr(u))
	}
	sp.Applications = s.studentApplications(sp.ID)
	for _, d := range s.documents {
		if d.StudentID == sp.ID {
			sp.Documents = append(sp.Documents, d)
		}
	}
	newestFirst(s, sp.Documents, func(d models.Document) string { return d.ID })
	for _, p := range s.payments {
		if p.StudentID != nil && *p.StudentID == sp.ID {
			sp.Payments = append(sp.Payments, p)
		}
	}
	newestFirst(s, sp.Payments, func(p models.Payment) string { return p.ID })
	return &sp
}

func (s *Store) studentApplications(studentID string) []models.Application {
	var apps []models.Application
	for _, a := range s.applications {
		if a.StudentID == studentID {
			apps = append(apps, a)
		}
	}
	newestFirst(s, apps, func(a models.Application) string { return a.ID })
	return apps
}

func (s *Store) UpdateStudent(ctx context.Context, id string, p store.StudentPatch) (*models.StudentProfile, error) {
	s.mu.Lock()
	sp, ok := s.students[id]
	if !ok {
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	if p.Status != nil {
		sp.Status = *p.Status
	}
	if p.ReadinessScore != nil {
		sp.ReadinessScore = *p.ReadinessScore
	}
	if p.DateOfBirth != nil {
		sp.DateOfBirth = ptr(*p.DateOfBirth)
	}
	if p.PassportExpiry != nil {
		sp.PassportExpiry = ptr(*p.PassportExpiry)
	}
	setStr(&sp.Phone, p.Phone)
	setStr(&sp.Nationality, p.Nationality)
	setStr(&sp.PassportNumber, p.PassportNumber)
	setStr(&sp.ParentName, p.ParentName)
	setStr(&sp.ParentPhone, p.ParentPhone)
	setStr(&sp.EmergencyContact, p.EmergencyContact)
	setStr(&sp.Address, p.Address)
	s.touch(&sp.UpdatedAt)
	s.students[id] = sp
	s.mu.Unlock()
	return s.GetStudent(ctx, id)
}

func (s *Store) CountStudents(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.students)), nil
}

func (s *Store) deleteStudentLocked(id string) {
	delete(s.students, id)
	for aid, a := range s.applications {
		if a.StudentID == id {
			s.deleteApplicationLocked(aid)
		}
	}
	for did, d := range s.documents {
		if d.StudentID == id {
			delete(s.documents, did)
		}
	}
	for pid, p := range s.payments {
		if p.StudentID != nil && *p.StudentID == id {
			delete(s.payments, pid)
		}
	}
}
