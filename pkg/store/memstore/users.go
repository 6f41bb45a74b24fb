package memstore

import (
	"context"
	"strings"

	"invictcrm/models"
	"invictcrm/pkg/store"
)

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	if u.AssociateProfile != nil {
		for _, a := range s.associates {
			if a.ReferralCode == u.AssociateProfile.ReferralCode {
				return store.ErrDuplicate
			}
		}
	}
	s.stamp(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	row := *u
	row.StudentProfile, row.AssociateProfile, row.Sessions = nil, nil, nil
	s.users[u.ID] = row
	if sp := u.StudentProfile; sp != nil {
		sp.UserID = u.ID
		if sp.Status == "" {
			sp.Status = models.StudentNew
		}
		s.stamp(&sp.ID, &sp.CreatedAt, &sp.UpdatedAt)
		s.students[sp.ID] = stripStudent(*sp)
	}
	if ap := u.AssociateProfile; ap != nil {
		ap.UserID = u.ID
		s.stamp(&ap.ID, &ap.CreatedAt, &ap.UpdatedAt)
		s.associates[ap.ID] = *ap
	}
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.withProfiles(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return s.withProfiles(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) withProfiles(u models.User) *models.User {
	for _, sp := range s.students {
		if sp.UserID == u.ID {
			u.StudentProfile = ptr(sp)
		}
	}
	for _, ap := range s.associates {
		if ap.UserID == u.ID {
			u.AssociateProfile = ptr(ap)
		}
	}
	return &u
}

func (s *Store) ListUsers(context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	newestFirst(s, out, func(u models.User) string { return u.ID })
	return out, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, p store.UserPatch) (*models.User, error) {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	if p.Email != nil {
		email := strings.ToLower(*p.Email)
		for _, other := range s.users {
			if other.ID != id && other.Email == email {
				s.mu.Unlock()
				return nil, store.ErrDuplicate
			}
		}
		u.Email = email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.PasswordHash != nil {
		u.PasswordHash = p.PasswordHash
	}
	s.touch(&u.UpdatedAt)
	s.users[id] = u
	s.mu.Unlock()
	return s.GetUser(ctx, id)
}

// DeleteUser cascades to profiles, sessions and the student's records and
// clears lead/task assignments.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	for sid, sp := range s.students {
		if sp.UserID == id {
			s.deleteStudentLocked(sid)
		}
	}
	for aid, ap := range s.associates {
		if ap.UserID == id {
			delete(s.associates, aid)
		}
	}
	for h, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, h)
		}
	}
	for lid, l := range s.leads {
		if l.AssignedToID != nil && *l.AssignedToID == id {
			l.AssignedToID = nil
			s.leads[lid] = l
		}
	}
	for tid, t := range s.tasks {
		if t.AssigneeID != nil && *t.AssigneeID == id {
			t.AssigneeID = nil
			s.tasks[tid] = t
		}
	}
	return nil
}
