package memstore

import (
	"context"
	"time"

	"invictcrm/models"
	"invictcrm/pkg/store"
)

func (s *Store) CreateSession(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.RefreshTokenHash]; ok {
		return store.ErrDuplicate
	}
	s.stamp(&sess.ID, &sess.CreatedAt, nil)
	s.sessions[sess.RefreshTokenHash] = *sess
	return nil
}

func (s *Store) GetSession(_ context.Context, tokenHash string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sess, nil
}

func (s *Store) DeleteSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[tokenHash]; !ok {
		return store.ErrNotFound
	}
	delete(s.sessions, tokenHash)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for h, sess := range s.sessions {
		if !sess.ExpiresAt.After(before) {
			delete(s.sessions, h)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteUserSessions(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for h, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, h)
			n++
		}
	}
	return n, nil
}
