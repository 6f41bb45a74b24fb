package store

import (
	"context"
	"time"

	"invictcrm/models"
)

func (s *DB) CreateSession(ctx context.Context, sess *models.Session) error {
	return mapErr(s.db.WithContext(ctx).Create(sess).Error)
}

func (s *DB) GetSession(ctx context.Context, tokenHash string) (*models.Session, error) {
	var sess models.Session
	if err := s.db.WithContext(ctx).First(&sess, "refresh_token_hash = ?", tokenHash).Error; err != nil {
		return nil, mapErr(err)
	}
	return &sess, nil
}

// DeleteSession removes the session for tokenHash. ErrNotFound means another
// request already consumed it.
func (s *DB) DeleteSession(ctx context.Context, tokenHash string) error {
	res := s.db.WithContext(ctx).Where("refresh_token_hash = ?", tokenHash).Delete(&models.Session{})
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DB) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", before).Delete(&models.Session{})
	return res.RowsAffected, mapErr(res.Error)
}

func (s *DB) DeleteUserSessions(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{})
	return res.RowsAffected, mapErr(res.Error)
}
