package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"invictcrm/models"
	"invictcrm/pkg/apperr"
	"invictcrm/pkg/notify"
	"invictcrm/pkg/store"
)

// Store is the part of the record store the auth service needs.
type Store interface {
	store.Users
	store.Sessions
}

type Service struct {
	store  Store
	tokens *Tokens
	notify notify.Notifier
	log    *slog.Logger
}

func NewService(s Store, tokens *Tokens, n notify.Notifier, log *slog.Logger) *Service {
	return &Service{store: s, tokens: tokens, notify: n, log: log}
}

type RegisterInput struct {
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Role      models.Role `json:"role"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Result is returned by register, login and refresh.
type Result struct {
	User *models.User `json:"user"`
	TokenPair
}

// NormalizeEmail validates an address and lower-cases it.
func NormalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", apperr.Validation("email must be a valid address")
	}
	return strings.ToLower(addr.Address), nil
}

// AttachProfile gives a new STUDENT user its student profile and a new
// ASSOCIATE its referral code. Staff roles get no profile.
func AttachProfile(u *models.User) error {
	switch u.Role {
	case models.RoleStudent:
		u.StudentProfile = &models.StudentProfile{Status: models.StudentNew}
	case models.RoleAssociate:
		code, err := RandomCode(4)
		if err != nil {
			return err
		}
		u.AssociateProfile = &models.AssociateProfile{ReferralCode: strings.ToUpper(code)}
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	in.FirstName, in.LastName = strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return nil, apperr.Validation("firstName and lastName are required")
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	switch _, err := s.store.GetUserByEmail(ctx, email); {
	case err == nil:
		return nil, apperr.Conflict("User already exists")
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Email: email, PasswordHash: hash, FirstName: in.FirstName, LastName: in.LastName, Role: models.RoleStudent}
	if in.Role == models.RoleAssociate {
		user.Role = models.RoleAssociate
	}
	if err := AttachProfile(user); err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, err
	}
	s.log.Info("user registered", "user_id", user.ID, "role", user.Role)

	s.notify.Notify(ctx, notify.JobWelcome, notify.Welcome{Email: user.Email, Name: user.FullName(), UserID: user.ID})
	return s.startSession(ctx, user)
}

// Login fails the same way for an unknown email and a wrong password.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Result, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(in.Email))
	if errors.Is(err, store.ErrNotFound) {
		_ = CheckPassword(dummyHash, in.Password)
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if CheckPassword(user.PasswordHash, in.Password) != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	return s.startSession(ctx, user)
}

func (s *Service) startSession(ctx context.Context, user *models.User) (*Result, error) {
	pair, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, err
	}
	sess := &models.Session{UserID: user.ID, RefreshTokenHash: HashToken(pair.RefreshToken), ExpiresAt: pair.RefreshExpiresAt}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return &Result{User: user, TokenPair: pair}, nil
}

// Refresh rotates a refresh token: the presented session is consumed and a
// new pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	invalid := apperr.Unauthorized("Invalid refresh token")
	claims, err := s.tokens.Verify(refreshToken, TokenRefresh)
	if err != nil {
		return nil, invalid
	}
	hash := HashToken(refreshToken)
	sess, err := s.store.GetSession(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.Subject {
		return nil, invalid
	}
	if err := s.store.DeleteSession(ctx, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if sess.Expired(s.tokens.now()) {
		return nil, invalid
	}
	user, err := s.store.GetUser(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

// Logout revokes the session behind refreshToken. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apperr.Validation("refreshToken is required")
	}
	err := s.store.DeleteSession(ctx, HashToken(refreshToken))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	return user, err
}
