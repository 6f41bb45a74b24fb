package users

import (
	"context"
	"errors"

	"invictcrm/models"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/store"
)

// SeedSuperAdmin creates a SUPER_ADMIN with email and password unless a user
// with that email already exists. It reports whether a user was created.
func SeedSuperAdmin(ctx context.Context, users store.Users, email, password string) (bool, error) {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return false, err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return false, err
	}
	switch _, err := users.GetUserByEmail(ctx, email); {
	case err == nil:
		return false, nil
	case !errors.Is(err, store.ErrNotFound):
		return false, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	u := &models.User{Email: email, PasswordHash: hash, FirstName: "Super", LastName: "Admin", Role: models.RoleSuperAdmin}
	if err := users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
