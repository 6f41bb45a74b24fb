package auth

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"

	"invictcrm/pkg/apperr"
)

const minPasswordLen = 6

// dummyHash is compared against when the email is unknown so that both login
// failure paths do the same amount of work.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return apperr.Validation("password must be at least 6 characters")
	}
	return nil
}

func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func CheckPassword(hash []byte, password string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}

// RandomCode returns n random bytes hex encoded. Used for referral codes and
// temporary passwords.
func RandomCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
