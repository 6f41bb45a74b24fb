package models

import "github.com/google/uuid"

// ensureID fills an empty primary key with a fresh UUID. Called from the
// BeforeCreate hooks so rows created by any path get an id.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
