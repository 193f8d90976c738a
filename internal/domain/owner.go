package domain

import (
	"time"

	"github.com/google/uuid"
)

// Owner is an account whose itineraries are scoped under its ID.
// PasswordHash and PasswordSalt are argon2id material and never leave the server.
type Owner struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash []byte
	PasswordSalt []byte
	CreatedAt    time.Time
}

// Identity is one value of the identity feed: the subject of the current
// session and the name the identity provider knows it by.
// The zero Identity means "unauthenticated".
type Identity struct {
	OwnerID uuid.UUID
	Name    string
}

// Authenticated reports whether the identity names an owner.
func (i Identity) Authenticated() bool {
	return i.OwnerID != uuid.Nil
}
