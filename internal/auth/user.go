package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/letterdrop/letterdrop/internal/krypto"
)

// User is an admin account that can login and publish newsletters.
// Users are created out of band (see cmd/useradd), never via the
// public surface.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash krypto.Argon2Hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
