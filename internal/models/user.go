package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles a user can register with.
const (
	RoleDonor = "donor"
	RoleAdmin = "admin"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// DisplayName is the name shown to other users.
	DisplayName string

	// Email is the user's email address (unique).
	Email string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// Role is a free-form role tag such as "donor" or "admin".
	Role string

	// CreatedAt is the Unix timestamp when the user account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last change.
	UpdatedAt int64
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash, role string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
