// Package auth issues and checks user credentials and session tokens.
package auth

import (
	"context"

	"github.com/mmynk/giveback/internal/models"
)

// Registration is the input to Authenticator.Register.
type Registration struct {
	Email       string
	DisplayName string
	Role        string

	// Credential is the secret the user signs in with, e.g. a password.
	Credential string
}

// Authenticator registers users and verifies their credentials.
type Authenticator interface {
	// Register creates a user account. Returns ErrEmailExists if the email is
	// already registered.
	Register(ctx context.Context, reg Registration) (*models.User, error)

	// Authenticate returns the user whose credential matches, or
	// ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks the credential meets minimum requirements.
	ValidateCredential(credential string) error
}
