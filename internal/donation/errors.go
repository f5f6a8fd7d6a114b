package donation

import (
	"errors"
	"fmt"

	"github.com/mmynk/giveback/internal/storage"
)

var (
	// ErrValidation marks bad or missing input. Use errors.As with
	// *ValidationError to find the offending field.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced organization, donor, or donation that
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a storage failure. The operation left no partial
	// state behind and can be retried.
	ErrPersistence = errors.New("persistence failure")

	// ErrWebhookNotConfigured is returned when no signing secret is set.
	ErrWebhookNotConfigured = errors.New("webhook signing secret is not configured")
)

// ValidationError reports the field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// classify maps storage errors onto this package's error kinds. Errors that
// are already classified pass through unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrPersistence):
		return err
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}
