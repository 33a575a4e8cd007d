package content

import (
	"errors"

	"github.com/joescharf/cadence/internal/store"
)

// ErrUnauthenticated is returned by mutating operations when the context
// carries no user.
var ErrUnauthenticated = errors.New("not authenticated")

// ErrNotFound is the store's not-found error, propagated unchanged.
var ErrNotFound = store.ErrNotFound

// ValidationError reports fields that failed validation at save time.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
