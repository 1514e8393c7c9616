package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the search and embedding domain.
// Services wrap these with %w so controllers and middleware can match with errors.Is.
var (
	// ErrInvalidQuery is returned when a search query is empty or whitespace-only.
	ErrInvalidQuery = errors.New("search query must not be empty")

	// ErrEmbeddingUnavailable wraps any embedding provider failure
	// (network, quota, timeout, malformed response). Retryable by the caller.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrNoteNotFound is returned when a referenced note id does not exist.
	ErrNoteNotFound = errors.New("note not found")

	// ErrUnauthorized is returned for failed credential checks.
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrEmailTaken is returned on registration with an existing email.
	ErrEmailTaken = errors.New("email already registered")
)

// DimensionMismatchError indicates a vector whose length differs from the
// configured embedding dimensionality. This is a configuration defect, not a
// user error, and is never silently coerced.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// IsDimensionMismatch reports whether err is (or wraps) a DimensionMismatchError.
func IsDimensionMismatch(err error) bool {
	var dm *DimensionMismatchError
	return errors.As(err, &dm)
}
