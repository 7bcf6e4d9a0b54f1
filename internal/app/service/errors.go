package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sifan077/hyperindex/internal/app/repository"
)

var (
	// ErrNotFound covers entries that are absent or outside the caller's scope.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState reports an operation that the entry's lifecycle state forbids.
	ErrInvalidState = errors.New("invalid state")
	// ErrStorageUnavailable wraps transport and transaction failures.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// classify wraps err with op and maps it onto the service error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var vErr *ValidationError
	switch {
	case errors.Is(err, repository.ErrEntryNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidState), errors.Is(err, ErrStorageUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	case errors.As(err, &vErr):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
}
