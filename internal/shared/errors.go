package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer. The typed errors below wrap these
// so callers can match with errors.Is without caring about payloads.
var (
	// ErrValidation indicates caller-supplied input failed validation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the acting user may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInternal indicates an invariant violation; not meant to be retried.
	ErrInternal = errors.New("internal error")
	// ErrDuplicate indicates a store uniqueness constraint rejected a write.
	ErrDuplicate = errors.New("duplicate entry")
)

// ValidationError reports a rejected input value, always naming the value.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a missing entity by kind and identifier.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ForbiddenError reports a denied operation. The reason is for logs; it
// never discloses whether the target exists.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	if e.Reason == "" {
		return "forbidden"
	}
	return "forbidden: " + e.Reason
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// InternalError reports a broken invariant, such as a missing system role
// or an attempt to modify one.
type InternalError struct {
	Detail string
}

func (e *InternalError) Error() string {
	if e.Detail == "" {
		return "internal error"
	}
	return "internal error: " + e.Detail
}

func (e *InternalError) Unwrap() error { return ErrInternal }
