package errors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrInvalidState           = errors.New("invalid state")
	ErrForbidden              = errors.New("forbidden")
	ErrSelfEndorsement        = errors.New("self endorsement is forbidden")
	ErrDuplicate              = errors.New("duplicate")
	ErrRecordConflict         = fmt.Errorf("%w: conflicts with an active record", ErrDuplicate)
	ErrIdempotencyConflict    = errors.New("idempotency key conflict")
	ErrDependencyUnavailable  = errors.New("dependency unavailable")
	ErrPrivilegedAccessNeeded = fmt.Errorf("%w: privileged access required", ErrForbidden)
)

// FieldError is a validation failure bound to one payload field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %q %s", ErrValidation, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

func Field(field string, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

func Validation(format string, args ...any) error {
	return wrap(ErrValidation, format, args...)
}

func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

func InvalidState(format string, args ...any) error {
	return wrap(ErrInvalidState, format, args...)
}

func Forbidden(format string, args ...any) error {
	return wrap(ErrForbidden, format, args...)
}

func Duplicate(format string, args ...any) error {
	return wrap(ErrDuplicate, format, args...)
}

func RecordConflict(format string, args ...any) error {
	return wrap(ErrRecordConflict, format, args...)
}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
