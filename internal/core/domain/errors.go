package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrInvalidReference = errors.New("invalid reference")
	ErrDuplicateEmail   = errors.New("a user with this email already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Referent kinds carried by ReferenceError.
const (
	RefUser = "assigned user"
	RefTask = "pending task"
)

// ReferenceError reports a payload that points at an entity which does not
// exist. It matches ErrInvalidReference under errors.Is.
type ReferenceError struct {
	Kind string
	ID   string
}

func (e *ReferenceError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *ReferenceError) Is(target error) bool {
	return target == ErrInvalidReference
}

// Validationf builds an ErrValidation with a field-level message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
