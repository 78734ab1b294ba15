package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy returned by the registry and report services. All
// failures come back as values; handlers map them to HTTP codes and the
// core never formats user-facing prose beyond field and message.
var (
	// ErrInvalidInput marks a malformed or missing required field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateIdentity marks a registration against an email that
	// already has an account.
	ErrDuplicateIdentity = errors.New("identity already registered")

	// ErrNotFound marks a lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials marks an authentication failure. It is
	// deliberately the same for an unknown email and a wrong password,
	// so callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidTransition marks a status change rejected by the
	// workflow state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// FieldError identifies a single business-rule violation on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every failing field of a submission. Rules are
// applied in order and all violations are collected, not just the first.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}
