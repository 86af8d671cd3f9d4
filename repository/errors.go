package repository

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotFound is matched by every *NotFoundError
	ErrNotFound = errors.New("not found")
	// ErrConflict is matched by every *ConflictError
	ErrConflict = errors.New("conflict")
	// ErrMissingArgument is matched by every *MissingArgumentError
	ErrMissingArgument = errors.New("missing argument")
	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("validation failed")
	// ErrInvariant is matched by every *InvariantError
	ErrInvariant = errors.New("invariant violation")
)

// NotFoundError is returned when a node, path or category does not exist
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError is returned when an operation would break a tree invariant
type ConflictError struct {
	Op     string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("cannot %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("cannot %s %s: %s", e.Op, e.ID, e.Reason)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// MissingArgumentError is returned when a required input is absent
type MissingArgumentError struct {
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("missing argument: %s", e.Argument)
}

func (e *MissingArgumentError) Is(target error) bool {
	return target == ErrMissingArgument
}

// ValidationError represents a malformed input value
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InvariantError reports corrupted tree state. It is never recoverable:
// the enclosing transaction must be rolled back.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + e.Message
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

func nodeNotFound(id string) error {
	return &NotFoundError{Kind: "node", ID: id}
}

func categoryNotFound(id string) error {
	return &NotFoundError{Kind: "category", ID: id}
}

func pathNotFound(path string) error {
	return &NotFoundError{Kind: "path", ID: path}
}
