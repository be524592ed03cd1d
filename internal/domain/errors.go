package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the operation taxonomy. Handlers map these to HTTP
// statuses; repositories and services wrap them with context via the typed
// errors below.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnknownType  = errors.New("unknown type")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("identifier conflict")
)

// NotFoundError reports a missing entity or relationship.
type NotFoundError struct {
	Kind string // "entity" or "relationship"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// EntityNotFound builds the NotFoundError used by relationship creation to
// distinguish which endpoint was missing.
func EntityNotFound(id string) error {
	return &NotFoundError{Kind: "entity", ID: id}
}

// RelationshipNotFound reports a missing relationship by id.
func RelationshipNotFound(id string) error {
	return &NotFoundError{Kind: "relationship", ID: id}
}

// UnknownTypeError reports a type value absent from its catalog.
type UnknownTypeError struct {
	Kind string // "entity" or "relationship"
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown %s type %q", e.Kind, e.Name)
}

func (e *UnknownTypeError) Unwrap() error { return ErrUnknownType }

// ValidationError reports a schema or constraint violation on a write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
