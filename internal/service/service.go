// Package service provides the business logic for the contacts API
package service

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrContactNotFound is returned when no contact has the requested id
	ErrContactNotFound = errors.New("contact not found")
	// ErrInvalidContact is returned when contact data violates a field constraint
	ErrInvalidContact = errors.New("invalid contact")
	// ErrMissingField is returned when a required field is absent or null
	ErrMissingField = errors.New("missing required field")
	// ErrFieldTooLong is returned when a field exceeds its column width
	ErrFieldTooLong = errors.New("field too long")
	// ErrNullField is returned when an update sets a field to null
	ErrNullField = errors.New("field must not be null")
	// ErrStore wraps any other failure of the backing store
	ErrStore = errors.New("contact store failure")
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go ContactService

// ContactService defines the interface for contact operations
type ContactService interface {
	// CheckReadiness checks that the backing store answers
	CheckReadiness(ctx context.Context) error

	// ListContacts returns every contact ordered by id
	ListContacts(ctx context.Context) ([]Contact, error)

	// CreateContact validates and stores a new contact
	CreateContact(ctx context.Context, req CreateContactRequest) (*Contact, error)

	// UpdateContact applies the non-nil fields of req to the contact with the given id
	UpdateContact(ctx context.Context, id int64, req UpdateContactRequest) (*Contact, error)

	// DeleteContact removes the contact with the given id
	DeleteContact(ctx context.Context, id int64) error
}

// ValidationError reports a field that violates a contact constraint. It
// matches both ErrInvalidContact and its specific cause with errors.Is.
type ValidationError struct {
	// Field is the JSON name of the offending field; empty when the store
	// could not tell which column failed
	Field string
	// Err is ErrMissingField, ErrNullField or ErrFieldTooLong
	Err error
	// Limit is the maximum length for ErrFieldTooLong
	Limit int
}

func (e *ValidationError) Error() string {
	field := e.Field
	if field == "" {
		field = "value"
	}
	switch {
	case errors.Is(e.Err, ErrMissingField):
		return fmt.Sprintf("%s is required", field)
	case errors.Is(e.Err, ErrNullField):
		return fmt.Sprintf("%s must not be null", field)
	case errors.Is(e.Err, ErrFieldTooLong) && e.Limit > 0:
		return fmt.Sprintf("%s must be at most %d characters", field, e.Limit)
	case errors.Is(e.Err, ErrFieldTooLong):
		return fmt.Sprintf("%s is too long", field)
	default:
		return fmt.Sprintf("invalid %s: %v", field, e.Err)
	}
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidContact, e.Err}
}

// StoreError wraps err so that it matches ErrStore
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
