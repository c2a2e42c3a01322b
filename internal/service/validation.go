package service

import (
	"errors"
	"unicode/utf8"
)

// JSON field names
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldEmail     = "email"
)

// Column widths of the contact table
const (
	MaxNameLength  = 80
	MaxEmailLength = 120
)

// ValidateCreate checks that every field is present and fits its column.
// Empty strings are accepted.
func ValidateCreate(req CreateContactRequest) error {
	var errs []error
	for _, f := range []struct {
		name  string
		value *string
		limit int
	}{
		{FieldFirstName, req.FirstName, MaxNameLength},
		{FieldLastName, req.LastName, MaxNameLength},
		{FieldEmail, req.Email, MaxEmailLength},
	} {
		if f.value == nil {
			errs = append(errs, &ValidationError{Field: f.name, Err: ErrMissingField})
			continue
		}
		if err := checkLength(f.name, *f.value, f.limit); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ValidateUpdate rejects fields sent as null and checks the provided fields
// against their column widths
func ValidateUpdate(req UpdateContactRequest) error {
	var errs []error
	for _, field := range req.NullFields() {
		errs = append(errs, &ValidationError{Field: field, Err: ErrNullField})
	}
	if req.FirstName != nil {
		errs = append(errs, checkLength(FieldFirstName, *req.FirstName, MaxNameLength))
	}
	if req.LastName != nil {
		errs = append(errs, checkLength(FieldLastName, *req.LastName, MaxNameLength))
	}
	if req.Email != nil {
		errs = append(errs, checkLength(FieldEmail, *req.Email, MaxEmailLength))
	}
	return errors.Join(errs...)
}

func checkLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return &ValidationError{Field: field, Err: ErrFieldTooLong, Limit: limit}
	}
	return nil
}
