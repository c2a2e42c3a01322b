package common

import (
	"errors"
	"net/http"

	"github.com/stacklok/contacts-server/internal/service"
)

// Client-facing messages
const (
	MessageMissingFields  = "Missing required fields"
	MessageNotFound       = "Contact not found"
	MessageInvalidRequest = "Invalid request body"
)

// StatusForError maps a service error to an HTTP status. Errors outside the
// service taxonomy (store failures included) map to fallback, which lets each
// route keep its own status for store failures.
func StatusForError(err error, fallback int) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, service.ErrContactNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidContact):
		return http.StatusBadRequest
	default:
		return fallback
	}
}

// MessageForError returns the message safe to show a client. Store failures
// get fallback so that driver messages never leave the process.
func MessageForError(err error, fallback string) string {
	var vErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrContactNotFound):
		return MessageNotFound
	case errors.Is(err, service.ErrMissingField):
		return MessageMissingFields
	case errors.As(err, &vErr):
		return vErr.Error()
	default:
		return fallback
	}
}
