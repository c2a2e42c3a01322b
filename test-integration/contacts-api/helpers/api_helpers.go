package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/stacklok/contacts-server/internal/service"
)

// ContactFixture is a create request body with every field set
type ContactFixture struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// NewContactFixture returns a fixture whose email is unique for suffix
func NewContactFixture(suffix string) ContactFixture {
	return ContactFixture{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     fmt.Sprintf("ada+%s@example.com", suffix),
	}
}

// JSON encodes the fixture as a request body
func (f ContactFixture) JSON() string {
	data, _ := json.Marshal(f)
	return string(data)
}

// ContactEnvelope is the body of a successful create or update
type ContactEnvelope struct {
	Message string          `json:"message"`
	Contact service.Contact `json:"contact"`
}

// ContactList is the body of GET /api/contacts
type ContactList struct {
	Contacts []service.Contact `json:"contacts"`
}

// DecodeBody reads and closes resp.Body, decoding it into out
func DecodeBody(resp *http.Response, out any) error {
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %q: %w", string(body), err)
	}
	return nil
}

// FindContact returns the contact with id from list, or nil
func FindContact(list []service.Contact, id int64) *service.Contact {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}
