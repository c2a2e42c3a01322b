package service

import (
	"bytes"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

// Contact is a stored contact
type Contact struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// CreateContactRequest carries the fields of a new contact. A nil field was
// absent or null in the request.
type CreateContactRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
}

// UpdateContactRequest carries a partial update. An absent field leaves the
// stored value unchanged; a field sent as null is rejected by ValidateUpdate.
type UpdateContactRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`

	// nullFields lists the fields the body set to an explicit null
	nullFields []string
}

// UnmarshalJSON decodes the body and remembers which fields were null
func (r *UpdateContactRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateContactRequest
	var req plain
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if !bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			continue
		}
		for _, field := range []string{FieldFirstName, FieldLastName, FieldEmail} {
			if strings.EqualFold(key, field) && !slices.Contains(req.nullFields, field) {
				req.nullFields = append(req.nullFields, field)
			}
		}
	}
	slices.Sort(req.nullFields)

	*r = UpdateContactRequest(req)
	return nil
}

// NullFields returns the JSON names of the fields sent as null, sorted
func (r UpdateContactRequest) NullFields() []string {
	return r.nullFields
}

// Contact builds the contact described by a validated request
func (r CreateContactRequest) Contact() Contact {
	return Contact{
		FirstName: deref(r.FirstName),
		LastName:  deref(r.LastName),
		Email:     deref(r.Email),
	}
}

// Apply copies the non-nil fields onto c
func (r UpdateContactRequest) Apply(c *Contact) {
	if r.FirstName != nil {
		c.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		c.LastName = *r.LastName
	}
	if r.Email != nil {
		c.Email = *r.Email
	}
}

// UpdatedFields lists the JSON names of the fields the update touches
func (r UpdateContactRequest) UpdatedFields() []string {
	var fields []string
	if r.FirstName != nil {
		fields = append(fields, FieldFirstName)
	}
	if r.LastName != nil {
		fields = append(fields, FieldLastName)
	}
	if r.Email != nil {
		fields = append(fields, FieldEmail)
	}
	return fields
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
