// Package inmemory provides an in-memory implementation of the ContactService interface
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/stacklok/contacts-server/internal/service"
)

// contactSvc implements the ContactService interface over a map
type contactSvc struct {
	mu       sync.RWMutex // Protects contacts, nextID
	contacts map[int64]service.Contact
	nextID   int64
}

var _ service.ContactService = (*contactSvc)(nil)

// Option is a functional option for configuring the contactSvc
type Option func(*contactSvc)

// WithContacts seeds the store. Seeded ids are kept and new ids continue
// after the highest one.
func WithContacts(contacts ...service.Contact) Option {
	return func(s *contactSvc) {
		for _, c := range contacts {
			s.contacts[c.ID] = c
			if c.ID >= s.nextID {
				s.nextID = c.ID + 1
			}
		}
	}
}

// New creates an empty in-memory contact service
func New(opts ...Option) service.ContactService {
	s := &contactSvc{
		contacts: make(map[int64]service.Contact),
		nextID:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckReadiness always succeeds
func (*contactSvc) CheckReadiness(context.Context) error {
	return nil
}

// ListContacts returns all contacts ordered by id
func (s *contactSvc) ListContacts(context.Context) ([]service.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contacts := make([]service.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		contacts = append(contacts, c)
	}
	slices.SortFunc(contacts, func(a, b service.Contact) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return contacts, nil
}

// CreateContact validates and stores a new contact
func (s *contactSvc) CreateContact(_ context.Context, req service.CreateContactRequest) (*service.Contact, error) {
	if err := service.ValidateCreate(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := req.Contact()
	c.ID = s.nextID
	s.nextID++
	s.contacts[c.ID] = c
	return &c, nil
}

// UpdateContact applies the non-nil fields of req
func (s *contactSvc) UpdateContact(
	_ context.Context,
	id int64,
	req service.UpdateContactRequest,
) (*service.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok {
		return nil, service.ErrContactNotFound
	}
	if err := service.ValidateUpdate(req); err != nil {
		return nil, err
	}
	req.Apply(&c)
	s.contacts[id] = c
	return &c, nil
}

// DeleteContact removes a contact
func (s *contactSvc) DeleteContact(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[id]; !ok {
		return service.ErrContactNotFound
	}
	delete(s.contacts, id)
	return nil
}
