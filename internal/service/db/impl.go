package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	dbprobe "github.com/stacklok/contacts-server/internal/db"
	"github.com/stacklok/contacts-server/internal/otel"
	"github.com/stacklok/contacts-server/internal/service"
)

// PostgreSQL error codes the store maps to validation failures
const (
	pgNotNullViolation = "23502"
	pgStringTooLong    = "22001"
)

const (
	listContactsQuery  = `SELECT id, first_name, last_name, email FROM contact ORDER BY id`
	insertContactQuery = `INSERT INTO contact (first_name, last_name, email) VALUES ($1, $2, $3) RETURNING id`
	selectForUpdate    = `SELECT id, first_name, last_name, email FROM contact WHERE id = $1 FOR UPDATE`
	updateContactQuery = `UPDATE contact SET first_name = $2, last_name = $3, email = $4 WHERE id = $1`
	deleteContactQuery = `DELETE FROM contact WHERE id = $1`
)

// options holds configuration options for the database service
type options struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// Option is a functional option for configuring the database service
type Option func(*options) error

// WithConnectionPool sets the pgx pool backing the service. The caller is
// responsible for closing the pool when it is done.
func WithConnectionPool(pool *pgxpool.Pool) Option {
	return func(o *options) error {
		if pool == nil {
			return fmt.Errorf("pgx pool is required")
		}
		o.pool = pool
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the database service.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// dbService implements the ContactService interface using a database backend
type dbService struct {
	pool   *pgxpool.Pool
	prober *dbprobe.PoolProber
	tracer trace.Tracer
}

var _ service.ContactService = (*dbService)(nil)

// New creates a new database-backed contact service with the given options
func New(opts ...Option) (service.ContactService, error) {
	o := &options{}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if o.pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}

	return &dbService{
		pool:   o.pool,
		prober: dbprobe.NewPoolProber(o.pool),
		tracer: o.tracer,
	}, nil
}

// CheckReadiness checks if the service is ready to serve requests
func (s *dbService) CheckReadiness(ctx context.Context) error {
	if err := s.prober.Probe(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// ListContacts returns all contacts ordered by id
func (s *dbService) ListContacts(ctx context.Context) ([]service.Contact, error) {
	ctx, span := s.startSpan(ctx, "dbService.ListContacts")
	defer span.End()

	rows, err := s.pool.Query(ctx, listContactsQuery)
	if err != nil {
		otel.RecordError(span, err)
		return nil, service.StoreError("list contacts", err)
	}

	contacts, err := pgx.CollectRows(rows, pgx.RowToStructByPos[service.Contact])
	if err != nil {
		otel.RecordError(span, err)
		return nil, service.StoreError("list contacts", err)
	}
	if contacts == nil {
		contacts = []service.Contact{}
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(contacts)))
	return contacts, nil
}

// CreateContact validates and inserts a new contact
func (s *dbService) CreateContact(ctx context.Context, req service.CreateContactRequest) (*service.Contact, error) {
	ctx, span := s.startSpan(ctx, "dbService.CreateContact")
	defer span.End()

	if err := service.ValidateCreate(req); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	contact := req.Contact()
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, insertContactQuery,
			contact.FirstName, contact.LastName, contact.Email,
		).Scan(&contact.ID)
	})
	if err != nil {
		err = classifyError("create contact", err)
		otel.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(otel.AttrContactID.Int64(contact.ID))
	slog.DebugContext(ctx, "Contact created", "id", contact.ID)
	return &contact, nil
}

// UpdateContact applies a partial update inside a single transaction
func (s *dbService) UpdateContact(
	ctx context.Context,
	id int64,
	req service.UpdateContactRequest,
) (*service.Contact, error) {
	ctx, span := s.startSpan(ctx, "dbService.UpdateContact",
		trace.WithAttributes(
			otel.AttrContactID.Int64(id),
			otel.AttrUpdatedFields.StringSlice(req.UpdatedFields()),
		),
	)
	defer span.End()

	var contact service.Contact
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectForUpdate, id)
		if err != nil {
			return err
		}
		contact, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[service.Contact])
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return service.ErrContactNotFound
			}
			return err
		}

		// Only an existing row is validated, so an unknown id is always not found
		if err := service.ValidateUpdate(req); err != nil {
			return err
		}
		req.Apply(&contact)

		_, err = tx.Exec(ctx, updateContactQuery, contact.ID, contact.FirstName, contact.LastName, contact.Email)
		return err
	})
	if err != nil {
		err = classifyError("update contact", err)
		if !errors.Is(err, service.ErrContactNotFound) {
			otel.RecordError(span, err)
		}
		return nil, err
	}

	return &contact, nil
}

// DeleteContact removes a contact
func (s *dbService) DeleteContact(ctx context.Context, id int64) error {
	ctx, span := s.startSpan(ctx, "dbService.DeleteContact",
		trace.WithAttributes(otel.AttrContactID.Int64(id)),
	)
	defer span.End()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, deleteContactQuery, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return service.ErrContactNotFound
		}
		return nil
	})
	if err != nil {
		err = classifyError("delete contact", err)
		if !errors.Is(err, service.ErrContactNotFound) {
			otel.RecordError(span, err)
		}
		return err
	}

	return nil
}

// classifyError maps store failures onto the service error taxonomy
func classifyError(op string, err error) error {
	if errors.Is(err, service.ErrContactNotFound) || errors.Is(err, service.ErrInvalidContact) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgNotNullViolation:
			return &service.ValidationError{Field: fieldForColumn(pgErr.ColumnName), Err: service.ErrMissingField}
		case pgStringTooLong:
			return &service.ValidationError{Field: fieldForColumn(pgErr.ColumnName), Err: service.ErrFieldTooLong}
		}
	}

	return service.StoreError(op, err)
}

func fieldForColumn(column string) string {
	switch column {
	case "first_name":
		return service.FieldFirstName
	case "last_name":
		return service.FieldLastName
	case "email":
		return service.FieldEmail
	default:
		return ""
	}
}
