// Package database owns the contacts schema. There is no migration
// versioning: the schema is created idempotently once the database is
// reachable.
package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/contacts.sql
var contactsSchema string

// Execer is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// SchemaError reports that the schema could not be created
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("failed to initialize schema: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// EnsureSchema creates the contact table if it does not exist yet. Running it
// against an initialized database is a no-op.
func EnsureSchema(ctx context.Context, db Execer) error {
	if db == nil {
		return &SchemaError{Err: fmt.Errorf("no database handle")}
	}
	if _, err := db.Exec(ctx, contactsSchema); err != nil {
		return &SchemaError{Err: err}
	}
	return nil
}
