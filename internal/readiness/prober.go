// Package readiness implements the database readiness gate: a bounded,
// cancellable retry loop around a connectivity probe that runs before the
// server starts accepting requests.
package readiness

import (
	"context"
	"fmt"
)

// Prober checks whether the backing store answers a trivial query.
// A nil return means the store is reachable, regardless of schema state.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a plain function to the Prober interface.
type ProbeFunc func(ctx context.Context) error

// Probe calls f(ctx).
func (f ProbeFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

// ConnectionError reports that the store could not be reached or refused the
// connection (network, DNS, authentication).
type ConnectionError struct {
	Err error
}

// NewConnectionError wraps err unless it already is a *ConnectionError.
func NewConnectionError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ConnectionError); ok {
		return err
	}
	return &ConnectionError{Err: err}
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
