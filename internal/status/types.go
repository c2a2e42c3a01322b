// Package status tracks the outcome of the startup sequence so that HTTP
// handlers can report readiness separately from liveness.
package status

import (
	"sync"
	"time"
)

// Phase is the overall startup state
type Phase string

const (
	// PhaseStarting means the readiness gate has not finished yet
	PhaseStarting Phase = "starting"

	// PhaseReady means the database answered and the schema exists
	PhaseReady Phase = "ready"

	// PhaseDegraded means startup finished but the database or schema is unavailable
	PhaseDegraded Phase = "degraded"
)

// Client-safe failure reasons. The underlying error stays in Snapshot.Error.
const (
	ReasonDatabaseNotReady = "database not ready"
	ReasonSchemaFailed     = "schema initialization failed"
)

// Snapshot is a point-in-time copy of the startup state
type Snapshot struct {
	Phase         Phase
	DatabaseReady bool
	SchemaReady   bool

	// Error is the full startup error, for logs only
	Error string

	// Reason is a fixed description of the failure that may be shown to clients
	Reason string

	StartedAt time.Time
	CheckedAt time.Time
}

// Startup records the readiness gate and schema outcomes. It is written once
// by the startup sequence and read concurrently by request handlers.
type Startup struct {
	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

// NewStartup returns a Startup in the starting phase
func NewStartup() *Startup {
	s := &Startup{now: time.Now}
	s.snapshot = Snapshot{Phase: PhaseStarting, StartedAt: s.now()}
	return s
}

// RecordDatabase stores the readiness gate outcome. A failure moves the
// startup state to degraded.
func (s *Startup) RecordDatabase(ready bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.DatabaseReady = ready
	s.record(ready, err, ReasonDatabaseNotReady)
}

// RecordSchema stores the schema initializer outcome.
func (s *Startup) RecordSchema(ready bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.SchemaReady = ready
	s.record(ready, err, ReasonSchemaFailed)
}

// record updates phase, error and timestamp; callers hold the lock
func (s *Startup) record(ok bool, err error, reason string) {
	s.snapshot.CheckedAt = s.now()
	if err != nil {
		s.snapshot.Error = err.Error()
	}

	switch {
	case s.snapshot.DatabaseReady && s.snapshot.SchemaReady:
		s.snapshot.Phase = PhaseReady
		s.snapshot.Error = ""
		s.snapshot.Reason = ""
	case !ok:
		s.snapshot.Phase = PhaseDegraded
		s.snapshot.Reason = reason
	}
}

// Snapshot returns a copy of the current state
func (s *Startup) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Ready reports whether the database is reachable and the schema exists
func (s *Startup) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Phase == PhaseReady
}
