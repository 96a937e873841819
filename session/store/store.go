// Package store provides persistence backends for session data.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested session ID does not exist.
var ErrNotFound = errors.New("not found")

// Store persists completed-trial records and session metadata.
//
// It enables:
//   - Incremental trial-by-trial persistence during a session
//   - Idempotent full-session snapshots at checkpoints and session end
//   - Loading a partial session for resumption
//
// Implementations can use in-memory storage (testing, see memory.go),
// a single-file SQLite database (sqlite.go), or MySQL (mysql.go).
//
// All operations must be safe to call repeatedly with identical input:
// the engine may re-save the same snapshot after every trial. A failing
// store never corrupts the engine's in-memory session; the error is
// reported and the session continues.
//
// Type parameter T is the trial record type to persist (must be
// JSON-serializable).
type Store[T any] interface {
	// SaveTrial persists one resolved trial. Trials are identified by
	// session ID plus sequence number; saving the same pair twice
	// overwrites the earlier version.
	SaveTrial(ctx context.Context, sessionID string, seq int, trial T) error

	// SaveSession persists a full session snapshot, overwriting any
	// earlier snapshot with the same session ID.
	SaveSession(ctx context.Context, snap Snapshot[T]) error

	// LoadSession retrieves a previously saved snapshot, used to resume
	// an interrupted session. Returns ErrNotFound when the session ID
	// has never been saved.
	LoadSession(ctx context.Context, sessionID string) (Snapshot[T], error)

	// Close releases any resources held by the store.
	Close() error
}

// Snapshot is the persistence-facing view of a session: its identity,
// the trials resolved so far, and the summary once the session ended.
type Snapshot[T any] struct {
	// SessionID uniquely identifies the session.
	SessionID string `json:"session_id"`

	// ProbandID identifies the person tested.
	ProbandID string `json:"proband_id"`

	// TestName names the battery test that produced the trials.
	TestName string `json:"test_name"`

	// Resumed is true when this run itself was resumed from an earlier
	// snapshot.
	Resumed bool `json:"resumed"`

	// Aborted is true when the session ended before exhausting its
	// trials.
	Aborted bool `json:"aborted"`

	// Started and Finished bracket the run. Finished is zero while the
	// session is still in progress.
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Trials holds the resolved trial records in original order.
	Trials []T `json:"trials"`

	// Summary is the scalar result mapping, nil until session end and
	// for aborted sessions.
	Summary map[string]any `json:"summary,omitempty"`
}
