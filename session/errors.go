package session

import "errors"

// ErrExhausted is returned by Procedure.Next when no trials remain.
// This is the normal termination signal for a session, not a failure:
// the engine reacts to it by finalizing the session.
var ErrExhausted = errors.New("no trials remaining")

// ErrAborted is returned by Procedure.Next after Abort has been called.
// No further advancement is valid on an aborted procedure.
var ErrAborted = errors.New("procedure aborted")

// ErrAlreadyStarted is returned when Begin is called more than once on
// the same engine. A session runs exactly once.
var ErrAlreadyStarted = errors.New("session already started")

// ErrNotStarted is returned by entry points that require Begin to have
// been called first.
var ErrNotStarted = errors.New("session not started")

// EngineError represents a structured error from engine operations.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
