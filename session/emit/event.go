// Package emit provides observability events for session execution.
package emit

// Event represents an observability event emitted during a session.
//
// The engine emits one for every lifecycle transition: session start and
// end, block starts, trial starts, responses, timeouts, stopping-rule
// firings, and persistence failures. Events are emitted to an Emitter
// which can log them, turn them into OpenTelemetry spans, or drop them.
type Event struct {
	// SessionID identifies the session that emitted this event.
	SessionID string

	// Test names the battery test being run.
	Test string

	// Block is the block number the event refers to, -1 for
	// session-level events.
	Block int

	// Trial is the within-block trial number, -1 for block- and
	// session-level events.
	Trial int

	// Msg is a short machine-friendly description, e.g. "trial_start",
	// "trial_timeout", "block_stopped", "save_failed".
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "rt_ms": response latency in milliseconds
	//   - "correct": the trial's scored answer
	//   - "error": error details for failure events
	//   - "summary": the final summary on session_end
	Meta map[string]interface{}
}
