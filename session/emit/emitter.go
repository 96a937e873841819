package emit

// Emitter receives and processes observability events from session
// execution.
//
// Implementations should be:
//   - Non-blocking: never slow down the session's forward progress
//   - Thread-safe: timer expiries emit from their own goroutines
//   - Resilient: a failing backend must not crash the session
//
// Emit should not panic; errors are handled internally.
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	Emit(event Event)
}
