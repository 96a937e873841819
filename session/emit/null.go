package emit

// NullEmitter implements Emitter by discarding all events.
//
// Use it when event output is not wanted, or in tests that don't care
// about observability. Safe for concurrent use, zero overhead.
type NullEmitter struct{}

// NewNullEmitter creates a new NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event without any processing.
func (n *NullEmitter) Emit(event Event) {
	// No-op: discard the event
}
