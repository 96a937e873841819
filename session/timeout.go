package session

import (
	"sync"
	"time"
)

// timerKind distinguishes the two countdown timers the engine owns.
type timerKind int

const (
	timerBlock timerKind = iota
	timerTrial
)

func (k timerKind) String() string {
	if k == timerBlock {
		return "block"
	}
	return "trial"
}

// timeoutManager owns the block and trial countdown timers.
//
// Invariants:
//   - At most one pending timer per kind: starting a timer atomically
//     cancels and restarts any pending one of the same kind.
//   - Stopping a timer that is not running is a no-op.
//   - A fire that loses the race with stop or restart is absorbed by the
//     generation check and never reaches the engine.
//
// The fire callback runs on the clock's goroutine without the manager
// lock held; the engine re-validates its own state before acting, so a
// fire that slips past the generation check after session teardown is
// still harmless.
type timeoutManager struct {
	clock Clock

	mu     sync.Mutex
	timers [2]Timer
	gens   [2]uint64
}

func newTimeoutManager(clock Clock) *timeoutManager {
	return &timeoutManager{clock: clock}
}

// start schedules fire to run after d, cancelling any pending timer of
// the same kind first. The new countdown is timed from this call.
func (m *timeoutManager) start(kind timerKind, d time.Duration, fire func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t := m.timers[kind]; t != nil {
		t.Stop()
	}
	m.gens[kind]++
	gen := m.gens[kind]
	m.timers[kind] = m.clock.AfterFunc(d, func() {
		m.mu.Lock()
		live := m.gens[kind] == gen
		if live {
			m.timers[kind] = nil
		}
		m.mu.Unlock()
		if live {
			fire()
		}
	})
}

// stop cancels the pending timer of the given kind, if any.
func (m *timeoutManager) stop(kind timerKind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t := m.timers[kind]; t != nil {
		t.Stop()
		m.timers[kind] = nil
	}
	m.gens[kind]++
}

// stopAll cancels both timers. Called on every exit path so a late
// expiry cannot fire against a torn-down session.
func (m *timeoutManager) stopAll() {
	m.stop(timerBlock)
	m.stop(timerTrial)
}

// pending reports whether a timer of the given kind is scheduled.
func (m *timeoutManager) pending(kind timerKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timers[kind] != nil
}
