package session

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a deterministic Clock for tests. Advance moves simulated
// time forward and fires due timers in order, releasing its lock around
// each callback so callbacks may schedule or stop timers.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.when.After(target) {
				continue
			}
			if next == nil || t.when.Before(next.when) {
				next = t
			}
		}
		if next == nil {
			break
		}
		if next.when.After(c.now) {
			c.now = next.when
		}
		next.fired = true
		f := next.f
		c.mu.Unlock()
		f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

func TestFakeClock_FiresInOrder(t *testing.T) {
	clock := newFakeClock()
	var order []int
	clock.AfterFunc(30*time.Millisecond, func() { order = append(order, 3) })
	clock.AfterFunc(10*time.Millisecond, func() { order = append(order, 1) })
	clock.AfterFunc(20*time.Millisecond, func() { order = append(order, 2) })

	clock.Advance(50 * time.Millisecond)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("timers fired out of order: %v", order)
	}
}

func TestFakeClock_StopPreventsFire(t *testing.T) {
	clock := newFakeClock()
	fired := false
	timer := clock.AfterFunc(10*time.Millisecond, func() { fired = true })

	if !timer.Stop() {
		t.Error("Stop on a pending timer should return true")
	}
	clock.Advance(20 * time.Millisecond)
	if fired {
		t.Error("stopped timer fired")
	}
	if timer.Stop() {
		t.Error("Stop on an already stopped timer should return false")
	}
}

func TestSystemClock_AfterFunc(t *testing.T) {
	clock := SystemClock()
	done := make(chan struct{})
	clock.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}
