package timectrl

import (
	"sync"
	"time"
)

// ManualController is a SimClock and Ticker driven explicitly by the caller.
// Timers only fire from Fire or Advance, on the caller's goroutine, which
// makes tick-driven code deterministic under test.
type ManualController struct {
	mu      sync.Mutex
	now     time.Time
	nextID  int
	timers  map[int]*manualTimer
	started int
}

type manualTimer struct {
	id       int
	interval time.Duration
	fn       func()
}

// NewManualController constructs a controller whose clock starts at start.
func NewManualController(start time.Time) *ManualController {
	return &ManualController{
		now:    start,
		timers: make(map[int]*manualTimer),
	}
}

// Now returns the controller's current time. Implements SimClock.
func (m *ManualController) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// SetTime moves the clock to t without firing timers.
func (m *ManualController) SetTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Every registers fn. Implements Ticker.
func (m *ManualController) Every(interval time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.timers[id] = &manualTimer{id: id, interval: interval, fn: fn}
	m.started++

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.timers, id)
	}
}

// Fire advances the clock by the interval of the oldest active timer and
// invokes every active timer once. It reports whether any timer fired.
func (m *ManualController) Fire() bool {
	m.mu.Lock()
	timers := m.activeLocked()
	if len(timers) == 0 {
		m.mu.Unlock()
		return false
	}
	m.now = m.now.Add(timers[0].interval)
	m.mu.Unlock()

	for _, t := range timers {
		t.fn()
	}
	return true
}

// Advance calls Fire up to n times, stopping early once no timer is active.
// It returns how many times timers fired.
func (m *ManualController) Advance(n int) int {
	fired := 0
	for i := 0; i < n; i++ {
		if !m.Fire() {
			break
		}
		fired++
	}
	return fired
}

// Active reports whether at least one timer is registered.
func (m *ManualController) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers) > 0
}

// ActiveTimers returns the number of registered timers.
func (m *ManualController) ActiveTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Interval returns the interval of the oldest active timer, or zero.
func (m *ManualController) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	timers := m.activeLocked()
	if len(timers) == 0 {
		return 0
	}
	return timers[0].interval
}

// Started returns how many timers have been registered in total.
func (m *ManualController) Started() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

func (m *ManualController) activeLocked() []*manualTimer {
	out := make([]*manualTimer, 0, len(m.timers))
	for id := 1; id <= m.nextID; id++ {
		if t, ok := m.timers[id]; ok {
			out = append(out, t)
		}
	}
	return out
}
