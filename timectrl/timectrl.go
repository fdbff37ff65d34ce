package timectrl

import (
	"sync"
	"time"
)

// SimClock is an interface for accessing simulation time. Components stamp
// records through a SimClock rather than time.Now so tests can pin time.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// Ticker starts repeating callbacks. Each call to Every starts an
// independent timer; the returned cancel function stops it and is safe to
// call more than once.
//
// Cancel does not wait for an in-flight callback to return. Callers that
// need a hard guarantee that no callback mutates state after cancel must
// guard the callback themselves (see demo.Engine's timer generation).
type Ticker interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

// TimeController is the wall-clock implementation of SimClock and Ticker.
type TimeController struct {
	mu sync.Mutex

	// location controls the zone Now reports in; nil means UTC.
	location *time.Location

	// active counts timers that have been started and not yet cancelled.
	active int
}

// NewTimeController constructs a controller reporting times in loc
// (UTC when nil).
func NewTimeController(loc *time.Location) *TimeController {
	return &TimeController{location: loc}
}

// Now returns the current wall-clock time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	if tc == nil || tc.location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(tc.location)
}

// Every runs fn on its own goroutine every interval until cancelled.
// Implements Ticker.
func (tc *TimeController) Every(interval time.Duration, fn func()) func() {
	if interval <= 0 || fn == nil {
		return func() {}
	}

	done := make(chan struct{})
	var once sync.Once

	tc.mu.Lock()
	tc.active++
	tc.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// Re-check so a cancel racing with a tick wins.
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(done)
			tc.mu.Lock()
			tc.active--
			tc.mu.Unlock()
		})
	}
}

// ActiveTimers returns the number of running timers.
func (tc *TimeController) ActiveTimers() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.active
}
