// Package clock abstracts wall-clock time and repeating timers so the
// playback engine's interval-driven side effects can be tested with a
// manually advanced clock instead of real timers.
package clock

import "time"

// Ticker is a cancellable repeating timer handle.
type Ticker interface {
	// C returns the channel on which ticks are delivered.
	C() <-chan time.Time
	// Stop cancels the ticker. No more ticks are delivered after Stop
	// returns; the channel is not closed.
	Stop()
}

// Clock provides the current time and repeating timers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// System is the real clock backed by the time package.
type System struct{}

// NewSystem returns a Clock backed by real timers.
func NewSystem() System {
	return System{}
}

// Now returns the current wall-clock time.
func (System) Now() time.Time {
	return time.Now()
}

// NewTicker returns a ticker backed by time.Ticker.
func (System) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (st *systemTicker) C() <-chan time.Time {
	return st.t.C
}

func (st *systemTicker) Stop() {
	st.t.Stop()
}
