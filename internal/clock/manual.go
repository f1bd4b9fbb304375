package clock

import (
	"sync"
	"time"
)

// Manual is a Clock whose time only moves when Advance is called. Tickers
// created from it fire synchronously during Advance, which makes timer-driven
// behavior deterministic in tests.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

// NewManual returns a Manual clock starting at the given time.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the manual clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// NewTicker returns a ticker that fires on every multiple of d crossed by
// Advance.
func (m *Manual) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTicker{
		clock:    m,
		interval: d,
		next:     m.now.Add(d),
		ch:       make(chan time.Time, 64), // Buffered so Advance never blocks
	}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves the clock forward by d, delivering every tick that falls
// within the window in chronological order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)

	for {
		// Find the earliest pending tick within the window
		var due *manualTicker
		for _, t := range m.tickers {
			if t.stopped {
				continue
			}
			if !t.next.After(target) && (due == nil || t.next.Before(due.next)) {
				due = t
			}
		}
		if due == nil {
			break
		}

		m.now = due.next
		due.next = due.next.Add(due.interval)

		select {
		case due.ch <- m.now:
		default:
			// Receiver has fallen behind; drop the tick like time.Ticker does
		}
	}

	m.now = target
	m.mu.Unlock()
}

// AdvanceSeconds is shorthand for Advance(n * time.Second).
func (m *Manual) AdvanceSeconds(n int) {
	m.Advance(time.Duration(n) * time.Second)
}

func (m *Manual) removeTicker(t *manualTicker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.stopped = true
	for i, other := range m.tickers {
		if other == t {
			m.tickers = append(m.tickers[:i], m.tickers[i+1:]...)
			break
		}
	}
}

type manualTicker struct {
	clock    *Manual
	interval time.Duration
	next     time.Time
	ch       chan time.Time
	stopped  bool
}

func (t *manualTicker) C() <-chan time.Time {
	return t.ch
}

func (t *manualTicker) Stop() {
	t.clock.removeTicker(t)
}
