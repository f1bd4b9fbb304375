package session

import (
	"sync"
	"testing"
	"time"

	"hygge/internal/clock"

	"github.com/sirupsen/logrus"
)

type memStore struct {
	mu        sync.Mutex
	positions map[int]float64
}

func newMemStore() *memStore {
	return &memStore{positions: make(map[int]float64)}
}

func (s *memStore) Get(trackID int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions[trackID]
}

func (s *memStore) Set(trackID int, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[trackID] = seconds
}

func (s *memStore) Clear(trackID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, trackID)
}

type nopReporter struct{}

func (nopReporter) AddMinutes(userID, day, activity string, minutes int) error { return nil }
func (nopReporter) RecordPlay(trackID int, userID string) error                { return nil }

func newTestManager(t *testing.T, clk *clock.Manual) *Manager {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	m := NewManager(newMemStore(), nopReporter{}, clk, logger, 5*time.Second, 5*time.Minute)
	t.Cleanup(m.Close)

	return m
}

func TestCreateAndGet(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	m := newTestManager(t, clk)

	ps := m.Create("user-1", "hygge-ios/2.1", "iPhone")
	if ps.Session.ID == "" {
		t.Fatal("expected a session ID")
	}
	if ps.Controller == nil || ps.Accumulator == nil || ps.Binding == nil {
		t.Fatal("session engine not fully mounted")
	}

	if got := m.Get(ps.Session.ID); got != ps {
		t.Error("Get returned a different session")
	}
	if m.Get("nope") != nil {
		t.Error("expected nil for unknown session")
	}
}

func TestFirstSessionBecomesActive(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	m := newTestManager(t, clk)

	first := m.Create("user-1", "", "tablet")
	m.Create("user-1", "", "phone")

	if active := m.Active(); active == nil || active.Session.ID != first.Session.ID {
		t.Error("expected the first session to be active")
	}
}

func TestRemoveClosesEngine(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	m := newTestManager(t, clk)

	ps := m.Create("user-1", "", "phone")
	m.Remove(ps.Session.ID)

	if m.Get(ps.Session.ID) != nil {
		t.Error("session still present after Remove")
	}
	// Close is idempotent, so tearing down again must not panic.
	ps.Controller.Close()
	ps.Accumulator.Close()
}

func TestExpireStale(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	m := newTestManager(t, clk)

	stale := m.Create("user-1", "", "phone")
	clk.Advance(4 * time.Minute)
	fresh := m.Create("user-1", "", "tablet")
	clk.Advance(2 * time.Minute)

	m.expireStale()

	if m.Get(stale.Session.ID) != nil {
		t.Error("stale session survived the sweep")
	}
	if m.Get(fresh.Session.ID) == nil {
		t.Error("fresh session was expired")
	}
	if active := m.Active(); active == nil || active.Session.ID != fresh.Session.ID {
		t.Error("expected the surviving session to become active")
	}
}

func TestTouchDefersExpiry(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	m := newTestManager(t, clk)

	ps := m.Create("user-1", "", "phone")
	clk.Advance(4 * time.Minute)
	m.Touch(ps.Session.ID)
	clk.Advance(4 * time.Minute)

	m.expireStale()

	if m.Get(ps.Session.ID) == nil {
		t.Error("touched session should not expire")
	}
}
