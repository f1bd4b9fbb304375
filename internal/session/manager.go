// Package session tracks mounted players. Each session owns a playback
// engine, its activity accumulator, and the command queue its client drains.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"hygge/internal/activity"
	"hygge/internal/clock"
	"hygge/internal/player"
	"hygge/internal/position"

	"github.com/sirupsen/logrus"
)

// Session is the client-visible session metadata.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	UserAgent    string    `json:"userAgent"`
	DeviceName   string    `json:"deviceName"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// PlayerSession bundles a session with its live playback engine.
type PlayerSession struct {
	Session     *Session
	Controller  *player.Controller
	Accumulator *activity.Accumulator
	Binding     *player.RemoteBinding
}

// Manager creates and expires player sessions. Expiring a session closes its
// engine, which cancels the minute interval and flushes unreported minutes.
type Manager struct {
	positions    position.Store
	reporter     activity.Reporter
	clk          clock.Clock
	logger       *logrus.Logger
	saveInterval time.Duration
	timeout      time.Duration

	mu       sync.RWMutex
	sessions map[string]*PlayerSession
	active   string

	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a session manager and starts its expiry sweep.
func NewManager(positions position.Store, reporter activity.Reporter, clk clock.Clock, logger *logrus.Logger, saveInterval, timeout time.Duration) *Manager {
	m := &Manager{
		positions:    positions,
		reporter:     reporter,
		clk:          clk,
		logger:       logger,
		saveInterval: saveInterval,
		timeout:      timeout,
		sessions:     make(map[string]*PlayerSession),
		done:         make(chan struct{}),
	}

	go m.sweep()

	return m
}

// generateID creates a new unique session ID.
func generateID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// Create mounts a new player session for a user. The engine starts idle; the
// client loads a queue through the player endpoints.
func (m *Manager) Create(userID, userAgent, deviceName string) *PlayerSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clk.Now()
	sess := &Session{
		ID:           generateID(),
		UserID:       userID,
		UserAgent:    userAgent,
		DeviceName:   deviceName,
		CreatedAt:    now,
		LastActivity: now,
	}

	binding := player.NewRemoteBinding()
	ctrl := player.NewController(binding, m.positions, m.clk, m.logger, m.saveInterval)
	acc := activity.NewAccumulator(m.reporter, m.clk, m.logger, userID, "listening")
	ctrl.SetObserver(acc)

	ps := &PlayerSession{
		Session:     sess,
		Controller:  ctrl,
		Accumulator: acc,
		Binding:     binding,
	}

	m.sessions[sess.ID] = ps
	if m.active == "" {
		m.active = sess.ID
	}

	m.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"user_id":    userID,
		"device":     deviceName,
	}).Info("Player session created")

	return ps
}

// Get returns a session by ID, or nil when unknown or expired.
func (m *Manager) Get(sessionID string) *PlayerSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sessions[sessionID]
}

// Touch records client activity, deferring expiry.
func (m *Manager) Touch(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ps, exists := m.sessions[sessionID]; exists {
		ps.Session.LastActivity = m.clk.Now()
	}
}

// Active returns the session currently considered foreground, or nil.
func (m *Manager) Active() *PlayerSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == "" {
		return nil
	}
	return m.sessions[m.active]
}

// SetActive marks a session as the foreground one.
func (m *Manager) SetActive(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; exists {
		m.active = sessionID
		return true
	}
	return false
}

// All returns a snapshot of the live sessions.
func (m *Manager) All() []*PlayerSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*PlayerSession, 0, len(m.sessions))
	for _, ps := range m.sessions {
		result = append(result, ps)
	}
	return result
}

// Remove unmounts a session, closing its engine. Closing the accumulator
// flushes whole unreported minutes before the data stores go away.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	ps, exists := m.sessions[sessionID]
	if exists {
		delete(m.sessions, sessionID)
		if m.active == sessionID {
			m.active = m.pickActive()
		}
	}
	m.mu.Unlock()

	if exists {
		m.teardown(ps)
	}
}

// teardown stops a session's engine outside the manager lock.
func (m *Manager) teardown(ps *PlayerSession) {
	ps.Controller.Close()
	ps.Accumulator.Close()

	m.logger.WithFields(logrus.Fields{
		"session_id":      ps.Session.ID,
		"playback_second": ps.Accumulator.Elapsed(),
	}).Info("Player session closed")
}

// pickActive finds a replacement foreground session. Must be called with the
// lock held.
func (m *Manager) pickActive() string {
	var bestID string
	var bestTime time.Time
	for id, ps := range m.sessions {
		if ps.Controller.State().IsPlaying {
			return id
		}
		if bestID == "" || ps.Session.LastActivity.After(bestTime) {
			bestID = id
			bestTime = ps.Session.LastActivity
		}
	}
	return bestID
}

// sweep expires sessions whose clients went silent. Runs until Close.
func (m *Manager) sweep() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.expireStale()
		}
	}
}

func (m *Manager) expireStale() {
	now := m.clk.Now()

	m.mu.Lock()
	var stale []*PlayerSession
	for id, ps := range m.sessions {
		if now.Sub(ps.Session.LastActivity) > m.timeout {
			delete(m.sessions, id)
			stale = append(stale, ps)
			if m.active == id {
				m.active = ""
			}
		}
	}
	if m.active == "" {
		m.active = m.pickActive()
	}
	m.mu.Unlock()

	for _, ps := range stale {
		m.logger.WithField("session_id", ps.Session.ID).Info("Expiring idle player session")
		m.teardown(ps)
	}
}

// Close tears down every session and stops the sweep.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)

		m.mu.Lock()
		remaining := make([]*PlayerSession, 0, len(m.sessions))
		for _, ps := range m.sessions {
			remaining = append(remaining, ps)
		}
		m.sessions = make(map[string]*PlayerSession)
		m.active = ""
		m.mu.Unlock()

		for _, ps := range remaining {
			m.teardown(ps)
		}
	})
}
