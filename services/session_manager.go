package services

import (
	"adstudio/apperrors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// SessionManager keeps sessions in memory and reaps the idle ones
type SessionManager struct {
	newGenerator GeneratorFactory
	audioFormat  AudioFormat
	newPlayer    func() Player
	ttl          time.Duration

	sessions    map[string]*Session
	sessionsMux sync.RWMutex

	cron *cron.Cron
	now  func() time.Time
}

// NewSessionManager creates a manager. newPlayer may be nil to use ClockPlayer.
func NewSessionManager(newGenerator GeneratorFactory, audioFormat AudioFormat, ttl time.Duration, newPlayer func() Player) *SessionManager {
	if newPlayer == nil {
		newPlayer = func() Player { return NewClockPlayer() }
	}
	return &SessionManager{
		newGenerator: newGenerator,
		audioFormat:  audioFormat,
		newPlayer:    newPlayer,
		ttl:          ttl,
		sessions:     make(map[string]*Session),
		now:          time.Now,
	}
}

// Create starts a new idle session
func (m *SessionManager) Create() *Session {
	id := uuid.New().String()
	session := NewSession(id, m.newGenerator, m.audioFormat, m.newPlayer())

	m.sessionsMux.Lock()
	m.sessions[id] = session
	m.sessionsMux.Unlock()

	log.Printf("[Session %s] Created", id)
	return session
}

// Get looks a session up by ID
func (m *SessionManager) Get(id string) (*Session, error) {
	m.sessionsMux.RLock()
	session, exists := m.sessions[id]
	m.sessionsMux.RUnlock()

	if !exists {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("session %s not found", id), nil)
	}
	return session, nil
}

// Delete closes and forgets a session
func (m *SessionManager) Delete(id string) error {
	m.sessionsMux.Lock()
	session, exists := m.sessions[id]
	delete(m.sessions, id)
	m.sessionsMux.Unlock()

	if !exists {
		return apperrors.NewNotFoundError(fmt.Sprintf("session %s not found", id), nil)
	}
	session.Close()
	log.Printf("[Session %s] Deleted", id)
	return nil
}

// Count returns the number of live sessions
func (m *SessionManager) Count() int {
	m.sessionsMux.RLock()
	defer m.sessionsMux.RUnlock()
	return len(m.sessions)
}

// ReapIdle removes sessions that have not changed within the TTL and are not busy
func (m *SessionManager) ReapIdle() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	var expired []*Session
	m.sessionsMux.Lock()
	for id, session := range m.sessions {
		if session.Busy() || session.LastActivity().After(cutoff) {
			continue
		}
		expired = append(expired, session)
		delete(m.sessions, id)
	}
	m.sessionsMux.Unlock()

	for _, session := range expired {
		session.Close()
		log.Printf("[Session %s] Reaped after %s idle", session.ID, m.ttl)
	}
	return len(expired)
}

// StartReaper schedules ReapIdle on a cron schedule such as "@every 5m"
func (m *SessionManager) StartReaper(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { m.ReapIdle() }); err != nil {
		return fmt.Errorf("invalid reaper schedule %q: %w", schedule, err)
	}
	c.Start()
	m.cron = c
	log.Printf("Session reaper scheduled %s (ttl %s)", schedule, m.ttl)
	return nil
}

// Shutdown stops the reaper and closes every session
func (m *SessionManager) Shutdown() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}

	m.sessionsMux.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.sessionsMux.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}
