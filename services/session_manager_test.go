package services

import (
	"adstudio/apperrors"
	"adstudio/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(gen *fakeGenerator, ttl time.Duration) *SessionManager {
	return NewSessionManager(gen.factory(), DefaultAudioFormat, ttl, func() Player { return &recordingPlayer{} })
}

func TestSessionManagerLifecycle(t *testing.T) {
	m := newTestManager(newFakeGenerator(4), time.Hour)

	s := m.Create()
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, models.RunIdle, s.State())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Delete(s.ID))
	assert.Zero(t, m.Count())

	_, err = m.Get(s.ID)
	assert.True(t, apperrors.IsNotFoundError(err))
	assert.True(t, apperrors.IsNotFoundError(m.Delete(s.ID)))
}

func TestSessionsAreIsolated(t *testing.T) {
	m := newTestManager(newFakeGenerator(4), time.Hour)
	a, b := m.Create(), m.Create()
	require.NotEqual(t, a.ID, b.ID)

	require.NoError(t, a.StartRun(validRequest(models.SceneCountFour)))
	waitForState(t, a, models.RunSettled)

	assert.Equal(t, models.RunIdle, b.State())
	assert.Nil(t, b.Campaign())
}

func TestReapIdle(t *testing.T) {
	gen := newFakeGenerator(4)
	gen.gate = make(chan struct{})
	defer close(gen.gate)

	m := newTestManager(gen, time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }

	idle := m.Create()
	busy := m.Create()
	require.NoError(t, busy.StartRun(validRequest(models.SceneCountFour)))
	waitForState(t, busy, models.RunScenesRendering)

	// nothing is old enough yet
	assert.Zero(t, m.ReapIdle())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, m.ReapIdle())

	_, err := m.Get(idle.ID)
	assert.True(t, apperrors.IsNotFoundError(err))
	_, err = m.Get(busy.ID)
	assert.NoError(t, err)
}

func TestReapIdleKeepsSessionsWithListeners(t *testing.T) {
	m := newTestManager(newFakeGenerator(4), time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now.Add(time.Hour) }

	s := m.Create()
	events := s.Subscribe()

	assert.Zero(t, m.ReapIdle())
	_, err := m.Get(s.ID)
	require.NoError(t, err)

	s.Unsubscribe(events)
	assert.Equal(t, 1, m.ReapIdle())
}

func TestReapIdleKeepsPolledSessions(t *testing.T) {
	m := newTestManager(newFakeGenerator(4), time.Minute)

	polled := m.Create()
	forgotten := m.Create()
	for _, s := range []*Session{polled, forgotten} {
		s.mu.Lock()
		s.updatedAt = time.Now().Add(-2 * time.Minute)
		s.mu.Unlock()
	}

	polled.Snapshot()
	assert.Equal(t, 1, m.ReapIdle())

	_, err := m.Get(polled.ID)
	assert.NoError(t, err)
	_, err = m.Get(forgotten.ID)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestDeleteClosesSubscribers(t *testing.T) {
	m := newTestManager(newFakeGenerator(4), time.Minute)
	s := m.Create()
	events := s.Subscribe()

	require.NoError(t, m.Delete(s.ID))
	_, open := <-events
	assert.False(t, open)
}

func TestStartReaperRejectsBadSchedule(t *testing.T) {
	m := newTestManager(newFakeGenerator(4), time.Minute)
	assert.Error(t, m.StartReaper("every now and then"))

	require.NoError(t, m.StartReaper("@every 1h"))
	m.Create()
	m.Shutdown()
	assert.Zero(t, m.Count())
}
