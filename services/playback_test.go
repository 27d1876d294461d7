package services

import (
	"adstudio/apperrors"
	"adstudio/models"
	"adstudio/utils"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPlayer records the first byte of every clip it plays. Clips in block never
// finish on their own; clips in fail return an engine error.
type recordingPlayer struct {
	mu     sync.Mutex
	played []int
	block  map[int]bool
	fail   map[int]bool
}

func (p *recordingPlayer) Play(ctx context.Context, wav []byte) error {
	id := int(wav[0])
	p.mu.Lock()
	p.played = append(p.played, id)
	block, fail := p.block[id], p.fail[id]
	p.mu.Unlock()

	if fail {
		return errors.New("device unavailable")
	}
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *recordingPlayer) history() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.played...)
}

// gatedPlayer ignores cancellation and returns only when released, like an engine
// whose completion callback fires after stop was requested
type gatedPlayer struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (p *gatedPlayer) Play(ctx context.Context, wav []byte) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	<-p.release
	return nil
}

func (p *gatedPlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// staticTracks builds n tracks whose audio is the scene id; ids in missing have no audio
func staticTracks(n int, missing ...int) TrackSource {
	skip := map[int]bool{}
	for _, id := range missing {
		skip[id] = true
	}
	return func() []Track {
		tracks := make([]Track, n)
		for i := range tracks {
			tracks[i] = Track{SceneID: i, Ready: !skip[i], Audio: []byte{byte(i)}}
		}
		return tracks
	}
}

func waitIdle(t *testing.T, q *Sequencer) {
	t.Helper()
	require.Eventually(t, func() bool { return q.State().Mode == models.PlaybackIdle }, time.Second, 2*time.Millisecond)
}

func TestPlayOneTogglesOff(t *testing.T) {
	player := &recordingPlayer{block: map[int]bool{1: true}}
	q := NewSequencer(player, staticTracks(3), nil)

	require.NoError(t, q.PlayOne(1))
	state := q.State()
	assert.Equal(t, models.PlaybackPlayingOne, state.Mode)
	require.NotNil(t, state.SceneID)
	assert.Equal(t, 1, *state.SceneID)
	require.Eventually(t, func() bool { return len(player.history()) == 1 }, time.Second, 2*time.Millisecond)

	require.NoError(t, q.PlayOne(1))
	assert.Equal(t, models.PlaybackIdle, q.State().Mode)
	assert.Never(t, func() bool { return q.State().Mode != models.PlaybackIdle }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestPlayOneReplacesActivePlayback(t *testing.T) {
	player := &recordingPlayer{block: map[int]bool{0: true, 2: true}}
	q := NewSequencer(player, staticTracks(3), nil)

	require.NoError(t, q.PlayOne(0))
	require.NoError(t, q.PlayOne(2))

	state := q.State()
	assert.Equal(t, models.PlaybackPlayingOne, state.Mode)
	assert.Equal(t, 2, *state.SceneID)

	q.Stop()
	assert.Equal(t, models.PlaybackIdle, q.State().Mode)
}

// eventLog records sequencer events as "type:scene"
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) record(e models.Event) {
	entry := e.Type
	if e.SceneID != nil {
		entry = fmt.Sprintf("%s:%d", e.Type, *e.SceneID)
	}
	l.mu.Lock()
	l.events = append(l.events, entry)
	l.mu.Unlock()
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func TestPreemptedPlaybackAnnouncesStop(t *testing.T) {
	player := &recordingPlayer{block: map[int]bool{0: true, 1: true, 2: true}}
	recorded := &eventLog{}
	q := NewSequencer(player, staticTracks(3), recorded.record)

	require.NoError(t, q.PlayOne(0))
	require.NoError(t, q.PlayOne(2))
	require.NoError(t, q.PlayAll())
	require.NoError(t, q.PlayOne(1))
	q.Stop()

	assert.Equal(t, []string{
		"playback.started:0",
		"playback.stopped:0",
		"playback.started:2",
		"playback.stopped:2",
		"playback.started",
		"playback.stopped",
		"playback.started:1",
		"playback.stopped",
	}, recorded.list())
}

func TestPlayOneReturnsToIdleOnCompletion(t *testing.T) {
	player := &recordingPlayer{}
	q := NewSequencer(player, staticTracks(3), nil)

	require.NoError(t, q.PlayOne(2))
	waitIdle(t, q)
	assert.Equal(t, []int{2}, player.history())
}

func TestPlayOneRejectsUnplayableScenes(t *testing.T) {
	q := NewSequencer(&recordingPlayer{}, staticTracks(3, 1), nil)

	err := q.PlayOne(1)
	assert.True(t, apperrors.IsConflictError(err))

	err = q.PlayOne(7)
	assert.True(t, apperrors.IsNotFoundError(err))

	assert.Equal(t, models.PlaybackIdle, q.State().Mode)
}

func TestPlayAllSkipsScenesWithoutAudio(t *testing.T) {
	player := &recordingPlayer{}
	q := NewSequencer(player, staticTracks(5, 2), nil)

	require.NoError(t, q.PlayAll())
	waitIdle(t, q)

	assert.Equal(t, []int{0, 1, 3, 4}, player.history())
}

func TestPlayAllAdvancesPastEngineFailure(t *testing.T) {
	player := &recordingPlayer{fail: map[int]bool{1: true}}
	var mu sync.Mutex
	var skipped []int
	q := NewSequencer(player, staticTracks(3), func(e models.Event) {
		if e.Type == models.EventPlaybackSkipped {
			mu.Lock()
			skipped = append(skipped, *e.SceneID)
			mu.Unlock()
		}
	})

	require.NoError(t, q.PlayAll())
	waitIdle(t, q)

	assert.Equal(t, []int{0, 1, 2}, player.history())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1}, skipped)
}

func TestPlayAllTogglesOff(t *testing.T) {
	player := &recordingPlayer{block: map[int]bool{0: true}}
	q := NewSequencer(player, staticTracks(3), nil)

	require.NoError(t, q.PlayAll())
	state := q.State()
	assert.Equal(t, models.PlaybackPlayingAll, state.Mode)
	require.NotNil(t, state.Cursor)

	require.NoError(t, q.PlayAll())
	assert.Equal(t, models.PlaybackIdle, q.State().Mode)

	assert.Never(t, func() bool { return len(player.history()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestStopPreventsStaleContinuation(t *testing.T) {
	player := &gatedPlayer{release: make(chan struct{})}
	q := NewSequencer(player, staticTracks(3), nil)

	require.NoError(t, q.PlayAll())
	require.Eventually(t, func() bool { return player.count() == 1 }, time.Second, 2*time.Millisecond)

	q.Stop()
	assert.Equal(t, models.PlaybackIdle, q.State().Mode)

	// the first clip "finishes" after stop; its continuation must not advance to scene 1
	close(player.release)
	assert.Never(t, func() bool { return player.count() > 1 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, models.PlaybackIdle, q.State().Mode)
}

func TestStaleContinuationDoesNotEndNewPlayback(t *testing.T) {
	player := &gatedPlayer{release: make(chan struct{})}
	q := NewSequencer(player, staticTracks(3), nil)

	require.NoError(t, q.PlayOne(0))
	require.Eventually(t, func() bool { return player.count() == 1 }, time.Second, 2*time.Millisecond)

	require.NoError(t, q.PlayOne(1))
	require.Eventually(t, func() bool { return player.count() == 2 }, time.Second, 2*time.Millisecond)

	state := q.State()
	assert.Equal(t, models.PlaybackPlayingOne, state.Mode)
	assert.Equal(t, 1, *state.SceneID)

	close(player.release)
	waitIdle(t, q)
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	events := 0
	q := NewSequencer(&recordingPlayer{}, staticTracks(0), func(models.Event) { events++ })

	q.Stop()
	q.Stop()

	assert.Equal(t, models.PlaybackIdle, q.State().Mode)
	assert.Zero(t, events)
}

func TestPlayAllOnEmptyCampaignEndsImmediately(t *testing.T) {
	player := &recordingPlayer{}
	q := NewSequencer(player, staticTracks(0), nil)

	require.NoError(t, q.PlayAll())
	waitIdle(t, q)
	assert.Empty(t, player.history())
}

func TestClockPlayer(t *testing.T) {
	// 10ms of 24 kHz mono 16-bit audio
	short := utils.FrameWAV(make([]byte, 480), 24000, 1, 16)
	// 10s
	long := utils.FrameWAV(make([]byte, 480000), 24000, 1, 16)

	p := NewClockPlayer()

	t.Run("Plays to completion", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, p.Play(context.Background(), short))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("Stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		err := p.Play(ctx, long)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Rejects non-WAV data", func(t *testing.T) {
		assert.Error(t, p.Play(context.Background(), []byte("not audio")))
	})
}

func TestSessionPlaybackFollowsCampaign(t *testing.T) {
	gen := newFakeGenerator(4)
	gen.failAudio[2] = true
	player := &wavPlayer{}
	s := NewSession("test", gen.factory(), DefaultAudioFormat, player)

	require.NoError(t, s.StartRun(validRequest(models.SceneCountFour)))
	waitForState(t, s, models.RunSettled)

	require.NoError(t, s.Playback().PlayAll())
	waitIdle(t, s.Playback())

	assert.Equal(t, []int{0, 1, 3}, player.history())
}

// wavPlayer records the first sample byte of each framed clip
type wavPlayer struct {
	recordingPlayer
}

func (p *wavPlayer) Play(ctx context.Context, wav []byte) error {
	return p.recordingPlayer.Play(ctx, wav[utils.WAVHeaderSize:])
}
