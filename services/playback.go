package services

import (
	"adstudio/apperrors"
	"adstudio/models"
	"context"
	"fmt"
	"log"
	"sync"
)

// Track is one scene as seen by the sequencer
type Track struct {
	SceneID int
	Ready   bool
	Audio   []byte
}

// TrackSource returns the current scenes in order
type TrackSource func() []Track

// Sequencer plays scene narration one at a time, either a single scene or the whole campaign.
// Every playback is tagged with a token; a continuation whose token is no longer current does nothing.
type Sequencer struct {
	player Player
	source TrackSource
	notify func(models.Event)

	mu      sync.Mutex
	mode    models.PlaybackMode
	sceneID int
	cursor  int
	token   uint64
	cancel  context.CancelFunc
}

// NewSequencer creates an idle sequencer. notify may be nil.
func NewSequencer(player Player, source TrackSource, notify func(models.Event)) *Sequencer {
	if notify == nil {
		notify = func(models.Event) {}
	}
	return &Sequencer{
		player: player,
		source: source,
		notify: notify,
		mode:   models.PlaybackIdle,
	}
}

// PlayOne plays a single scene. Calling it for the scene that is already playing stops playback.
func (q *Sequencer) PlayOne(sceneID int) error {
	q.mu.Lock()
	if q.mode == models.PlaybackPlayingOne && q.sceneID == sceneID {
		q.stopLocked()
		q.mu.Unlock()
		q.emit(models.EventPlaybackStopped, &sceneID)
		return nil
	}
	q.mu.Unlock()

	track, err := q.find(sceneID)
	if err != nil {
		return err
	}

	q.mu.Lock()
	preempted := q.preemptLocked()
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.mode = models.PlaybackPlayingOne
	q.sceneID = sceneID
	token := q.token
	q.mu.Unlock()

	preempted()
	q.emit(models.EventPlaybackStarted, &sceneID)
	go q.playOne(ctx, token, track)
	return nil
}

func (q *Sequencer) playOne(ctx context.Context, token uint64, track Track) {
	if err := q.player.Play(ctx, track.Audio); err != nil && ctx.Err() == nil {
		log.Printf("Playback of scene %d failed: %v", track.SceneID, err)
	}

	q.mu.Lock()
	if q.token != token {
		q.mu.Unlock()
		return
	}
	q.stopLocked()
	q.mu.Unlock()

	q.emit(models.EventPlaybackStopped, &track.SceneID)
}

// PlayAll plays every scene with ready audio in order. Calling it during a full playback stops it.
func (q *Sequencer) PlayAll() error {
	q.mu.Lock()
	if q.mode == models.PlaybackPlayingAll {
		q.stopLocked()
		q.mu.Unlock()
		q.emit(models.EventPlaybackStopped, nil)
		return nil
	}

	preempted := q.preemptLocked()
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.mode = models.PlaybackPlayingAll
	q.cursor = 0
	token := q.token
	q.mu.Unlock()

	preempted()
	q.emit(models.EventPlaybackStarted, nil)
	go q.playAll(ctx, token)
	return nil
}

func (q *Sequencer) playAll(ctx context.Context, token uint64) {
	for i := 0; ; i++ {
		tracks := q.source()

		q.mu.Lock()
		if q.token != token {
			q.mu.Unlock()
			return
		}
		if i >= len(tracks) {
			q.stopLocked()
			q.mu.Unlock()
			q.emit(models.EventPlaybackStopped, nil)
			return
		}
		q.cursor = i
		q.mu.Unlock()

		track := tracks[i]
		if !track.Ready {
			q.emit(models.EventPlaybackSkipped, &track.SceneID)
			continue
		}

		err := q.player.Play(ctx, track.Audio)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// an engine failure counts as missing audio
			log.Printf("Playback of scene %d failed, skipping: %v", track.SceneID, err)
			q.emit(models.EventPlaybackSkipped, &track.SceneID)
		}
	}
}

// Stop halts any active playback. It is a no-op when idle.
func (q *Sequencer) Stop() {
	q.mu.Lock()
	wasActive := q.mode != models.PlaybackIdle
	q.stopLocked()
	q.mu.Unlock()

	if wasActive {
		q.emit(models.EventPlaybackStopped, nil)
	}
}

// preemptLocked stops the active playback and returns a func that announces the stop
// once the lock is released. The func does nothing when the sequencer was idle.
func (q *Sequencer) preemptLocked() func() {
	mode, sceneID := q.mode, q.sceneID
	q.stopLocked()

	switch mode {
	case models.PlaybackPlayingOne:
		return func() { q.emit(models.EventPlaybackStopped, &sceneID) }
	case models.PlaybackPlayingAll:
		return func() { q.emit(models.EventPlaybackStopped, nil) }
	default:
		return func() {}
	}
}

// stopLocked cancels the active playback and invalidates its continuations
func (q *Sequencer) stopLocked() {
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.token++
	q.mode = models.PlaybackIdle
	q.sceneID = 0
	q.cursor = 0
}

// State returns a snapshot of the sequencer
func (q *Sequencer) State() models.PlaybackState {
	q.mu.Lock()
	defer q.mu.Unlock()

	state := models.PlaybackState{Mode: q.mode}
	switch q.mode {
	case models.PlaybackPlayingOne:
		id := q.sceneID
		state.SceneID = &id
	case models.PlaybackPlayingAll:
		cursor := q.cursor
		state.Cursor = &cursor
	}
	return state
}

func (q *Sequencer) find(sceneID int) (Track, error) {
	for _, t := range q.source() {
		if t.SceneID != sceneID {
			continue
		}
		if !t.Ready {
			return Track{}, apperrors.NewConflictError(fmt.Sprintf("scene %d has no audio to play", sceneID), nil)
		}
		return t, nil
	}
	return Track{}, apperrors.NewNotFoundError(fmt.Sprintf("scene %d not found", sceneID), nil)
}

func (q *Sequencer) emit(eventType string, sceneID *int) {
	q.notify(models.Event{Type: eventType, SceneID: sceneID})
}
