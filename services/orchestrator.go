package services

import (
	"adstudio/apperrors"
	"adstudio/models"
	"adstudio/utils"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AudioFormat describes the raw PCM returned by the speech model
type AudioFormat struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultAudioFormat is 24 kHz mono 16-bit PCM
var DefaultAudioFormat = AudioFormat{SampleRate: 24000, Channels: 1, BitsPerSample: 16}

// taskKey identifies one (scene, asset kind) cell of a campaign
type taskKey struct {
	SceneID int
	Kind    models.AssetKind
}

// taskHandle is an outstanding asset request
type taskHandle struct {
	key       taskKey
	run       uint64
	startedAt time.Time
	cancel    context.CancelFunc
}

// TaskInfo describes an outstanding asset request
type TaskInfo struct {
	SceneID   int              `json:"scene_id"`
	Kind      models.AssetKind `json:"kind"`
	StartedAt time.Time        `json:"started_at"`
}

// assetOutcome is the result of one asset request, success or failure
type assetOutcome struct {
	SceneID int
	Kind    models.AssetKind
	Asset   *models.EncodedAsset
	Err     error
}

// Session owns one campaign and drives its generation run
type Session struct {
	ID string

	newGenerator GeneratorFactory
	audioFormat  AudioFormat
	playback     *Sequencer

	mu          sync.Mutex
	state       models.RunState
	campaign    *models.Campaign
	lastError   *string
	run         uint64
	runStop     context.CancelFunc
	tasks       map[taskKey]*taskHandle
	subscribers map[chan models.Event]struct{}
	updatedAt   time.Time
	seenAt      time.Time
}

// NewSession creates an idle session. player may be nil, in which case a ClockPlayer is used.
func NewSession(id string, newGenerator GeneratorFactory, audioFormat AudioFormat, player Player) *Session {
	if player == nil {
		player = NewClockPlayer()
	}

	s := &Session{
		ID:           id,
		newGenerator: newGenerator,
		audioFormat:  audioFormat,
		state:        models.RunIdle,
		tasks:        make(map[taskKey]*taskHandle),
		subscribers:  make(map[chan models.Event]struct{}),
		updatedAt:    time.Now(),
	}
	s.playback = NewSequencer(player, s.tracks, s.notify)
	return s
}

// StartRun validates req and begins a generation run in the background.
// Precondition failures are returned synchronously and leave the session untouched.
func (s *Session) StartRun(req *models.GenerationRequest) error {
	if req == nil {
		return apperrors.NewValidationError("generation request is required", nil)
	}
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), err)
	}

	s.mu.Lock()
	if s.state == models.RunScriptPending || s.state == models.RunScenesRendering {
		s.mu.Unlock()
		return apperrors.NewConflictError(fmt.Sprintf("a run is already %s", s.state), nil)
	}
	s.mu.Unlock()

	gen, err := s.newGenerator()
	if err != nil {
		return err
	}

	// a settled campaign is discarded in full before the next run
	s.playback.Stop()

	s.mu.Lock()
	if s.state == models.RunScriptPending || s.state == models.RunScenesRendering {
		s.mu.Unlock()
		return apperrors.NewConflictError(fmt.Sprintf("a run is already %s", s.state), nil)
	}
	s.run++
	run := s.run
	ctx, cancel := context.WithCancel(context.Background())
	s.runStop = cancel
	s.state = models.RunScriptPending
	s.campaign = nil
	s.lastError = nil
	s.touch()
	s.publish(models.Event{Type: models.EventRunStarted, Status: string(models.RunScriptPending)})
	s.mu.Unlock()

	log.Printf("[Session %s] Run %d started: %d scenes, voice %s, aspect %s",
		s.ID, run, req.SceneCount, req.Voice, req.AspectRatio)

	go s.synthesize(ctx, run, gen, req)
	return nil
}

// synthesize runs the script phase and fans out the asset requests
func (s *Session) synthesize(ctx context.Context, run uint64, gen Generator, req *models.GenerationRequest) {
	draft, err := gen.SynthesizeScript(ctx, req)

	s.mu.Lock()
	if run != s.run {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.stopRunLocked()
		msg := fmt.Sprintf("Failed to generate script: %v", err)
		s.state = models.RunIdle
		s.campaign = nil
		s.lastError = &msg
		s.touch()
		s.publish(models.Event{Type: models.EventRunFailed, Message: msg})
		s.mu.Unlock()
		log.Printf("[Session %s] Run %d FAILED: %v", s.ID, run, err)
		return
	}

	if len(draft.Scenes) != int(req.SceneCount) {
		log.Printf("[Session %s] Script returned %d scenes, %d requested", s.ID, len(draft.Scenes), req.SceneCount)
	}

	s.campaign = newSkeleton(draft)
	s.state = models.RunScenesRendering
	s.touch()

	type pending struct {
		h   *taskHandle
		ctx context.Context
	}
	launches := make([]pending, 0, 2*len(s.campaign.Scenes))
	for _, scene := range s.campaign.Scenes {
		for _, kind := range []models.AssetKind{models.AssetImage, models.AssetAudio} {
			taskCtx, cancel := context.WithCancel(ctx)
			h := &taskHandle{
				key:       taskKey{SceneID: scene.ID, Kind: kind},
				run:       run,
				startedAt: time.Now(),
				cancel:    cancel,
			}
			s.tasks[h.key] = h
			launches = append(launches, pending{h: h, ctx: taskCtx})
		}
	}
	scenes := s.campaign.Clone().Scenes
	s.publish(models.Event{Type: models.EventSkeleton, Status: string(models.RunScenesRendering)})
	s.mu.Unlock()

	log.Printf("[Session %s] Script ready: %q with %d scenes", s.ID, draft.Title, len(scenes))

	for _, p := range launches {
		go s.render(p.ctx, p.h, gen, scenes[p.h.key.SceneID], req)
	}
}

// render performs one asset request and merges its outcome
func (s *Session) render(ctx context.Context, h *taskHandle, gen Generator, scene models.Scene, req *models.GenerationRequest) {
	defer h.cancel()

	outcome := assetOutcome{SceneID: h.key.SceneID, Kind: h.key.Kind}

	switch h.key.Kind {
	case models.AssetImage:
		outcome.Asset, outcome.Err = gen.SynthesizeImage(ctx, scene.VisualPrompt, req.AspectRatio, req.ProductImage)
	case models.AssetAudio:
		pcm, err := gen.SynthesizeAudio(ctx, scene.Narration, req.Voice)
		if err != nil {
			outcome.Err = err
		} else {
			outcome.Asset = &models.EncodedAsset{
				Data:     utils.FrameWAV(pcm, s.audioFormat.SampleRate, s.audioFormat.Channels, s.audioFormat.BitsPerSample),
				MimeType: "audio/wav",
			}
		}
	}

	if outcome.Err != nil {
		log.Printf("[Session %s] Scene %d %s failed: %v", s.ID, scene.ID, h.key.Kind, outcome.Err)
	}
	s.merge(h, outcome)
}

// merge applies an outcome to the current campaign. Outcomes from an abandoned run are dropped.
func (s *Session) merge(h *taskHandle, outcome assetOutcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.tasks[h.key]; ok && current == h {
		delete(s.tasks, h.key)
	}
	if h.run != s.run || s.campaign == nil {
		return false
	}

	if !mergeOutcome(s.campaign, outcome) {
		return false
	}
	s.touch()

	sceneID := outcome.SceneID
	cell := s.campaign.Scenes[sceneID].Asset(outcome.Kind)
	s.publish(models.Event{
		Type:    models.EventAssetMerged,
		SceneID: &sceneID,
		Kind:    outcome.Kind,
		Status:  string(cell.Status),
	})

	if s.state == models.RunScenesRendering && s.campaign.Settled() {
		s.state = models.RunSettled
		s.stopRunLocked()
		s.publish(models.Event{Type: models.EventSettled, Status: string(models.RunSettled)})
		log.Printf("[Session %s] Campaign %s settled", s.ID, s.campaign.ID)
	}
	return true
}

// mergeOutcome sets the single (scene, kind) cell named by o. It touches no other cell
// and refuses to move a cell that already left pending.
func mergeOutcome(c *models.Campaign, o assetOutcome) bool {
	if o.SceneID < 0 || o.SceneID >= len(c.Scenes) {
		return false
	}
	cell := c.Scenes[o.SceneID].Asset(o.Kind)
	if cell.Resolved() {
		return false
	}

	if o.Err != nil || o.Asset == nil || len(o.Asset.Data) == 0 {
		*cell = models.Asset{Status: models.AssetFailed}
		return true
	}

	*cell = models.Asset{
		Status:   models.AssetReady,
		MimeType: o.Asset.MimeType,
		Data:     o.Asset.Data,
		Size:     len(o.Asset.Data),
	}
	return true
}

// newSkeleton builds a campaign with one pending scene per draft scene, ids matching positions
func newSkeleton(draft *models.ScriptDraft) *models.Campaign {
	scenes := make([]models.Scene, len(draft.Scenes))
	for i, d := range draft.Scenes {
		scenes[i] = models.Scene{
			ID:           i,
			VisualPrompt: d.VisualPrompt,
			VideoPrompt:  d.VideoPrompt,
			Narration:    d.Narration,
			Image:        models.Asset{Status: models.AssetPending},
			Audio:        models.Asset{Status: models.AssetPending},
		}
	}

	return &models.Campaign{
		ID:                  uuid.New().String(),
		Title:               draft.Title,
		Hook:                draft.Hook,
		MusicRecommendation: draft.MusicRecommendation,
		Scenes:              scenes,
		CreatedAt:           time.Now(),
	}
}

// Reset discards the campaign, abandons outstanding requests and returns to idle
func (s *Session) Reset() {
	s.playback.Stop()

	s.mu.Lock()
	abandoned := s.abandonLocked()
	s.run++
	s.state = models.RunIdle
	s.campaign = nil
	s.lastError = nil
	s.touch()
	s.publish(models.Event{Type: models.EventRunReset, Status: string(models.RunIdle)})
	s.mu.Unlock()

	if abandoned > 0 {
		log.Printf("[Session %s] Reset abandoned %d outstanding requests", s.ID, abandoned)
	}
}

// stopRunLocked releases the context shared by the run's requests
func (s *Session) stopRunLocked() {
	if s.runStop != nil {
		s.runStop()
		s.runStop = nil
	}
}

// abandonLocked cancels the script request and every outstanding asset request
func (s *Session) abandonLocked() int {
	s.stopRunLocked()
	n := len(s.tasks)
	for key, h := range s.tasks {
		h.cancel()
		delete(s.tasks, key)
	}
	return n
}

// Outstanding lists the asset requests that have not merged yet, ordered by scene then kind
func (s *Session) Outstanding() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskInfo, 0, len(s.tasks))
	if s.campaign == nil {
		return out
	}
	for _, scene := range s.campaign.Scenes {
		for _, kind := range []models.AssetKind{models.AssetImage, models.AssetAudio} {
			if h, ok := s.tasks[taskKey{SceneID: scene.ID, Kind: kind}]; ok {
				out = append(out, TaskInfo{SceneID: scene.ID, Kind: kind, StartedAt: h.startedAt})
			}
		}
	}
	return out
}

// State returns the current run state
func (s *Session) State() models.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Campaign returns a deep copy of the current campaign, or nil
func (s *Session) Campaign() *models.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaign.Clone()
}

// Snapshot returns a consistent read-only view of the session
func (s *Session) Snapshot() models.SessionSnapshot {
	playback := s.playback.State()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seenAt = time.Now()

	snap := models.SessionSnapshot{
		SessionID: s.ID,
		State:     s.state,
		Campaign:  s.campaign.Clone(),
		Playback:  playback,
		UpdatedAt: s.updatedAt,
	}
	if s.lastError != nil {
		msg := *s.lastError
		snap.LastError = &msg
	}
	if s.campaign != nil {
		snap.Settled = s.campaign.Settled()
		snap.AllAudioResolved = s.campaign.AllAudioResolved()
	}
	return snap
}

// SceneAsset returns a copy of one ready scene asset
func (s *Session) SceneAsset(sceneID int, kind models.AssetKind) (*models.EncodedAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.campaign == nil {
		return nil, apperrors.NewNotFoundError("no campaign has been generated", nil)
	}
	if sceneID < 0 || sceneID >= len(s.campaign.Scenes) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("scene %d not found", sceneID), nil)
	}

	cell := s.campaign.Scenes[sceneID].Asset(kind)
	switch cell.Status {
	case models.AssetReady:
		data := make([]byte, len(cell.Data))
		copy(data, cell.Data)
		return &models.EncodedAsset{Data: data, MimeType: cell.MimeType}, nil
	case models.AssetFailed:
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("scene %d %s failed to generate", sceneID, kind), nil)
	default:
		return nil, apperrors.NewConflictError(fmt.Sprintf("scene %d %s is still pending", sceneID, kind), nil)
	}
}

// Playback returns the session's playback sequencer
func (s *Session) Playback() *Sequencer {
	return s.playback
}

// tracks lists the scenes in order with their narration audio, for the sequencer
func (s *Session) tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.campaign == nil {
		return nil
	}
	tracks := make([]Track, len(s.campaign.Scenes))
	for i, scene := range s.campaign.Scenes {
		tracks[i] = Track{SceneID: scene.ID, Ready: scene.Audio.Status == models.AssetReady, Audio: scene.Audio.Data}
	}
	return tracks
}

// Busy reports whether a run is in flight, audio is playing or a listener is attached
func (s *Session) Busy() bool {
	if s.playback.State().Mode != models.PlaybackIdle {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subscribers) > 0 {
		return true
	}
	return s.state == models.RunScriptPending || s.state == models.RunScenesRendering
}

// LastActivity returns when the session last changed or was last read
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenAt.After(s.updatedAt) {
		return s.seenAt
	}
	return s.updatedAt
}

// Close abandons any run, stops playback and closes every subscriber channel
func (s *Session) Close() {
	s.playback.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.abandonLocked()
	s.run++
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Subscribe registers a change listener. Slow listeners miss events rather than block merges.
func (s *Session) Subscribe() chan models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan models.Event, 64)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a listener registered with Subscribe
func (s *Session) Unsubscribe(ch chan models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// notify publishes an event from outside the session lock
func (s *Session) notify(event models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(event)
}

// publish fans an event out to subscribers. Must be called with s.mu held.
func (s *Session) publish(event models.Event) {
	event.SessionID = s.ID
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}
