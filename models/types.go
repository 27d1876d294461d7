package models

import (
	"encoding/base64"
	"time"
)

// EncodedAsset is a binary asset tagged with its media type, ready to be sent to the model backend
type EncodedAsset struct {
	Data     []byte
	MimeType string
}

// Base64 returns the standard base64 encoding of the asset bytes
func (a *EncodedAsset) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// GenerationRequest is the input bundle for one orchestration run
type GenerationRequest struct {
	ProductDescription string
	SceneCount         SceneCount
	Voice              string
	Language           string
	MusicStyle         string
	AspectRatio        AspectRatio
	ProductImage       *EncodedAsset
	ModelImage         *EncodedAsset // optional
	ReferenceImage     *EncodedAsset // optional
}

// SceneDraft is one scene of a synthesized script
type SceneDraft struct {
	VisualPrompt string `json:"visualPrompt" jsonschema_description:"Detailed prompt for an image generator: lighting, camera angle, subject; must describe the product exactly as it appears in the product image."`
	VideoPrompt  string `json:"videoPrompt" jsonschema_description:"Prompt for an AI video generator describing motion and action, e.g. slow motion pan or zoom in."`
	Narration    string `json:"narration" jsonschema_description:"Voiceover script for this scene, written in the requested language."`
}

// ScriptDraft is the result of script synthesis
type ScriptDraft struct {
	Title               string       `json:"title" jsonschema_description:"A catchy title for the campaign."`
	Hook                string       `json:"hook" jsonschema_description:"A one-sentence hook."`
	MusicRecommendation string       `json:"musicRecommendation" jsonschema_description:"A royalty-free background music track or search term that fits the requested music vibe."`
	Scenes              []SceneDraft `json:"scenes"`
}

// AssetStatus is the lifecycle of one scene asset
type AssetStatus string

const (
	AssetPending AssetStatus = "pending"
	AssetReady   AssetStatus = "ready"
	AssetFailed  AssetStatus = "failed"
)

// AssetKind names one of the two per-scene assets
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetAudio AssetKind = "audio"
)

// Asset is the state of one generated scene asset. Data is only set when Status is ready.
type Asset struct {
	Status   AssetStatus `json:"status"`
	MimeType string      `json:"mime_type,omitempty"`
	Data     []byte      `json:"-"`
	Size     int         `json:"size,omitempty"`
}

// Resolved reports whether the asset reached ready or failed. An unset status counts as pending.
func (a Asset) Resolved() bool {
	return a.Status == AssetReady || a.Status == AssetFailed
}

// Scene is the mutable unit of orchestration
type Scene struct {
	ID           int    `json:"id"`
	VisualPrompt string `json:"visual_prompt"`
	VideoPrompt  string `json:"video_prompt"`
	Narration    string `json:"narration"`
	Image        Asset  `json:"image"`
	Audio        Asset  `json:"audio"`
}

// Asset returns the scene's asset of the given kind
func (s *Scene) Asset(kind AssetKind) *Asset {
	if kind == AssetImage {
		return &s.Image
	}
	return &s.Audio
}

// Campaign is the full generated ad
type Campaign struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Hook                string    `json:"hook"`
	MusicRecommendation string    `json:"music_recommendation"`
	Scenes              []Scene   `json:"scenes"`
	CreatedAt           time.Time `json:"created_at"`
}

// Settled reports whether every scene has both assets resolved
func (c *Campaign) Settled() bool {
	for _, s := range c.Scenes {
		if !s.Image.Resolved() || !s.Audio.Resolved() {
			return false
		}
	}
	return true
}

// AllAudioResolved reports whether no scene still waits for narration audio
func (c *Campaign) AllAudioResolved() bool {
	for _, s := range c.Scenes {
		if !s.Audio.Resolved() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy safe to hand to readers
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	out := *c
	out.Scenes = make([]Scene, len(c.Scenes))
	for i, s := range c.Scenes {
		s.Image.Data = cloneBytes(s.Image.Data)
		s.Audio.Data = cloneBytes(s.Audio.Data)
		out.Scenes[i] = s
	}
	return &out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// RunState is the orchestration state of a session
type RunState string

const (
	RunIdle            RunState = "idle"
	RunScriptPending   RunState = "script_pending"
	RunScenesRendering RunState = "scenes_rendering"
	RunSettled         RunState = "settled"
)

// PlaybackMode is the state of the playback sequencer
type PlaybackMode string

const (
	PlaybackIdle       PlaybackMode = "idle"
	PlaybackPlayingOne PlaybackMode = "playing_one"
	PlaybackPlayingAll PlaybackMode = "playing_all"
)

// PlaybackState is a snapshot of the sequencer
type PlaybackState struct {
	Mode    PlaybackMode `json:"mode"`
	SceneID *int         `json:"scene_id,omitempty"`
	Cursor  *int         `json:"cursor,omitempty"`
}

// SessionSnapshot is the read-only view returned to the presentation layer
type SessionSnapshot struct {
	SessionID        string        `json:"session_id"`
	State            RunState      `json:"state"`
	Campaign         *Campaign     `json:"campaign,omitempty"`
	LastError        *string       `json:"last_error,omitempty"`
	Settled          bool          `json:"settled"`
	AllAudioResolved bool          `json:"all_audio_resolved"`
	Playback         PlaybackState `json:"playback"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Event is a change notification pushed to session subscribers
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	SceneID   *int      `json:"scene_id,omitempty"`
	Kind      AssetKind `json:"kind,omitempty"`
	Status    string    `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	Time      time.Time `json:"time"`
}

const (
	EventRunStarted      = "run.started"
	EventRunFailed       = "run.failed"
	EventRunReset        = "run.reset"
	EventSkeleton        = "campaign.skeleton"
	EventAssetMerged     = "campaign.asset"
	EventSettled         = "campaign.settled"
	EventPlaybackStarted = "playback.started"
	EventPlaybackStopped = "playback.stopped"
	EventPlaybackSkipped = "playback.skipped"
)

// CreateSessionResponse returns the new session ID
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// StartRunResponse acknowledges an accepted run
type StartRunResponse struct {
	SessionID string   `json:"session_id"`
	State     RunState `json:"state"`
}
