package services

import (
	"adstudio/utils"
	"context"
	"fmt"
	"time"
)

// Player is an audio engine. Play blocks until the audio finishes or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, wav []byte) error
}

// ClockPlayer is a headless engine that holds the playback slot for the length of the clip.
// Remote clients follow along through playback events.
type ClockPlayer struct {
	// Speed scales playback time; 0 means real time
	Speed float64
}

// NewClockPlayer creates a real-time ClockPlayer
func NewClockPlayer() *ClockPlayer {
	return &ClockPlayer{Speed: 1}
}

// Play waits for the clip duration read from the WAV header
func (p *ClockPlayer) Play(ctx context.Context, wav []byte) error {
	duration, err := utils.WAVDuration(wav)
	if err != nil {
		return fmt.Errorf("unplayable audio: %w", err)
	}
	if p.Speed > 0 && p.Speed != 1 {
		duration = time.Duration(float64(duration) / p.Speed)
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
