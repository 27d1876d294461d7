package services

import (
	"adstudio/apperrors"
	"adstudio/models"
	"adstudio/utils"
	"fmt"
	"strings"
)

// SubtitleCue is one timed subtitle line
type SubtitleCue struct {
	SceneID int
	Start   float64
	End     float64
	Text    string
}

// SceneTiming is the on-screen duration of one scene
type SceneTiming struct {
	SceneID  int
	Start    float64
	Duration float64
}

// SceneTimings lays the scenes end to end. A scene lasts as long as its narration audio,
// or the estimated speaking time when the audio is not ready.
func (tp *TextProcessor) SceneTimings(campaign *models.Campaign) []SceneTiming {
	timings := make([]SceneTiming, 0, len(campaign.Scenes))
	offset := 0.0
	for _, scene := range campaign.Scenes {
		duration := 0.0
		if scene.Audio.Status == models.AssetReady {
			if d, err := utils.WAVDuration(scene.Audio.Data); err == nil {
				duration = d.Seconds()
			}
		}
		if duration <= 0 {
			duration = tp.EstimateDuration(scene.Narration)
		}

		timings = append(timings, SceneTiming{SceneID: scene.ID, Start: offset, Duration: duration})
		offset += duration
	}
	return timings
}

// BuildCues splits each scene's narration into cues and spreads the scene's duration
// over them in proportion to their length
func (tp *TextProcessor) BuildCues(campaign *models.Campaign) []SubtitleCue {
	cues := []SubtitleCue{}
	for i, timing := range tp.SceneTimings(campaign) {
		lines := tp.SplitForSubtitles(campaign.Scenes[i].Narration)
		if len(lines) == 0 || timing.Duration <= 0 {
			continue
		}

		totalChars := 0
		for _, line := range lines {
			totalChars += len(line)
		}

		start := timing.Start
		for j, line := range lines {
			end := start + timing.Duration*float64(len(line))/float64(totalChars)
			if j == len(lines)-1 {
				end = timing.Start + timing.Duration
			}
			cues = append(cues, SubtitleCue{SceneID: timing.SceneID, Start: start, End: end, Text: line})
			start = end
		}
	}
	return cues
}

// BuildSRT renders the campaign narration as an SRT document
func (tp *TextProcessor) BuildSRT(campaign *models.Campaign) (string, error) {
	if campaign == nil {
		return "", apperrors.NewNotFoundError("no campaign has been generated", nil)
	}

	var sb strings.Builder
	for i, cue := range tp.BuildCues(campaign) {
		// Format timestamp: HH:MM:SS,mmm
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n", i+1,
			utils.FormatSRTTimestamp(cue.Start), utils.FormatSRTTimestamp(cue.End), cue.Text)
	}
	return sb.String(), nil
}
