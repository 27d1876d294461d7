package services

import (
	"adstudio/apperrors"
	"adstudio/models"
	"adstudio/utils"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// AnimaticService renders a settled campaign into a slideshow video: each scene image
// held for the length of its narration, in scene order
type AnimaticService struct {
	textProcessor *TextProcessor
	tempDir       string
	resolution    string
	fps           int
}

// NewAnimaticService creates a new animatic service
func NewAnimaticService(textProcessor *TextProcessor, tempDir, resolution string, fps int) *AnimaticService {
	return &AnimaticService{
		textProcessor: textProcessor,
		tempDir:       tempDir,
		resolution:    resolution,
		fps:           fps,
	}
}

// Render writes the animatic and returns its path. Scenes whose image failed are left out;
// scenes without narration audio are held silent for their estimated speaking time.
func (s *AnimaticService) Render(ctx context.Context, campaign *models.Campaign) (string, error) {
	if campaign == nil {
		return "", apperrors.NewNotFoundError("no campaign has been generated", nil)
	}
	if !campaign.Settled() {
		return "", apperrors.NewConflictError("campaign is still rendering", nil)
	}
	if !utils.FFmpegAvailable() {
		return "", apperrors.NewConfigError("ffmpeg is not installed", nil)
	}

	workDir, err := utils.CreateTempDir(s.tempDir, campaign.ID)
	if err != nil {
		return "", err
	}

	timings := s.textProcessor.SceneTimings(campaign)
	clips := []string{}

	for i, scene := range campaign.Scenes {
		if scene.Image.Status != models.AssetReady {
			log.Printf("[Campaign %s] Scene %d has no image, leaving it out of the animatic", campaign.ID, scene.ID)
			continue
		}

		imagePath := filepath.Join(workDir, "images", fmt.Sprintf("scene_%02d%s", scene.ID, mimetype.Detect(scene.Image.Data).Extension()))
		if err := utils.WriteAsset(imagePath, scene.Image.Data); err != nil {
			return "", err
		}

		audioPath := ""
		if scene.Audio.Status == models.AssetReady {
			audioPath = filepath.Join(workDir, "audio", fmt.Sprintf("scene_%02d.wav", scene.ID))
			if err := utils.WriteAsset(audioPath, scene.Audio.Data); err != nil {
				return "", err
			}
		}

		clipPath := filepath.Join(workDir, "clips", fmt.Sprintf("scene_%02d.mp4", scene.ID))
		if err := utils.RenderStillClip(ctx, imagePath, audioPath, clipPath, timings[i].Duration, s.resolution, s.fps); err != nil {
			return "", fmt.Errorf("failed to render scene %d: %w", scene.ID, err)
		}
		clips = append(clips, clipPath)
	}

	if len(clips) == 0 {
		return "", apperrors.NewValidationError("no scene has an image to render", nil)
	}

	outputPath := filepath.Join(workDir, "output", "animatic.mp4")
	if err := utils.ConcatVideos(ctx, clips, outputPath); err != nil {
		return "", fmt.Errorf("failed to concatenate scenes: %w", err)
	}
	if !utils.FileExists(outputPath) {
		return "", fmt.Errorf("ffmpeg produced no output at %s", outputPath)
	}

	duration, err := utils.GetMediaDuration(ctx, outputPath)
	if err != nil {
		log.Printf("[Campaign %s] Could not probe animatic duration: %v", campaign.ID, err)
	}
	log.Printf("[Campaign %s] Animatic rendered with %d scenes (%.1fs)", campaign.ID, len(clips), duration)
	return outputPath, nil
}

// ScheduleCleanup removes the campaign's working files after delay
func (s *AnimaticService) ScheduleCleanup(campaignID string, delay time.Duration) {
	utils.ScheduleCleanup(s.tempDir, campaignID, delay)
}
