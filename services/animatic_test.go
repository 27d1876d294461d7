package services

import (
	"adstudio/apperrors"
	"adstudio/models"
	"adstudio/utils"
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnimaticRejectsUnsettledCampaigns(t *testing.T) {
	svc := NewAnimaticService(NewTextProcessor(), t.TempDir(), "640x640", 24)

	_, err := svc.Render(context.Background(), nil)
	assert.True(t, apperrors.IsNotFoundError(err))

	pending := &models.Campaign{ID: "c1", Scenes: []models.Scene{{ID: 0, Image: models.Asset{Status: models.AssetReady}}}}
	_, err = svc.Render(context.Background(), pending)
	assert.True(t, apperrors.IsConflictError(err))
}

func TestAnimaticRender(t *testing.T) {
	if !utils.FFmpegAvailable() {
		t.Skip("ffmpeg not installed")
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	frame := buf.Bytes()

	campaign := &models.Campaign{
		ID: "animatic-test",
		Scenes: []models.Scene{
			{ID: 0, Narration: "One.", Image: models.Asset{Status: models.AssetReady, Data: frame}, Audio: models.Asset{Status: models.AssetReady, Data: secondsOfAudio(1)}},
			{ID: 1, Narration: "Two.", Image: models.Asset{Status: models.AssetFailed}, Audio: models.Asset{Status: models.AssetReady, Data: secondsOfAudio(1)}},
			{ID: 2, Narration: "Three words here.", Image: models.Asset{Status: models.AssetReady, Data: frame}, Audio: models.Asset{Status: models.AssetFailed}},
		},
	}

	dir := t.TempDir()
	svc := NewAnimaticService(NewTextProcessor(), dir, "64x64", 10)

	path, err := svc.Render(context.Background(), campaign)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "animatic-test", "output", "animatic.mp4"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// scene 0 plays 1s of audio, scene 2 is held for its 3-word estimate; scene 1 is left out
	if duration, err := utils.GetMediaDuration(context.Background(), path); err == nil {
		assert.InDelta(t, 1.0+NewTextProcessor().EstimateDuration("Three words here."), duration, 0.5)
	}
}
