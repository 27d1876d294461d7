package services

import (
	"adstudio/apperrors"
	"adstudio/models"
	"context"
	"fmt"
	"sync"
)

// fakeGenerator scripts n scenes whose prompts carry the scene index, and answers
// asset requests unless told to fail them. A non-nil gate holds every asset request until closed.
type fakeGenerator struct {
	scenes    int
	scriptErr error
	failImage map[int]bool
	failAudio map[int]bool
	gate      chan struct{}

	mu          sync.Mutex
	imageCalls  int
	audioCalls  int
	lastAspect  models.AspectRatio
	lastVoice   string
	lastRefSize int
}

func newFakeGenerator(scenes int) *fakeGenerator {
	return &fakeGenerator{
		scenes:    scenes,
		failImage: map[int]bool{},
		failAudio: map[int]bool{},
	}
}

func (f *fakeGenerator) factory() GeneratorFactory {
	return func() (Generator, error) { return f, nil }
}

func (f *fakeGenerator) SynthesizeScript(ctx context.Context, req *models.GenerationRequest) (*models.ScriptDraft, error) {
	if f.scriptErr != nil {
		return nil, f.scriptErr
	}
	draft := &models.ScriptDraft{
		Title:               "Fresh Brew",
		Hook:                "Wake up to better coffee.",
		MusicRecommendation: "upbeat acoustic",
	}
	for i := 0; i < f.scenes; i++ {
		draft.Scenes = append(draft.Scenes, models.SceneDraft{
			VisualPrompt: fmt.Sprintf("visual %d", i),
			VideoPrompt:  fmt.Sprintf("video %d", i),
			Narration:    fmt.Sprintf("narration %d", i),
		})
	}
	return draft, nil
}

func (f *fakeGenerator) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeGenerator) SynthesizeImage(ctx context.Context, prompt string, aspectRatio models.AspectRatio, reference *models.EncodedAsset) (*models.EncodedAsset, error) {
	var scene int
	fmt.Sscanf(prompt, "visual %d", &scene)

	f.mu.Lock()
	f.imageCalls++
	f.lastAspect = aspectRatio
	if reference != nil {
		f.lastRefSize = len(reference.Data)
	}
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.failImage[scene] {
		return nil, apperrors.NewGenerationError("no image generated", nil)
	}
	return &models.EncodedAsset{Data: []byte(fmt.Sprintf("image-%d", scene)), MimeType: "image/png"}, nil
}

func (f *fakeGenerator) SynthesizeAudio(ctx context.Context, text, voice string) ([]byte, error) {
	var scene int
	fmt.Sscanf(text, "narration %d", &scene)

	f.mu.Lock()
	f.audioCalls++
	f.lastVoice = voice
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.failAudio[scene] {
		return nil, apperrors.NewGenerationError("no audio generated", nil)
	}
	return []byte{byte(scene), 0, byte(scene), 0}, nil
}

func (f *fakeGenerator) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageCalls, f.audioCalls
}

// validRequest returns a request that passes validation
func validRequest(scenes models.SceneCount) *models.GenerationRequest {
	return &models.GenerationRequest{
		ProductDescription: "Single-origin coffee beans",
		SceneCount:         scenes,
		Voice:              "Kore",
		AspectRatio:        models.AspectStory,
		ProductImage:       &models.EncodedAsset{Data: []byte{0x89, 'P', 'N', 'G'}, MimeType: "image/png"},
	}
}
