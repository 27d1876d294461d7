package models

import (
	"fmt"
	"strings"
)

// AspectRatio of generated scene images
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "3:4"
	AspectStory     AspectRatio = "9:16"
)

// SceneCount is the number of storyboard scenes
type SceneCount int

const (
	SceneCountFour  SceneCount = 4
	SceneCountSeven SceneCount = 7
	SceneCountTen   SceneCount = 10
)

// VoiceOption is a prebuilt narration voice
type VoiceOption struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
	Style  string `json:"style"`
}

// Option is a selectable value with a display label
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// CountOption is a selectable scene count
type CountOption struct {
	Value SceneCount `json:"value"`
	Label string     `json:"label"`
}

// Catalog lists every selectable generation option
type Catalog struct {
	Voices       []VoiceOption `json:"voices"`
	AspectRatios []Option      `json:"aspect_ratios"`
	SceneCounts  []CountOption `json:"scene_counts"`
	Languages    []Option      `json:"languages"`
	MusicStyles  []Option      `json:"music_styles"`
}

var VoiceOptions = []VoiceOption{
	{ID: "Puck", Name: "Puck", Gender: "Male", Style: "Upbeat & Energetic"},
	{ID: "Kore", Name: "Kore", Gender: "Female", Style: "Firm & Professional"},
	{ID: "Zephyr", Name: "Zephyr", Gender: "Female", Style: "Bright & Friendly"},
	{ID: "Fenrir", Name: "Fenrir", Gender: "Male", Style: "Excitable & Enthusiastic"},
	{ID: "Achird", Name: "Achird", Gender: "Male", Style: "Warm & Approachable"},
	{ID: "Charon", Name: "Charon", Gender: "Male", Style: "Informative & Clear"},
	{ID: "Sadachbia", Name: "Sadachbia", Gender: "Male", Style: "Lively & Dynamic"},
	{ID: "Sulafat", Name: "Sulafat", Gender: "Female", Style: "Warm & Soothing"},
	{ID: "Aoede", Name: "Aoede", Gender: "Female", Style: "Breezy & Relaxed"},
	{ID: "Gacrux", Name: "Gacrux", Gender: "Female", Style: "Mature & Wise"},
}

var AspectRatios = []Option{
	{Value: string(AspectSquare), Label: "1:1 Square (IG Feed)"},
	{Value: string(AspectLandscape), Label: "16:9 Landscape (YouTube)"},
	{Value: string(AspectPortrait), Label: "3:4 Portrait (Pinterest)"},
	{Value: string(AspectStory), Label: "9:16 Story (TikTok/Reels)"},
}

var SceneCounts = []CountOption{
	{Value: SceneCountFour, Label: "4 Scenes (Short & Punchy)"},
	{Value: SceneCountSeven, Label: "7 Scenes (Standard)"},
	{Value: SceneCountTen, Label: "10 Scenes (Detailed Story)"},
}

var Languages = []Option{
	{Value: "Bahasa Indonesia", Label: "Bahasa Indonesia"},
	{Value: "English", Label: "English"},
	{Value: "Javanese", Label: "Indonesian (Javanese Style)"},
	{Value: "Slang", Label: "Indonesian (Bahasa Gaul/Viral)"},
}

var MusicStyles = []Option{
	{Value: "Upbeat Pop", Label: "Upbeat & Pop (Energetic)"},
	{Value: "Corporate", Label: "Corporate & Professional"},
	{Value: "Cinematic", Label: "Cinematic & Epic"},
	{Value: "Lo-Fi", Label: "Lo-Fi & Chill"},
	{Value: "Acoustic", Label: "Acoustic & Folk"},
	{Value: "Electronic", Label: "Electronic & Modern"},
}

// DefaultCatalog returns the catalog served by GET /api/options
func DefaultCatalog() Catalog {
	return Catalog{
		Voices:       VoiceOptions,
		AspectRatios: AspectRatios,
		SceneCounts:  SceneCounts,
		Languages:    Languages,
		MusicStyles:  MusicStyles,
	}
}

// Defaults applied to a request when the form leaves a field empty
const (
	DefaultVoice       = "Puck"
	DefaultLanguage    = "Bahasa Indonesia"
	DefaultMusicStyle  = "Upbeat Pop"
	DefaultAspectRatio = AspectSquare
	DefaultSceneCount  = SceneCountFour
)

// ApplyDefaults fills empty optional fields
func (r *GenerationRequest) ApplyDefaults() {
	if r.Voice == "" {
		r.Voice = DefaultVoice
	}
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
	if r.MusicStyle == "" {
		r.MusicStyle = DefaultMusicStyle
	}
	if r.AspectRatio == "" {
		r.AspectRatio = DefaultAspectRatio
	}
	if r.SceneCount == 0 {
		r.SceneCount = DefaultSceneCount
	}
}

// Validate checks the preconditions for starting a run
func (r *GenerationRequest) Validate() error {
	if r.ProductImage == nil || len(r.ProductImage.Data) == 0 {
		return fmt.Errorf("product image is required")
	}
	if strings.TrimSpace(r.ProductDescription) == "" {
		return fmt.Errorf("product description is required")
	}
	if !r.SceneCount.Valid() {
		return fmt.Errorf("scene count must be one of 4, 7 or 10, got %d", r.SceneCount)
	}
	if !r.AspectRatio.Valid() {
		return fmt.Errorf("unsupported aspect ratio %q", r.AspectRatio)
	}
	if !ValidVoice(r.Voice) {
		return fmt.Errorf("unknown voice %q", r.Voice)
	}
	return nil
}

// Valid reports whether the scene count is one of the supported values
func (c SceneCount) Valid() bool {
	for _, opt := range SceneCounts {
		if opt.Value == c {
			return true
		}
	}
	return false
}

// Valid reports whether the aspect ratio is supported
func (a AspectRatio) Valid() bool {
	for _, opt := range AspectRatios {
		if opt.Value == string(a) {
			return true
		}
	}
	return false
}

// ValidVoice reports whether id names a catalog voice
func ValidVoice(id string) bool {
	for _, v := range VoiceOptions {
		if v.ID == id {
			return true
		}
	}
	return false
}
