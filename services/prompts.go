package services

import (
	"adstudio/models"
	"fmt"
	"strings"
)

const modelImageHint = "Use the person in this second image as the model/character in the scenes."

const referenceImageHint = "Use the artistic style and mood of this third image as a reference for the visual style."

// buildScriptPrompt returns the director prompt for script synthesis
func buildScriptPrompt(req *models.GenerationRequest) string {
	var sb strings.Builder
	sb.WriteString("You are a world-class Viral Ad Director.\n")
	sb.WriteString(fmt.Sprintf("Create a %d-scene advertisement storyboard for the product shown in the first image.\n\n", req.SceneCount))
	sb.WriteString(fmt.Sprintf("Product Description: %q\n", req.ProductDescription))
	sb.WriteString(fmt.Sprintf("Target Narration Tone: %s\n", req.Voice))
	sb.WriteString(fmt.Sprintf("Language for Script: %s\n", req.Language))
	sb.WriteString(fmt.Sprintf("Music Vibe: %s\n\n", req.MusicStyle))

	sb.WriteString("For each scene, provide:\n")
	sb.WriteString("1. visualPrompt: A highly detailed, descriptive prompt for an AI image generator to generate the frame. ")
	sb.WriteString("Include lighting, camera angle, and subject details. ")
	sb.WriteString("The visual prompt must explicitly describe the product exactly as it appears in the image to ensure consistency.\n")
	sb.WriteString("2. videoPrompt: A prompt for an AI video generator describing the motion and action (e.g. \"Slow motion pan\", \"Zoom in\").\n")
	sb.WriteString(fmt.Sprintf("3. narration: The voiceover script for this specific scene, written in %s.\n\n", req.Language))

	sb.WriteString("Also provide:\n")
	sb.WriteString("- title: A catchy title for the campaign.\n")
	sb.WriteString("- hook: A one-sentence hook.\n")
	sb.WriteString(fmt.Sprintf("- musicRecommendation: A specific royalty-free background music track or search term that fits the %q vibe.\n\n", req.MusicStyle))
	sb.WriteString(fmt.Sprintf("Return exactly %d scenes. Return strictly JSON.", req.SceneCount))
	return sb.String()
}

// buildImagePrompt wraps a scene's visual prompt with the product consistency instruction
// when a reference product image accompanies the request.
func buildImagePrompt(visualPrompt string, withReference bool) string {
	if !withReference {
		return visualPrompt
	}

	var sb strings.Builder
	sb.WriteString("Generate a high-quality advertisement scene based on the product in the provided image.\n\n")
	sb.WriteString("Scene Description: ")
	sb.WriteString(visualPrompt)
	sb.WriteString("\n\nCRITICAL INSTRUCTION: Maintain the exact shape, color, and branding of the product shown in the input image. ")
	sb.WriteString("Do not hallucinate different packaging or alter the product's physical form. ")
	sb.WriteString("Place the product naturally into the described scene.")
	return sb.String()
}
