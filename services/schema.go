package services

import (
	"adstudio/apperrors"
	"adstudio/models"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects a strict JSON schema for T
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	// model backends reject the meta keywords
	schema.Version = ""
	schema.ID = ""
	return schema
}

var scriptDraftSchema = GenerateSchema[models.ScriptDraft]()

// parseScriptDraft decodes and validates a script payload
func parseScriptDraft(raw string) (*models.ScriptDraft, error) {
	content := cleanJSON(raw)
	if content == "" {
		return nil, apperrors.NewGenerationError("no script generated", nil)
	}

	var draft models.ScriptDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, apperrors.NewParseError(
			fmt.Sprintf("script payload is not valid JSON (starts with %q)", content[:min(80, len(content))]), err)
	}
	if err := validateScriptDraft(&draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// validateScriptDraft checks the shape the orchestrator relies on
func validateScriptDraft(d *models.ScriptDraft) error {
	var missing []string
	if strings.TrimSpace(d.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(d.Hook) == "" {
		missing = append(missing, "hook")
	}
	if strings.TrimSpace(d.MusicRecommendation) == "" {
		missing = append(missing, "musicRecommendation")
	}
	if len(d.Scenes) == 0 {
		missing = append(missing, "scenes")
	}
	for i, s := range d.Scenes {
		if strings.TrimSpace(s.VisualPrompt) == "" {
			missing = append(missing, fmt.Sprintf("scenes[%d].visualPrompt", i))
		}
		if strings.TrimSpace(s.VideoPrompt) == "" {
			missing = append(missing, fmt.Sprintf("scenes[%d].videoPrompt", i))
		}
		if strings.TrimSpace(s.Narration) == "" {
			missing = append(missing, fmt.Sprintf("scenes[%d].narration", i))
		}
	}
	if len(missing) > 0 {
		return apperrors.NewParseError("script payload is missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// cleanJSON strips markdown fences some models wrap around JSON
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
