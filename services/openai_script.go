package services

import (
	"adstudio/apperrors"
	"adstudio/models"
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIScriptWriter synthesizes scripts through the OpenAI chat completions API
type OpenAIScriptWriter struct {
	client openai.Client
	model  string
}

// NewOpenAIScriptWriter creates a script writer; a missing key is a ConfigError
func NewOpenAIScriptWriter(apiKey, model string, opts ...option.RequestOption) (*OpenAIScriptWriter, error) {
	if apiKey == "" {
		return nil, apperrors.NewConfigError("OPENAI_API_KEY is required when SCRIPT_PROVIDER is openai", nil)
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &OpenAIScriptWriter{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// SynthesizeScript sends the product images and director prompt with a strict JSON schema
func (w *OpenAIScriptWriter) SynthesizeScript(ctx context.Context, req *models.GenerationRequest) (*models.ScriptDraft, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{imagePart(req.ProductImage)}
	if req.ModelImage != nil {
		parts = append(parts, imagePart(req.ModelImage), openai.TextContentPart(modelImageHint))
	}
	if req.ReferenceImage != nil {
		parts = append(parts, imagePart(req.ReferenceImage), openai.TextContentPart(referenceImageHint))
	}
	parts = append(parts, openai.TextContentPart(buildScriptPrompt(req)))

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "ad_script",
		Description: openai.String("Storyboard for a product advertisement"),
		Schema:      scriptDraftSchema,
		Strict:      openai.Bool(true),
	}

	chatCompletion, err := w.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		Model: openai.ChatModel(w.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return nil, apperrors.NewGenerationError("OpenAI API error", err)
	}

	if len(chatCompletion.Choices) == 0 {
		return nil, apperrors.NewGenerationError("no script generated", nil)
	}

	return parseScriptDraft(chatCompletion.Choices[0].Message.Content)
}

func imagePart(asset *models.EncodedAsset) openai.ChatCompletionContentPartUnionParam {
	return openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
		URL: fmt.Sprintf("data:%s;base64,%s", asset.MimeType, asset.Base64()),
	})
}
