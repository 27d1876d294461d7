package services

import (
	"adstudio/apperrors"
	"adstudio/config"
	"adstudio/models"
	"adstudio/utils"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Generator is the generation backend used by the orchestrator.
// Every call is a single round trip without retries.
type Generator interface {
	SynthesizeScript(ctx context.Context, req *models.GenerationRequest) (*models.ScriptDraft, error)
	SynthesizeImage(ctx context.Context, prompt string, aspectRatio models.AspectRatio, reference *models.EncodedAsset) (*models.EncodedAsset, error)
	SynthesizeAudio(ctx context.Context, text, voice string) ([]byte, error)
}

// GeneratorFactory acquires a Generator; it fails with a ConfigError when no credential is configured
type GeneratorFactory func() (Generator, error)

// NewGenerator acquires a generation client for cfg.
// The credential check happens here, once, before any request is issued.
func NewGenerator(cfg *config.Config, keys *utils.APIKeyPool) (Generator, error) {
	cred, err := newCredential(cfg, keys)
	if err != nil {
		return nil, err
	}

	client := &GeminiClient{
		cred:        cred,
		endpoint:    geminiEndpoint(cfg),
		scriptModel: cfg.ScriptModel,
		imageModel:  cfg.ImageModel,
		ttsModel:    cfg.TTSModel,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
	}

	if cfg.ScriptProvider == "openai" {
		script, err := NewOpenAIScriptWriter(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		return &mixedGenerator{GeminiClient: client, script: script}, nil
	}

	return client, nil
}

// GeminiClient calls the Gemini generateContent REST API
type GeminiClient struct {
	cred        credential
	endpoint    func(model string) string
	scriptModel string
	imageModel  string
	ttsModel    string
	httpClient  *http.Client
}

// geminiPart is one content part of a request or response
type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// SynthesizeScript asks the script model for a storyboard constrained to the ScriptDraft schema
func (gc *GeminiClient) SynthesizeScript(ctx context.Context, req *models.GenerationRequest) (*models.ScriptDraft, error) {
	parts := []geminiPart{inlinePart(req.ProductImage)}
	if req.ModelImage != nil {
		parts = append(parts, inlinePart(req.ModelImage), geminiPart{Text: modelImageHint})
	}
	if req.ReferenceImage != nil {
		parts = append(parts, inlinePart(req.ReferenceImage), geminiPart{Text: referenceImageHint})
	}
	parts = append(parts, geminiPart{Text: buildScriptPrompt(req)})

	resp, err := gc.generate(ctx, gc.scriptModel, geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: map[string]interface{}{
			"responseMimeType":   "application/json",
			"responseJsonSchema": scriptDraftSchema,
		},
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, p := range firstCandidateParts(resp) {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, apperrors.NewGenerationError("no script generated", nil)
	}

	return parseScriptDraft(text.String())
}

// SynthesizeImage renders one scene frame, passing the reference product image for consistency
func (gc *GeminiClient) SynthesizeImage(ctx context.Context, prompt string, aspectRatio models.AspectRatio, reference *models.EncodedAsset) (*models.EncodedAsset, error) {
	parts := []geminiPart{}
	if reference != nil {
		parts = append(parts, inlinePart(reference))
	}
	parts = append(parts, geminiPart{Text: buildImagePrompt(prompt, reference != nil)})

	resp, err := gc.generate(ctx, gc.imageModel, geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: map[string]interface{}{
			"imageConfig": map[string]interface{}{
				"aspectRatio": string(aspectRatio),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	for _, p := range firstCandidateParts(resp) {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, apperrors.NewParseError("image payload is not valid base64", err)
		}
		return &models.EncodedAsset{Data: data, MimeType: p.InlineData.MimeType}, nil
	}

	return nil, apperrors.NewGenerationError("no image generated", nil)
}

// SynthesizeAudio speaks text with a prebuilt voice and returns raw PCM samples
func (gc *GeminiClient) SynthesizeAudio(ctx context.Context, text, voice string) ([]byte, error) {
	resp, err := gc.generate(ctx, gc.ttsModel, geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
		GenerationConfig: map[string]interface{}{
			"responseModalities": []string{"AUDIO"},
			"speechConfig": map[string]interface{}{
				"voiceConfig": map[string]interface{}{
					"prebuiltVoiceConfig": map[string]string{"voiceName": voice},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	parts := firstCandidateParts(resp)
	if len(parts) == 0 || parts[0].InlineData == nil || parts[0].InlineData.Data == "" {
		return nil, apperrors.NewGenerationError("no audio generated", nil)
	}

	pcm, err := base64.StdEncoding.DecodeString(parts[0].InlineData.Data)
	if err != nil {
		return nil, apperrors.NewParseError("audio payload is not valid base64", err)
	}
	return pcm, nil
}

// generate performs one generateContent round trip
func (gc *GeminiClient) generate(ctx context.Context, model string, body geminiRequest) (*geminiResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gc.endpoint(model), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	release, err := gc.cred.authorize(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := gc.httpClient.Do(req)
	if err != nil {
		release(true)
		return nil, fmt.Errorf("request to %s failed: %w", model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		release(true)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed geminiResponse
	decodeErr := json.Unmarshal(respBody, &parsed)

	if resp.StatusCode != http.StatusOK {
		// quota and auth failures rest the key; bad requests are not the key's fault
		release(resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden)
		if decodeErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			return nil, apperrors.NewGenerationError(
				fmt.Sprintf("%s returned %d", model, resp.StatusCode),
				fmt.Errorf("%s (%s)", parsed.Error.Message, parsed.Error.Status))
		}
		return nil, apperrors.NewGenerationError(fmt.Sprintf("%s returned status %d", model, resp.StatusCode), nil)
	}
	release(false)

	if decodeErr != nil {
		return nil, apperrors.NewParseError("response is not valid JSON", decodeErr)
	}
	return &parsed, nil
}

func firstCandidateParts(resp *geminiResponse) []geminiPart {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func inlinePart(asset *models.EncodedAsset) geminiPart {
	return geminiPart{InlineData: &geminiInlineData{
		MimeType: asset.MimeType,
		Data:     asset.Base64(),
	}}
}

func geminiEndpoint(cfg *config.Config) func(model string) string {
	if cfg.UseVertex {
		base := fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models",
			cfg.GoogleCloudRegion, cfg.GoogleCloudProject, cfg.GoogleCloudRegion)
		return func(model string) string {
			return fmt.Sprintf("%s/%s:generateContent", base, model)
		}
	}

	base := strings.TrimSuffix(cfg.GeminiBaseURL, "/")
	return func(model string) string {
		return fmt.Sprintf("%s/models/%s:generateContent", base, model)
	}
}

// credential authorizes outgoing requests. release reports whether the request failed
// in a way attributable to the credential.
type credential interface {
	authorize(ctx context.Context, req *http.Request) (release func(failed bool), err error)
}

func newCredential(cfg *config.Config, keys *utils.APIKeyPool) (credential, error) {
	if cfg.UseVertex {
		ts, err := google.DefaultTokenSource(context.Background(), cloudPlatformScope)
		if err != nil {
			return nil, apperrors.NewConfigError("no Google application default credentials found", err)
		}
		return &tokenCredential{ts: ts}, nil
	}

	if keys.Size() == 0 {
		return nil, apperrors.NewConfigError("no Gemini API key configured: set GEMINI_API_KEYS or API_KEY", nil)
	}
	return &apiKeyCredential{pool: keys}, nil
}

// apiKeyCredential rotates through a pool of Gemini API keys
type apiKeyCredential struct {
	pool *utils.APIKeyPool
}

func (c *apiKeyCredential) authorize(_ context.Context, req *http.Request) (func(bool), error) {
	key, err := c.pool.Acquire()
	if err != nil {
		return nil, apperrors.NewConfigError("no usable Gemini API key", err)
	}
	req.Header.Set("x-goog-api-key", key)
	return func(failed bool) { c.pool.Release(key, failed) }, nil
}

// tokenCredential attaches OAuth2 bearer tokens from application default credentials
type tokenCredential struct {
	ts oauth2.TokenSource
}

func (c *tokenCredential) authorize(_ context.Context, req *http.Request) (func(bool), error) {
	token, err := c.ts.Token()
	if err != nil {
		return nil, apperrors.NewConfigError("failed to obtain access token", err)
	}
	token.SetAuthHeader(req)
	return func(bool) {}, nil
}

// mixedGenerator writes scripts with another provider and renders assets with Gemini
type mixedGenerator struct {
	*GeminiClient
	script scriptWriter
}

type scriptWriter interface {
	SynthesizeScript(ctx context.Context, req *models.GenerationRequest) (*models.ScriptDraft, error)
}

func (m *mixedGenerator) SynthesizeScript(ctx context.Context, req *models.GenerationRequest) (*models.ScriptDraft, error) {
	return m.script.SynthesizeScript(ctx, req)
}
