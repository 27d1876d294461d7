package handlers

import (
	"adstudio/apperrors"
	"adstudio/config"
	"adstudio/models"
	"adstudio/services"
	"adstudio/utils"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

// CampaignHandler serves session lifecycle, run control and campaign exports
type CampaignHandler struct {
	cfg           *config.Config
	sessions      *services.SessionManager
	textProcessor *services.TextProcessor
	animatic      *services.AnimaticService
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(cfg *config.Config, sessions *services.SessionManager) *CampaignHandler {
	textProcessor := services.NewTextProcessor()
	return &CampaignHandler{
		cfg:           cfg,
		sessions:      sessions,
		textProcessor: textProcessor,
		animatic:      services.NewAnimaticService(textProcessor, cfg.TempDir, cfg.AnimaticResolution, cfg.AnimaticFPS),
	}
}

// respondError writes err with the status its type maps to
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	body := gin.H{"error": err.Error()}
	if code := apperrors.TypeOf(err); code != "" {
		body["type"] = code
	}
	c.AbortWithStatusJSON(status, body)
}

// session resolves the :id path parameter
func (h *CampaignHandler) session(c *gin.Context) (*services.Session, bool) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return session, true
}

// Options handles GET /api/options
func (h *CampaignHandler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, models.DefaultCatalog())
}

// CreateSession handles POST /api/sessions
func (h *CampaignHandler) CreateSession(c *gin.Context) {
	session := h.sessions.Create()
	c.JSON(http.StatusCreated, models.CreateSessionResponse{SessionID: session.ID})
}

// DeleteSession handles DELETE /api/sessions/:id
func (h *CampaignHandler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StartRun handles POST /api/sessions/:id/run
func (h *CampaignHandler) StartRun(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(h.cfg.MaxUploadMB)<<20)

	req, err := h.bindGenerationRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := session.StartRun(req); err != nil {
		log.Printf("[Session %s] Run rejected: %v", session.ID, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, models.StartRunResponse{
		SessionID: session.ID,
		State:     session.State(),
	})
}

// bindGenerationRequest reads the multipart form into a GenerationRequest
func (h *CampaignHandler) bindGenerationRequest(c *gin.Context) (*models.GenerationRequest, error) {
	product, err := c.FormFile("product_image")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, apperrors.NewValidationError("product image is required", nil)
		}
		return nil, apperrors.NewReadError("failed to read upload", err)
	}

	req := &models.GenerationRequest{
		ProductDescription: strings.TrimSpace(c.PostForm("description")),
		Voice:              c.PostForm("voice"),
		Language:           c.PostForm("language"),
		MusicStyle:         c.PostForm("music_style"),
		AspectRatio:        models.AspectRatio(c.PostForm("aspect_ratio")),
	}

	if raw := c.PostForm("scene_count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("scene_count must be a number, got %q", raw), err)
		}
		req.SceneCount = models.SceneCount(n)
	}

	if req.ProductImage, err = utils.EncodeFileHeader(product); err != nil {
		return nil, err
	}
	if req.ModelImage, err = optionalUpload(c, "model_image"); err != nil {
		return nil, err
	}
	if req.ReferenceImage, err = optionalUpload(c, "reference_image"); err != nil {
		return nil, err
	}

	return req, nil
}

func optionalUpload(c *gin.Context, field string) (*models.EncodedAsset, error) {
	fh, err := c.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewReadError("failed to read "+field, err)
	}
	return utils.EncodeFileHeader(fh)
}

// GetSession handles GET /api/sessions/:id
func (h *CampaignHandler) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// ResetRun handles DELETE /api/sessions/:id/run
func (h *CampaignHandler) ResetRun(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Reset()
	c.JSON(http.StatusOK, session.Snapshot())
}

// Outstanding handles GET /api/sessions/:id/tasks
func (h *CampaignHandler) Outstanding(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": session.Outstanding()})
}

func sceneParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("scene"))
	if err != nil {
		return 0, apperrors.NewValidationError(fmt.Sprintf("invalid scene id %q", c.Param("scene")), err)
	}
	return id, nil
}

// DownloadImage handles GET /api/sessions/:id/scenes/:scene/image
func (h *CampaignHandler) DownloadImage(c *gin.Context) {
	h.downloadAsset(c, models.AssetImage)
}

// DownloadAudio handles GET /api/sessions/:id/scenes/:scene/audio
func (h *CampaignHandler) DownloadAudio(c *gin.Context) {
	h.downloadAsset(c, models.AssetAudio)
}

func (h *CampaignHandler) downloadAsset(c *gin.Context, kind models.AssetKind) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	sceneID, err := sceneParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	asset, err := session.SceneAsset(sceneID, kind)
	if err != nil {
		respondError(c, err)
		return
	}

	contentType := asset.MimeType
	if contentType == "" {
		contentType = mimetype.Detect(asset.Data).String()
	}
	ext := mimetype.Detect(asset.Data).Extension()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=scene-%d-%s%s", sceneID+1, kind, ext))
	c.Data(http.StatusOK, contentType, asset.Data)
}

// VideoPrompt handles GET /api/sessions/:id/scenes/:scene/video-prompt
func (h *CampaignHandler) VideoPrompt(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	sceneID, err := sceneParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	campaign := session.Campaign()
	if campaign == nil {
		respondError(c, apperrors.NewNotFoundError("no campaign has been generated", nil))
		return
	}
	if sceneID < 0 || sceneID >= len(campaign.Scenes) {
		respondError(c, apperrors.NewNotFoundError(fmt.Sprintf("scene %d not found", sceneID), nil))
		return
	}

	c.String(http.StatusOK, campaign.Scenes[sceneID].VideoPrompt)
}

// storyboard is the exported, byte-free view of a campaign
type storyboard struct {
	Title               string            `json:"title" yaml:"title"`
	Hook                string            `json:"hook" yaml:"hook"`
	MusicRecommendation string            `json:"music_recommendation" yaml:"music_recommendation"`
	CreatedAt           time.Time         `json:"created_at" yaml:"created_at"`
	Scenes              []storyboardScene `json:"scenes" yaml:"scenes"`
}

type storyboardScene struct {
	Scene        int                `json:"scene" yaml:"scene"`
	VisualPrompt string             `json:"visual_prompt" yaml:"visual_prompt"`
	VideoPrompt  string             `json:"video_prompt" yaml:"video_prompt"`
	Narration    string             `json:"narration" yaml:"narration"`
	Image        models.AssetStatus `json:"image" yaml:"image"`
	Audio        models.AssetStatus `json:"audio" yaml:"audio"`
}

func newStoryboard(c *models.Campaign) storyboard {
	sb := storyboard{
		Title:               c.Title,
		Hook:                c.Hook,
		MusicRecommendation: c.MusicRecommendation,
		CreatedAt:           c.CreatedAt,
		Scenes:              make([]storyboardScene, len(c.Scenes)),
	}
	for i, s := range c.Scenes {
		sb.Scenes[i] = storyboardScene{
			Scene:        s.ID + 1,
			VisualPrompt: s.VisualPrompt,
			VideoPrompt:  s.VideoPrompt,
			Narration:    s.Narration,
			Image:        s.Image.Status,
			Audio:        s.Audio.Status,
		}
	}
	return sb
}

// Storyboard handles GET /api/sessions/:id/storyboard?format=json|yaml
func (h *CampaignHandler) Storyboard(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	campaign := session.Campaign()
	if campaign == nil {
		respondError(c, apperrors.NewNotFoundError("no campaign has been generated", nil))
		return
	}
	board := newStoryboard(campaign)

	switch format := c.DefaultQuery("format", "json"); format {
	case "json":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=storyboard_%s.json", campaign.ID))
		c.JSON(http.StatusOK, board)
	case "yaml", "yml":
		out, err := yaml.Marshal(board)
		if err != nil {
			respondError(c, fmt.Errorf("failed to encode storyboard: %w", err))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=storyboard_%s.yaml", campaign.ID))
		c.Data(http.StatusOK, "application/yaml", out)
	default:
		respondError(c, apperrors.NewValidationError(fmt.Sprintf("unsupported format %q", format), nil))
	}
}

// Subtitles handles GET /api/sessions/:id/subtitles.srt
func (h *CampaignHandler) Subtitles(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	campaign := session.Campaign()

	srt, err := h.textProcessor.BuildSRT(campaign)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=subtitles_%s.srt", campaign.ID))
	c.Data(http.StatusOK, "application/x-subrip", []byte(srt))
}

// Animatic handles POST /api/sessions/:id/animatic
func (h *CampaignHandler) Animatic(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	campaign := session.Campaign()

	path, err := h.animatic.Render(c.Request.Context(), campaign)
	if err != nil {
		log.Printf("[Session %s] Animatic failed: %v", session.ID, err)
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "video/mp4")
	c.FileAttachment(path, fmt.Sprintf("animatic_%s.mp4", campaign.ID))

	// Schedule cleanup after download (1 hour)
	h.animatic.ScheduleCleanup(campaign.ID, 1*time.Hour)
}
