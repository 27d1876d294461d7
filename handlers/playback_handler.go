package handlers

import (
	"adstudio/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PlaybackHandler drives a session's playback sequencer
type PlaybackHandler struct {
	sessions *services.SessionManager
}

// NewPlaybackHandler creates a new playback handler
func NewPlaybackHandler(sessions *services.SessionManager) *PlaybackHandler {
	return &PlaybackHandler{sessions: sessions}
}

func (h *PlaybackHandler) sequencer(c *gin.Context) (*services.Sequencer, bool) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return session.Playback(), true
}

// PlayScene handles POST /api/sessions/:id/playback/scenes/:scene
func (h *PlaybackHandler) PlayScene(c *gin.Context) {
	seq, ok := h.sequencer(c)
	if !ok {
		return
	}
	sceneID, err := sceneParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := seq.PlayOne(sceneID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, seq.State())
}

// PlayAll handles POST /api/sessions/:id/playback/all
func (h *PlaybackHandler) PlayAll(c *gin.Context) {
	seq, ok := h.sequencer(c)
	if !ok {
		return
	}
	if err := seq.PlayAll(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, seq.State())
}

// Stop handles POST /api/sessions/:id/playback/stop
func (h *PlaybackHandler) Stop(c *gin.Context) {
	seq, ok := h.sequencer(c)
	if !ok {
		return
	}
	seq.Stop()
	c.JSON(http.StatusOK, seq.State())
}

// GetState handles GET /api/sessions/:id/playback
func (h *PlaybackHandler) GetState(c *gin.Context) {
	seq, ok := h.sequencer(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, seq.State())
}
