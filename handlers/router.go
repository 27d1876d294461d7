package handlers

import (
	"adstudio/config"
	"adstudio/services"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter wires every route onto a new gin engine
func SetupRouter(cfg *config.Config, sessions *services.SessionManager) *gin.Engine {
	router := gin.Default()
	router.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20

	// Setup CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"sessions": sessions.Count(),
			"time":     time.Now(),
		})
	})

	campaignHandler := NewCampaignHandler(cfg, sessions)
	playbackHandler := NewPlaybackHandler(sessions)
	eventsHandler := NewEventsHandler(sessions)

	// API routes
	api := router.Group("/api")
	{
		api.GET("/options", campaignHandler.Options)
		api.POST("/sessions", campaignHandler.CreateSession)

		session := api.Group("/sessions/:id")
		session.GET("", campaignHandler.GetSession)
		session.DELETE("", campaignHandler.DeleteSession)
		session.POST("/run", campaignHandler.StartRun)
		session.DELETE("/run", campaignHandler.ResetRun)
		session.GET("/tasks", campaignHandler.Outstanding)
		session.GET("/scenes/:scene/image", campaignHandler.DownloadImage)
		session.GET("/scenes/:scene/audio", campaignHandler.DownloadAudio)
		session.GET("/scenes/:scene/video-prompt", campaignHandler.VideoPrompt)
		session.GET("/storyboard", campaignHandler.Storyboard)
		session.GET("/subtitles.srt", campaignHandler.Subtitles)
		session.POST("/animatic", campaignHandler.Animatic)

		session.GET("/playback", playbackHandler.GetState)
		session.POST("/playback/scenes/:scene", playbackHandler.PlayScene)
		session.POST("/playback/all", playbackHandler.PlayAll)
		session.POST("/playback/stop", playbackHandler.Stop)

		session.GET("/events", eventsHandler.Stream)
	}

	return router
}
