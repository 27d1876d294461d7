package main

import (
	"adstudio/config"
	"adstudio/handlers"
	"adstudio/services"
	"adstudio/utils"
	"fmt"
	"log"
	"time"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Configuration loaded: %s", cfg)
	if !cfg.HasCredential() {
		log.Printf("No model credential configured: runs will be rejected until GEMINI_API_KEYS, API_KEY or USE_VERTEX is set")
	}

	// One key pool shared by every session
	keys := utils.NewAPIKeyPool(cfg.GeminiAPIKeys, time.Duration(cfg.KeyCooldownSeconds)*time.Second)
	newGenerator := func() (services.Generator, error) {
		return services.NewGenerator(cfg, keys)
	}

	audioFormat := services.AudioFormat{
		SampleRate:    cfg.TTSSampleRate,
		Channels:      cfg.TTSChannels,
		BitsPerSample: cfg.TTSBitsPerSample,
	}
	sessions := services.NewSessionManager(newGenerator, audioFormat, time.Duration(cfg.SessionTTLMinutes)*time.Minute, nil)
	if err := sessions.StartReaper(cfg.ReaperSchedule); err != nil {
		log.Fatalf("Failed to start session reaper: %v", err)
	}
	defer sessions.Shutdown()

	router := handlers.SetupRouter(cfg, sessions)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
