package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string   `koanf:"port"`
	TempDir     string   `koanf:"temp_dir"`
	CORSOrigins []string `koanf:"cors_origins"`
	MaxUploadMB int      `koanf:"max_upload_mb"`

	// Credentials
	GeminiAPIKeys      []string `koanf:"gemini_api_keys"`
	UseVertex          bool     `koanf:"use_vertex"`
	GoogleCloudProject string   `koanf:"google_cloud_project"`
	GoogleCloudRegion  string   `koanf:"google_cloud_region"`
	KeyCooldownSeconds int      `koanf:"key_cooldown_seconds"`

	// Model backend
	GeminiBaseURL         string `koanf:"gemini_base_url"`
	ScriptProvider        string `koanf:"script_provider"` // "gemini" or "openai"
	ScriptModel           string `koanf:"script_model"`
	ImageModel            string `koanf:"image_model"`
	TTSModel              string `koanf:"tts_model"`
	OpenAIAPIKey          string `koanf:"openai_api_key"`
	OpenAIModel           string `koanf:"openai_model"`
	RequestTimeoutSeconds int    `koanf:"request_timeout_seconds"`

	// Narration audio format returned by the TTS model
	TTSSampleRate    int `koanf:"tts_sample_rate"`
	TTSChannels      int `koanf:"tts_channels"`
	TTSBitsPerSample int `koanf:"tts_bits_per_sample"`

	// Sessions
	SessionTTLMinutes int    `koanf:"session_ttl_minutes"`
	ReaperSchedule    string `koanf:"reaper_schedule"`

	// Animatic export
	AnimaticResolution string `koanf:"animatic_resolution"`
	AnimaticFPS        int    `koanf:"animatic_fps"`
}

// Default holds the built-in configuration, overridden by the YAML file and then the environment
var Default = Config{
	Port:        "8080",
	TempDir:     "./temp",
	CORSOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
	MaxUploadMB: 20,

	GoogleCloudRegion:  "us-central1",
	KeyCooldownSeconds: 60,

	GeminiBaseURL:         "https://generativelanguage.googleapis.com/v1beta",
	ScriptProvider:        "gemini",
	ScriptModel:           "gemini-3-pro-preview",
	ImageModel:            "gemini-2.5-flash-image",
	TTSModel:              "gemini-2.5-flash-preview-tts",
	OpenAIModel:           "gpt-4o-mini",
	RequestTimeoutSeconds: 120,

	TTSSampleRate:    24000,
	TTSChannels:      1,
	TTSBitsPerSample: 16,

	SessionTTLMinutes: 60,
	ReaperSchedule:    "@every 5m",

	AnimaticResolution: "1080x1080",
	AnimaticFPS:        30,
}

// LoadConfig loads configuration from defaults, an optional YAML file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg, err := loadFile(getEnv("ADSTUDIO_CONFIG", "adstudio.yaml"))
	if err != nil {
		return nil, err
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile layers the YAML file at path (when present) over Default
func loadFile(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func applyEnv(c *Config) {
	c.Port = getEnv("PORT", c.Port)
	c.TempDir = getEnv("TEMP_DIR", c.TempDir)
	c.CORSOrigins = getEnvAsList("CORS_ORIGINS", c.CORSOrigins)
	c.MaxUploadMB = getEnvAsInt("MAX_UPLOAD_MB", c.MaxUploadMB)

	// GEMINI_API_KEYS takes a comma separated pool; API_KEY is the single-key fallback
	c.GeminiAPIKeys = getEnvAsList("GEMINI_API_KEYS", c.GeminiAPIKeys)
	if len(c.GeminiAPIKeys) == 0 {
		c.GeminiAPIKeys = parseList(os.Getenv("API_KEY"))
	}
	c.UseVertex = getEnvAsBool("USE_VERTEX", c.UseVertex)
	c.GoogleCloudProject = getEnv("GOOGLE_CLOUD_PROJECT", c.GoogleCloudProject)
	c.GoogleCloudRegion = getEnv("GOOGLE_CLOUD_LOCATION", c.GoogleCloudRegion)
	c.KeyCooldownSeconds = getEnvAsInt("KEY_COOLDOWN_SECONDS", c.KeyCooldownSeconds)

	c.GeminiBaseURL = getEnv("GEMINI_BASE_URL", c.GeminiBaseURL)
	c.ScriptProvider = getEnv("SCRIPT_PROVIDER", c.ScriptProvider)
	c.ScriptModel = getEnv("SCRIPT_MODEL", c.ScriptModel)
	c.ImageModel = getEnv("IMAGE_MODEL", c.ImageModel)
	c.TTSModel = getEnv("TTS_MODEL", c.TTSModel)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
	c.RequestTimeoutSeconds = getEnvAsInt("REQUEST_TIMEOUT_SECONDS", c.RequestTimeoutSeconds)

	c.TTSSampleRate = getEnvAsInt("TTS_SAMPLE_RATE", c.TTSSampleRate)
	c.TTSChannels = getEnvAsInt("TTS_CHANNELS", c.TTSChannels)
	c.TTSBitsPerSample = getEnvAsInt("TTS_BITS_PER_SAMPLE", c.TTSBitsPerSample)

	c.SessionTTLMinutes = getEnvAsInt("SESSION_TTL_MINUTES", c.SessionTTLMinutes)
	c.ReaperSchedule = getEnv("REAPER_SCHEDULE", c.ReaperSchedule)

	c.AnimaticResolution = getEnv("ANIMATIC_RESOLUTION", c.AnimaticResolution)
	c.AnimaticFPS = getEnvAsInt("ANIMATIC_FPS", c.AnimaticFPS)
}

// Validate checks if configuration is valid.
// A missing credential is not an error here: the generation client reports it when acquired.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.ScriptProvider != "gemini" && c.ScriptProvider != "openai" {
		return fmt.Errorf("SCRIPT_PROVIDER must be gemini or openai, got %q", c.ScriptProvider)
	}
	if c.UseVertex && c.GoogleCloudProject == "" {
		return errors.New("GOOGLE_CLOUD_PROJECT is required when USE_VERTEX is set")
	}
	if c.TTSSampleRate <= 0 || c.TTSChannels <= 0 {
		return errors.New("TTS_SAMPLE_RATE and TTS_CHANNELS must be positive")
	}
	if c.TTSBitsPerSample <= 0 || c.TTSBitsPerSample%8 != 0 {
		return errors.New("TTS_BITS_PER_SAMPLE must be a positive multiple of 8")
	}
	if c.RequestTimeoutSeconds <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// HasCredential reports whether any way of authenticating to the model backend is configured
func (c *Config) HasCredential() bool {
	return len(c.GeminiAPIKeys) > 0 || c.UseVertex
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	return parseList(valueStr)
}

func parseList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %s, Gemini Keys: %d, Vertex: %t, ScriptProvider: %s, ScriptModel: %s, ImageModel: %s, TTSModel: %s}",
		c.Port, len(c.GeminiAPIKeys), c.UseVertex, c.ScriptProvider, c.ScriptModel, c.ImageModel, c.TTSModel)
}
