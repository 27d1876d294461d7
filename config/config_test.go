package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := loadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24000, cfg.TTSSampleRate)
	assert.Equal(t, 1, cfg.TTSChannels)
	assert.Equal(t, 16, cfg.TTSBitsPerSample)
	assert.Equal(t, "gemini", cfg.ScriptProvider)
	assert.Empty(t, cfg.GeminiAPIKeys)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adstudio.yaml")
	content := "port: \"9090\"\nimage_model: custom-image\ngemini_api_keys:\n  - key-a\n  - key-b\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := loadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "custom-image", cfg.ImageModel)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.GeminiAPIKeys)
	assert.Equal(t, Default.TTSModel, cfg.TTSModel)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("GEMINI_API_KEYS", " k1 , ,k2")
	t.Setenv("TTS_SAMPLE_RATE", "not-a-number")
	t.Setenv("USE_VERTEX", "true")

	cfg := Default
	applyEnv(&cfg)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, []string{"k1", "k2"}, cfg.GeminiAPIKeys)
	assert.Equal(t, 24000, cfg.TTSSampleRate, "invalid numbers fall back to the current value")
	assert.True(t, cfg.UseVertex)
}

func TestApplyEnvSingleKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEYS", "")
	t.Setenv("API_KEY", "solo")

	cfg := Default
	cfg.GeminiAPIKeys = nil
	applyEnv(&cfg)

	assert.Equal(t, []string{"solo"}, cfg.GeminiAPIKeys)
	assert.True(t, cfg.HasCredential())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"Defaults without credential", func(c *Config) {}, false},
		{"Unknown script provider", func(c *Config) { c.ScriptProvider = "other" }, true},
		{"Vertex without project", func(c *Config) { c.UseVertex = true }, true},
		{"Vertex with project", func(c *Config) { c.UseVertex = true; c.GoogleCloudProject = "p" }, false},
		{"Odd bit depth", func(c *Config) { c.TTSBitsPerSample = 12 }, true},
		{"Zero sample rate", func(c *Config) { c.TTSSampleRate = 0 }, true},
		{"Zero timeout", func(c *Config) { c.RequestTimeoutSeconds = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStringRedactsKeys(t *testing.T) {
	cfg := Default
	cfg.GeminiAPIKeys = []string{"secret-key"}
	assert.NotContains(t, cfg.String(), "secret-key")
	assert.Contains(t, cfg.String(), "Gemini Keys: 1")
}
