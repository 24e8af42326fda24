package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "slidesmith", cfg.Name)
	assert.Equal(t, 3, cfg.Pipeline.MaxIterations)
	assert.Equal(t, "presentation.deck.json", cfg.Pipeline.ArtifactFilename)
	assert.Equal(t, 120*time.Second, cfg.GetLLMTimeout())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
llm:
  provider: openai
  model: gpt-4o
  base_url: https://example.test/v1
  timeout: 45s
pipeline:
  max_iterations: 5
  artifact_filename: deck.json
execution:
  timeout: 90s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 5, cfg.Pipeline.MaxIterations)
	assert.Equal(t, "deck.json", cfg.Pipeline.ArtifactFilename)
	assert.Equal(t, 90*time.Second, cfg.GetExecutionTimeout())

	// Unspecified sections keep their defaults.
	assert.Equal(t, 587, cfg.Email.Port)
	assert.True(t, cfg.Images.Enabled)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
llm:
  provider: openai
  api_key: from-file
email:
  host: file.example.test
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SMTP_HOST", "smtp.example.test")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_PASSWORD", "hunter2")
	t.Setenv("SENDER_EMAIL", "decks@example.test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "smtp.example.test", cfg.Email.Host)
	assert.Equal(t, 2525, cfg.Email.Port)
	assert.Equal(t, "hunter2", cfg.Email.Password)
	assert.Equal(t, "decks@example.test", cfg.Email.From)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Pipeline.MaxIterations = 7
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Pipeline.MaxIterations)
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "not-a-duration"
	cfg.Execution.Timeout = "-5s"

	assert.Equal(t, 120*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 120*time.Second, cfg.GetExecutionTimeout())
}
