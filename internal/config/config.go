// Package config loads the slidesmith configuration from YAML with
// environment overrides for secrets. Missing config files fall back to
// defaults; credentials never live in the file itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all slidesmith configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration (shared by the planner and generator collaborators)
	LLM LLMConfig `yaml:"llm"`

	// Pipeline orchestration settings
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Workspace allocation
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Script execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// Image sourcing for the planner
	Images ImagesConfig `yaml:"images"`

	// Email delivery
	Email EmailConfig `yaml:"email"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the model backend.
type LLMConfig struct {
	Provider string `yaml:"provider"` // anthropic, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
	// MaxTokens caps a single completion.
	MaxTokens int `yaml:"max_tokens"`
}

// PipelineConfig configures the stage orchestrator.
type PipelineConfig struct {
	// MaxIterations bounds generation attempts per request.
	MaxIterations    int    `yaml:"max_iterations"`
	ArtifactFilename string `yaml:"artifact_filename"`
	PlanTimeout      string `yaml:"plan_timeout"`
	GenerateTimeout  string `yaml:"generate_timeout"`
}

// WorkspaceConfig configures per-request workspace allocation.
type WorkspaceConfig struct {
	// BaseDir is where workspace roots are created.
	BaseDir string `yaml:"base_dir"`
}

// ExecutionConfig configures the sandboxed script runner.
type ExecutionConfig struct {
	// RunnerPath points at the deckrun binary; empty means PATH lookup.
	RunnerPath      string `yaml:"runner_path"`
	RunnerSourceDir string `yaml:"runner_source_dir"`
	Timeout         string `yaml:"timeout"`
	InstallTimeout  string `yaml:"install_timeout"`
	MaxOutputBytes  int64  `yaml:"max_output_bytes"`
}

// ImagesConfig configures topic image sourcing.
type ImagesConfig struct {
	Enabled   bool   `yaml:"enabled"`
	AccessKey string `yaml:"access_key"`
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
}

// EmailConfig configures SMTP delivery.
type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Timeout  string `yaml:"timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // optional log file, in addition to stderr
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "slidesmith",
		Version: "0.3.0",

		LLM: LLMConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			BaseURL:   "https://api.anthropic.com",
			Timeout:   "120s",
			MaxTokens: 8192,
		},

		Pipeline: PipelineConfig{
			MaxIterations:    3,
			ArtifactFilename: "presentation.deck.json",
			PlanTimeout:      "180s",
			GenerateTimeout:  "180s",
		},

		Workspace: WorkspaceConfig{
			BaseDir: "workspaces",
		},

		Execution: ExecutionConfig{
			Timeout:        "120s",
			InstallTimeout: "120s",
			MaxOutputBytes: 1 << 20,
		},

		Images: ImagesConfig{
			Enabled: true,
			BaseURL: "https://api.unsplash.com",
			Timeout: "30s",
		},

		Email: EmailConfig{
			Port:    587,
			Timeout: "60s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. Secrets are only
// taken from the environment when present there.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "anthropic"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}

	if key := os.Getenv("UNSPLASH_ACCESS_KEY"); key != "" {
		c.Images.AccessKey = key
	}

	if host := os.Getenv("SMTP_HOST"); host != "" {
		c.Email.Host = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Email.Port = p
		}
	}
	if user := os.Getenv("SMTP_USERNAME"); user != "" {
		c.Email.Username = user
	}
	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		c.Email.Password = pass
	}
	if from := os.Getenv("SENDER_EMAIL"); from != "" {
		c.Email.From = from
	}

	if dir := os.Getenv("SLIDESMITH_WORKSPACE"); dir != "" {
		c.Workspace.BaseDir = dir
	}
}

// duration parses a config duration string, falling back when unset or bad.
func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetLLMTimeout returns the LLM request timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return duration(c.LLM.Timeout, 120*time.Second)
}

// GetPlanTimeout returns the planning stage timeout.
func (c *Config) GetPlanTimeout() time.Duration {
	return duration(c.Pipeline.PlanTimeout, 180*time.Second)
}

// GetGenerateTimeout returns the generation stage timeout.
func (c *Config) GetGenerateTimeout() time.Duration {
	return duration(c.Pipeline.GenerateTimeout, 180*time.Second)
}

// GetExecutionTimeout returns the script execution deadline.
func (c *Config) GetExecutionTimeout() time.Duration {
	return duration(c.Execution.Timeout, 120*time.Second)
}

// GetInstallTimeout returns the runner install deadline.
func (c *Config) GetInstallTimeout() time.Duration {
	return duration(c.Execution.InstallTimeout, 120*time.Second)
}

// GetImagesTimeout returns the image fetch timeout.
func (c *Config) GetImagesTimeout() time.Duration {
	return duration(c.Images.Timeout, 30*time.Second)
}

// GetEmailTimeout returns the SMTP send timeout.
func (c *Config) GetEmailTimeout() time.Duration {
	return duration(c.Email.Timeout, 60*time.Second)
}
