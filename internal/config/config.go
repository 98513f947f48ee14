// Package config loads and validates process configuration from the
// environment. The control surface may update a copy of it at runtime;
// validation runs again on every update.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/terrabench/internal/domain"
	"github.com/ahrav/terrabench/internal/llm/configuration"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Defaults applied when the environment leaves a knob unset.
const (
	DefaultAddr          = ":8000"
	DefaultBaseDir       = "./automation_data"
	DefaultMaxIterations = 5

	minIterations = 1
	maxIterations = 20
)

// DefaultModels are evaluated when a run request does not name models.
var DefaultModels = []domain.ModelDescriptor{
	{ID: "anthropic/claude-sonnet-4", DisplayName: "Claude Sonnet 4"},
	{ID: "openai/gpt-4o", DisplayName: "GPT-4o"},
}

// Config is the full process configuration.
type Config struct {
	// Addr is the control-surface listen address.
	Addr string `json:"addr" validate:"required"`

	// BaseDir roots all run artifacts: generated code, dataset entries,
	// screenshots.
	BaseDir string `json:"base_dir" validate:"required"`

	// OpenRouterAPIKey authenticates model calls. Required to start a run,
	// not to start the server.
	OpenRouterAPIKey string `json:"openrouter_api_key"`

	// Xen Orchestra endpoint credentials, exported into the Terraform
	// provider environment.
	XOAURL      string `json:"xoa_url"`
	XOAUser     string `json:"xoa_user"`
	XOAPassword string `json:"xoa_password"`

	// Models are the default descriptors for runs that do not name any.
	Models []domain.ModelDescriptor `json:"models" validate:"required,min=1,dive"`

	// MaxIterations is the default per-attempt iteration budget.
	MaxIterations int `json:"max_iterations" validate:"min=1,max=20"`

	// RedisAddr enables the model response cache when non-empty.
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"-"`

	// CacheTTL bounds cached response lifetime.
	CacheTTL time.Duration `json:"cache_ttl"`
}

// Load builds configuration from the environment with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:             envOr("TERRABENCH_ADDR", DefaultAddr),
		BaseDir:          envOr("TERRABENCH_BASE_DIR", DefaultBaseDir),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		XOAURL:           os.Getenv("XOA_URL"),
		XOAUser:          os.Getenv("XOA_USER"),
		XOAPassword:      os.Getenv("XOA_PASSWORD"),
		Models:           DefaultModels,
		MaxIterations:    DefaultMaxIterations,
		RedisAddr:        os.Getenv("TERRABENCH_REDIS_ADDR"),
		RedisPassword:    os.Getenv("TERRABENCH_REDIS_PASSWORD"),
		CacheTTL:         24 * time.Hour,
	}

	if raw := os.Getenv("TERRABENCH_MAX_ITERATIONS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TERRABENCH_MAX_ITERATIONS %q: %w", raw, err)
		}
		cfg.MaxIterations = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, including after runtime updates.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.MaxIterations < minIterations || c.MaxIterations > maxIterations {
		return fmt.Errorf("max iterations must be in [%d, %d], got %d", minIterations, maxIterations, c.MaxIterations)
	}
	return nil
}

// DatasetDir is where dataset entries are written.
func (c *Config) DatasetDir() string { return filepath.Join(c.BaseDir, "dataset") }

// ScreenshotDir is where capture tooling drops artifacts.
func (c *Config) ScreenshotDir() string { return filepath.Join(c.BaseDir, "screenshots") }

// APIKeyPreview returns a masked form of the key safe to display.
func (c *Config) APIKeyPreview() string {
	if c.OpenRouterAPIKey == "" {
		return ""
	}
	if len(c.OpenRouterAPIKey) <= 8 {
		return "****"
	}
	return c.OpenRouterAPIKey[:4] + "..." + c.OpenRouterAPIKey[len(c.OpenRouterAPIKey)-4:]
}

// LLM maps the process configuration onto the model client configuration.
func (c *Config) LLM() configuration.Config {
	llmCfg := configuration.Default()
	llmCfg.Provider.APIKey = c.OpenRouterAPIKey

	if c.RedisAddr != "" {
		llmCfg.Cache.Enabled = true
		llmCfg.Cache.RedisAddr = c.RedisAddr
		llmCfg.Cache.RedisPassword = c.RedisPassword
		llmCfg.Cache.TTL = c.CacheTTL
	}
	return llmCfg
}

// Clone returns a deep copy safe for concurrent readers.
func (c *Config) Clone() *Config {
	out := *c
	out.Models = append([]domain.ModelDescriptor(nil), c.Models...)
	return &out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
