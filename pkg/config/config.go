// Package config loads and persists wayfind's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all settings, grouped by concern. Zero values fall back to
// defaults at load time, so a partial config file is valid.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Browser  BrowserConfig  `yaml:"browser"`
	Recovery RecoveryConfig `yaml:"recovery"`
	Security SecurityConfig `yaml:"security"`
}

// LLMConfig configures the planner's model provider. The API key is never
// stored in the file; it comes from the environment variable named by
// APIKeyEnv.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url,omitempty"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
}

// BrowserConfig configures the Playwright session.
type BrowserConfig struct {
	Headless       bool `yaml:"headless"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
	ViewportWidth  int  `yaml:"viewport_width"`
	ViewportHeight int  `yaml:"viewport_height"`
}

// RecoveryConfig bounds self-healing.
type RecoveryConfig struct {
	MaxSelfHealAttempts int `yaml:"max_self_heal_attempts"`
}

// SecurityConfig controls approval gating. RiskyActions supports glob
// patterns; AutoApprove patterns name risky kinds that skip the prompt.
type SecurityConfig struct {
	RequireApproval        bool     `yaml:"require_approval"`
	ApprovalTimeoutSeconds int      `yaml:"approval_timeout_seconds"`
	RiskyActions           []string `yaml:"risky_actions,omitempty"`
	AutoApprove            []string `yaml:"auto_approve,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       "gpt-4o",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.2,
		},
		Browser: BrowserConfig{
			Headless:       true,
			TimeoutSeconds: 30,
			ViewportWidth:  1280,
			ViewportHeight: 720,
		},
		Recovery: RecoveryConfig{
			MaxSelfHealAttempts: 2,
		},
		Security: SecurityConfig{
			RequireApproval:        true,
			ApprovalTimeoutSeconds: 120,
		},
	}
}

// DefaultPath returns the default config file location, ~/.wayfind/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".wayfind", "config.yaml"), nil
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file yields the defaults without error; a malformed or
// invalid file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	def := Default()
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = def.LLM.APIKeyEnv
	}
	if c.Browser.TimeoutSeconds == 0 {
		c.Browser.TimeoutSeconds = def.Browser.TimeoutSeconds
	}
	if c.Browser.ViewportWidth == 0 {
		c.Browser.ViewportWidth = def.Browser.ViewportWidth
	}
	if c.Browser.ViewportHeight == 0 {
		c.Browser.ViewportHeight = def.Browser.ViewportHeight
	}
	if c.Recovery.MaxSelfHealAttempts == 0 {
		c.Recovery.MaxSelfHealAttempts = def.Recovery.MaxSelfHealAttempts
	}
	if c.Security.ApprovalTimeoutSeconds == 0 {
		c.Security.ApprovalTimeoutSeconds = def.Security.ApprovalTimeoutSeconds
	}
}

// Validate rejects settings that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.Browser.TimeoutSeconds < 0 {
		return fmt.Errorf("browser.timeout_seconds must not be negative")
	}
	if c.Recovery.MaxSelfHealAttempts < 0 {
		return fmt.Errorf("recovery.max_self_heal_attempts must not be negative")
	}
	if c.Security.ApprovalTimeoutSeconds < 0 {
		return fmt.Errorf("security.approval_timeout_seconds must not be negative")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	return nil
}

// Save writes the config to path atomically, creating the directory if
// needed.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp config file: %w", err)
	}
	return nil
}

// APIKey resolves the provider API key from the configured environment
// variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

// BrowserTimeout returns the browser timeout as a duration.
func (c *Config) BrowserTimeout() time.Duration {
	return time.Duration(c.Browser.TimeoutSeconds) * time.Second
}

// ApprovalTimeout returns the approval timeout as a duration.
func (c *Config) ApprovalTimeout() time.Duration {
	return time.Duration(c.Security.ApprovalTimeoutSeconds) * time.Second
}
