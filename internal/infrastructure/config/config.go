// Package config loads workspace settings for the reasoning provider.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/verdictlabs/verdict/pkg/storage"
	"gopkg.in/yaml.v3"
)

// Config stores provider defaults outside the domain.
type Config struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// TimeoutSeconds bounds each reasoning call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// MaxAttempts is the retry budget per reasoning call.
	MaxAttempts int `yaml:"max_attempts"`
	// StrictCorpus aborts startup on any invalid corpus record.
	StrictCorpus bool `yaml:"strict_corpus"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Provider:       "anthropic",
		Model:          "",
		Temperature:    0.2,
		MaxTokens:      4096,
		TimeoutSeconds: 120,
		MaxAttempts:    3,
	}
}

func path(root string) string {
	return filepath.Join(root, storage.VerdictDir, storage.ConfigFile)
}

// Load reads .verdict/config.yaml, falling back to defaults when absent.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration back.
func Save(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path(root), data, 0600)
}

// APIKey resolves the key for a provider from the environment.
func APIKey(provider string) string {
	switch provider {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}
