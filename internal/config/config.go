package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Provider    ProviderConfig    `yaml:"provider"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds database connection settings. An empty URL runs the
// engine on in-memory repositories only.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ProviderConfig holds the language-model runtime settings. BaseURL points
// at an OpenAI-compatible endpoint such as a local Ollama at
// http://localhost:11434/v1.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// ConcurrencyConfig caps simultaneously running executions.
type ConcurrencyConfig struct {
	GlobalMax   int `yaml:"global_max"`   // max concurrent executions system-wide (default: 10)
	PerWorkflow int `yaml:"per_workflow"` // max concurrent executions per workflow (default: 3)
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Provider: ProviderConfig{
			BaseURL: "http://localhost:11434/v1",
			Model:   "llama3",
		},
	}
}

// Load reads a YAML configuration file at path and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadDefault tries to load "config.yaml" from the current directory.
// If the file does not exist, it returns defaults with environment
// overrides applied. Any other error is returned.
func LoadDefault() (*Config, error) {
	cfg, err := Load("config.yaml")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = defaults()
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets the environment override file values, so a .env file or
// container env wins without editing config.yaml.
func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("MODEL_BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv("MODEL_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		c.Provider.Model = v
	}
}
