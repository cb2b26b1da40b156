// Package config loads agent.yaml into a typed Config, applying
// environment-variable overrides for the listen port and the database
// path (spec.md §6, SPEC_FULL.md §6.E).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Allowed provider names (spec.md §6).
var allowedProviders = map[string]bool{
	"anthropic":  true,
	"openai":     true,
	"openrouter": true,
	"google":     true,
}

const (
	defaultConfigPath = "./agent.yaml"
	defaultDBPath     = "./personal-agent.sqlite"
	defaultPort       = 8080
)

// ProviderConfig names the environment variable a provider's API key is
// read from.
type ProviderConfig struct {
	APIKeyEnv string `yaml:"apiKeyEnv"`
}

// PersonaConfig is an agent's display identity and system prompt.
type PersonaConfig struct {
	Name         string `yaml:"name"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// ModelConfig binds an agent to a (provider, modelId) pair resolved via
// the Model Registry.
type ModelConfig struct {
	Provider string `yaml:"provider"`
	ModelID  string `yaml:"modelId"`
}

// GenerationConfig is the sampling configuration passed to the model on
// every call.
type GenerationConfig struct {
	Temperature     float64  `yaml:"temperature"`
	MaxOutputTokens int64    `yaml:"maxOutputTokens"`
	TopP            *float64 `yaml:"topP,omitempty"`
	Seed            *int64   `yaml:"seed,omitempty"`
}

// AgentConfig is one configured agent persona.
type AgentConfig struct {
	Persona    PersonaConfig    `yaml:"persona"`
	Model      ModelConfig      `yaml:"model"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig is the HTTP listen configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Config is the decoded shape of agent.yaml (spec.md §6).
type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Agents    map[string]AgentConfig    `yaml:"agents"`
	Server    ServerConfig              `yaml:"server"`

	// DBPath is not part of the YAML file; it is resolved from the
	// PERSONAL_AGENT_DB_PATH environment variable (spec.md §6).
	DBPath string `yaml:"-"`
}

// Load reads and decodes the config file at path (defaulting to
// "./agent.yaml", overridable by AGENT_CONFIG_PATH), then applies
// environment-variable overrides matching the teacher's "env wins over
// file value" idiom.
func Load(path string) (Config, error) {
	if path == "" {
		path = resolvedConfigPath()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if err := validateProviders(cfg); err != nil {
		return Config{}, err
	}

	applyOverrides(&cfg)
	return cfg, nil
}

func resolvedConfigPath() string {
	if v := strings.TrimSpace(os.Getenv("AGENT_CONFIG_PATH")); v != "" {
		return v
	}
	return defaultConfigPath
}

func validateProviders(cfg Config) error {
	for name := range cfg.Providers {
		if !allowedProviders[name] {
			return fmt.Errorf("config: unknown provider %q (allowed: anthropic, openai, openrouter, google)", name)
		}
	}
	for agentID, agent := range cfg.Agents {
		if agent.Model.Provider == "" {
			continue
		}
		if !allowedProviders[agent.Model.Provider] {
			return fmt.Errorf("config: agent %q references unknown provider %q", agentID, agent.Model.Provider)
		}
	}
	return nil
}

func applyOverrides(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = defaultPort
	}
	if v := strings.TrimSpace(os.Getenv("AGENT_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}

	cfg.DBPath = defaultDBPath
	if v := strings.TrimSpace(os.Getenv("PERSONAL_AGENT_DB_PATH")); v != "" {
		cfg.DBPath = v
	}
}
