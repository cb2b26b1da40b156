package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
providers:
  anthropic:
    apiKeyEnv: ANTHROPIC_API_KEY
agents:
  default:
    persona:
      name: Assistant
      systemPrompt: "You are helpful."
    model:
      provider: anthropic
      modelId: claude-3-5-sonnet
    generation:
      temperature: 0.7
      maxOutputTokens: 4096
server:
  port: 9090
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDecodesFile(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ANTHROPIC_API_KEY", cfg.Providers["anthropic"].APIKeyEnv)
	require.Equal(t, "anthropic", cfg.Agents["default"].Model.Provider)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, defaultDBPath, cfg.DBPath)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, `
providers:
  made-up:
    apiKeyEnv: X
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	t.Setenv("AGENT_PORT", "7070")
	t.Setenv("PERSONAL_AGENT_DB_PATH", "/tmp/custom.sqlite")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "/tmp/custom.sqlite", cfg.DBPath)
}

func TestLoadDefaultsPortWhenUnset(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 0\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, defaultPort, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
