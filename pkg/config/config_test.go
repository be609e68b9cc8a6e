package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, cfg.LLM.Model)
	assert.Equal(t, DefaultMaxMessages, cfg.MaxMessages)
	assert.Equal(t, DefaultMaxTurns, cfg.MaxTurns)
	assert.Equal(t, "local", cfg.Sandbox.Mode)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout())
	assert.False(t, cfg.MCP.Disabled)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  api_key: yaml-key
  model: gemini-2.5-pro
max_messages: 10
timeout: 30s
sandbox:
  mode: docker
  image: ubuntu:24.04
mcp:
  servers:
    filesystem:
      command: npx
      args: ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"]
      env:
        DEBUG: "1"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml-key", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, 10, cfg.MaxMessages)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "docker", cfg.Sandbox.Mode)

	srv, ok := cfg.MCP.Servers["filesystem"]
	require.True(t, ok)
	assert.Equal(t, "npx", srv.Command)
	assert.Len(t, srv.Args, 3)
	assert.Equal(t, "1", srv.Env["DEBUG"])
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  api_key: yaml-key
  model: gemini-2.5-pro
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("LLM_MODEL", "gemini-2.0-flash")
	t.Setenv("SIMPLE_AGENT_DISABLE_MCP", "1")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.True(t, cfg.MCP.Disabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestInvalidTimeoutFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: nonsense\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout())
}
