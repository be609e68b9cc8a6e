package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultMaxMessages = 50
	DefaultMaxTurns    = 25
	DefaultTimeout     = "120s"
)

// Config is the full application configuration. Values come from
// ~/.simple-agent/config.yaml with environment variable overrides applied on
// top.
type Config struct {
	LLM         LLMConfig     `yaml:"llm"`
	MaxMessages int           `yaml:"max_messages"`
	MaxTurns    int           `yaml:"max_turns"`
	Timeout     string        `yaml:"timeout"`
	Sandbox     SandboxConfig `yaml:"sandbox"`
	MCP         MCPConfig     `yaml:"mcp"`
	Logging     LoggingConfig `yaml:"logging"`
}

type LLMConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type SandboxConfig struct {
	// Mode selects where execute_command runs: "local" (host shell) or
	// "docker" (persistent container per session).
	Mode  string `yaml:"mode"`
	Image string `yaml:"image"`
}

type MCPConfig struct {
	Disabled bool                 `yaml:"disabled"`
	Servers  map[string]MCPServer `yaml:"servers"`
}

// MCPServer describes how to launch one external tool provider.
type MCPServer struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Dir returns the application state directory, ~/.simple-agent.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".simple-agent"), nil
}

// Load reads configuration from path. A missing file is not an error: the
// defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := &Config{
		MaxMessages: DefaultMaxMessages,
		MaxTurns:    DefaultMaxTurns,
		Timeout:     DefaultTimeout,
		LLM: LLMConfig{
			Model: DefaultModel,
		},
		Sandbox: SandboxConfig{
			Mode:  "local",
			Image: "alpine:3.20",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SIMPLE_AGENT_DISABLE_MCP"); v != "" {
		cfg.MCP.Disabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// RequestTimeout parses the configured model round-trip timeout.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}
