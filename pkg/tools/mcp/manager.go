// Package mcp connects external tool providers over the Model Context
// Protocol and registers their tools alongside the built-in ones.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/app-vitals/simple-agent/pkg/config"
)

// Manager owns the sessions to running MCP servers. Each server is a child
// process speaking stdio; its stderr goes to a per-server log file so a
// chatty server cannot scribble over the terminal.
type Manager struct {
	sessions map[string]*mcp.ClientSession
	logs     []*os.File
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*mcp.ClientSession),
	}
}

// Start launches the server process and completes the MCP handshake. The
// session stays open until Close.
func (m *Manager) Start(ctx context.Context, name string, server config.MCPServer, logDir string) error {
	if _, ok := m.sessions[name]; ok {
		return fmt.Errorf("server %q already started", name)
	}

	logFile, err := os.OpenFile(filepath.Join(logDir, "mcp-"+name+".log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open server log: %w", err)
	}

	cmd := exec.Command(server.Command, server.Args...)
	cmd.Env = os.Environ()
	for k, v := range server.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stderr = logFile

	client := mcp.NewClient(&mcp.Implementation{Name: "simple-agent", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		logFile.Close()
		return fmt.Errorf("connect to %q: %w", name, err)
	}

	m.sessions[name] = session
	m.logs = append(m.logs, logFile)
	return nil
}

// ListTools returns the tools advertised by a started server.
func (m *Manager) ListTools(ctx context.Context, name string) ([]*mcp.Tool, error) {
	session, ok := m.sessions[name]
	if !ok {
		return nil, fmt.Errorf("server %q not started", name)
	}
	var out []*mcp.Tool
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("list tools on %q: %w", name, err)
		}
		out = append(out, tool)
	}
	return out, nil
}

// CallTool invokes a tool on a started server and returns the text content
// of the result. Non-text content is marshalled as JSON.
func (m *Manager) CallTool(ctx context.Context, name, tool string, args map[string]any) (string, error) {
	session, ok := m.sessions[name]
	if !ok {
		return "", fmt.Errorf("server %q not started", name)
	}
	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return "", err
	}
	text, err := flattenContent(result.Content)
	if err != nil {
		return "", err
	}
	if result.IsError {
		return "", fmt.Errorf("%s", text)
	}
	return text, nil
}

// Close shuts down every session and log file. Always safe to call; errors
// from individual sessions do not stop the rest.
func (m *Manager) Close() error {
	var firstErr error
	for name, session := range m.sessions {
		if err := session.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %q: %w", name, err)
		}
		delete(m.sessions, name)
	}
	for _, f := range m.logs {
		f.Close()
	}
	m.logs = nil
	return firstErr
}
