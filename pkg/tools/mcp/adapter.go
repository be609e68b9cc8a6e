package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/app-vitals/simple-agent/pkg/config"
	"github.com/app-vitals/simple-agent/pkg/tools"
)

// Discover starts every configured server and registers its tools. Servers
// are processed in name order so the declaration order sent to the model is
// the same every session. A server that fails to start or enumerate is
// logged and skipped; the rest of the servers still register. Returns the
// manager so the caller can Close it.
func Discover(ctx context.Context, registry *tools.Registry, servers map[string]config.MCPServer, logDir string) *Manager {
	manager := NewManager()
	for _, name := range serverNames(servers) {
		server := servers[name]
		if err := manager.Start(ctx, name, server, logDir); err != nil {
			slog.Warn("mcp server unavailable", "server", name, "err", err)
			continue
		}
		discovered, err := manager.ListTools(ctx, name)
		if err != nil {
			slog.Warn("mcp tool discovery failed", "server", name, "err", err)
			continue
		}
		for _, tool := range discovered {
			registry.Register(descriptor(manager, name, tool))
		}
		slog.Info("mcp server connected", "server", name, "tools", len(discovered))
	}
	return manager
}

func serverNames(servers map[string]config.MCPServer) []string {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// descriptor wraps one remote tool as a registry entry. The name is prefixed
// with the server name so two servers exposing the same tool stay distinct.
func descriptor(manager *Manager, server string, tool *mcp.Tool) *tools.Descriptor {
	remoteName := tool.Name
	return &tools.Descriptor{
		Name:        server + "__" + remoteName,
		Description: tool.Description,
		Schema:      schemaToMap(tool.InputSchema),
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return manager.CallTool(ctx, server, remoteName, args)
		},
		// Remote tools run arbitrary code we cannot inspect, so every call
		// requires approval.
		RequiresConfirmation: func(map[string]any) bool { return true },
		FormatResult: func(string) string {
			return "✓ Tool executed"
		},
	}
}

// schemaToMap converts the SDK's schema representation to the plain map the
// registry carries. Both are JSON schema, so a marshal round-trip suffices.
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return map[string]any{}
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// flattenContent extracts the text from a tool result. Multiple text parts
// are joined; anything non-textual is emitted as JSON so nothing is lost.
func flattenContent(content []mcp.Content) (string, error) {
	var parts []string
	for _, item := range content {
		if text, ok := item.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
			continue
		}
		raw, err := json.Marshal(item)
		if err != nil {
			return "", err
		}
		parts = append(parts, string(raw))
	}
	return strings.Join(parts, "\n"), nil
}
