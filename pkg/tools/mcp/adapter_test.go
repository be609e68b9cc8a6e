package mcp

import (
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/app-vitals/simple-agent/pkg/config"
)

func TestSchemaToMap(t *testing.T) {
	if got := schemaToMap(nil); len(got) != 0 {
		t.Errorf("nil schema: got %v, want empty map", got)
	}

	m := map[string]any{"type": "object"}
	if got := schemaToMap(m); got["type"] != "object" {
		t.Errorf("map passthrough: got %v", got)
	}

	type schema struct {
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties,omitempty"`
	}
	got := schemaToMap(&schema{
		Type:       "object",
		Properties: map[string]any{"path": map[string]any{"type": "string"}},
	})
	if got["type"] != "object" {
		t.Errorf("struct round-trip: got %v", got)
	}
	props, ok := got["properties"].(map[string]any)
	if !ok || props["path"] == nil {
		t.Errorf("struct round-trip lost properties: got %v", got)
	}
}

func TestFlattenContent(t *testing.T) {
	text, err := flattenContent([]mcp.Content{
		&mcp.TextContent{Text: "first"},
		&mcp.TextContent{Text: "second"},
	})
	if err != nil {
		t.Fatalf("flattenContent: %v", err)
	}
	if text != "first\nsecond" {
		t.Errorf("got %q, want %q", text, "first\nsecond")
	}

	empty, err := flattenContent(nil)
	if err != nil {
		t.Fatalf("flattenContent empty: %v", err)
	}
	if empty != "" {
		t.Errorf("empty content: got %q", empty)
	}
}

func TestServerNamesSorted(t *testing.T) {
	servers := map[string]config.MCPServer{
		"zeta":   {Command: "z"},
		"alpha":  {Command: "a"},
		"github": {Command: "g"},
	}

	got := serverNames(servers)
	want := []string{"alpha", "github", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestDescriptorNamespacing(t *testing.T) {
	m := NewManager()
	d := descriptor(m, "github", &mcp.Tool{Name: "create_issue", Description: "Open an issue"})

	if d.Name != "github__create_issue" {
		t.Errorf("name: got %q", d.Name)
	}
	if !d.RequiresConfirmation(nil) {
		t.Error("remote tools must require confirmation")
	}
	if got := d.FormatResult("raw output"); got != "✓ Tool executed" {
		t.Errorf("FormatResult: got %q", got)
	}
}
