package jsonl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/app-vitals/simple-agent/pkg/store"
)

func TestAppendAndReload(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 50)

	l, err := m.Open("/tmp/project")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := l.Append(store.NewUserMessage("hello")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := l.Append(store.NewAssistantMessage("hi there", nil)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := m.Open("/tmp/project")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	msgs := reopened.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages after reload, got %d", len(msgs))
	}
	if msgs[0].Role != store.RoleUser || msgs[0].Content != "hello" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Role != store.RoleAssistant || msgs[1].Content != "hi there" {
		t.Errorf("unexpected second message: %+v", msgs[1])
	}
}

func TestCapEnforcementFIFO(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 4)

	l, err := m.Open("/tmp/project")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	contents := []string{"m1", "m2", "m3", "m4", "m5", "m6"}
	for _, c := range contents {
		if err := l.Append(store.NewUserMessage(c)); err != nil {
			t.Fatalf("Append(%s) failed: %v", c, err)
		}
	}

	msgs := l.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	want := []string{"m3", "m4", "m5", "m6"}
	for i, w := range want {
		if msgs[i].Content != w {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Content, w)
		}
	}
}

func TestCapDropsOrphanedToolResults(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 4)

	l, err := m.Open("/tmp/project")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	call := store.ToolCall{ID: "call-1", Name: "read_files"}
	seq := []store.Message{
		store.NewUserMessage("u1"),
		store.NewAssistantMessage("", []store.ToolCall{call}),
		store.NewToolResult(call, "file contents"),
		store.NewAssistantMessage("done", nil),
		store.NewUserMessage("u2"),
		store.NewAssistantMessage("ok", nil),
	}
	for _, msg := range seq {
		if err := l.Append(msg); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// The window of 4 would start at the tool result, whose assistant
	// message was dropped. It must be dropped too.
	msgs := l.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role == store.RoleTool {
		t.Errorf("window must not start with an orphaned tool result")
	}
}

func TestCapRewritesFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 2)

	l, err := m.Open("/tmp/project")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for _, c := range []string{"a", "b", "c"} {
		if err := l.Append(store.NewUserMessage(c)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := m.Open("/tmp/project")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	msgs := reopened.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages on disk, got %d", len(msgs))
	}
	if msgs[0].Content != "b" || msgs[1].Content != "c" {
		t.Errorf("unexpected window after rewrite: %q, %q", msgs[0].Content, msgs[1].Content)
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 50)

	l, err := m.Open("/tmp/project")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	if err := l.Append(store.NewUserMessage("hello")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := l.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("expected empty log after Clear, got %d messages", l.Len())
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty file after Clear, got %d bytes", len(data))
	}
}

func TestSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, logName("/tmp/project"))
	content := `{"id":"1","role":"user","content":"good","timestamp":"2025-01-01T00:00:00Z"}
not json at all
{"id":"2","role":"assistant","content":"also good","timestamp":"2025-01-01T00:00:01Z"}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	m := NewManager(dir, 50)
	l, err := m.Open("/tmp/project")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	msgs := l.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "good" || msgs[1].Content != "also good" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
}

func TestSubscribeNotifiesOnAppend(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 50)

	sub := m.Subscribe()

	l, err := m.Open("/tmp/project")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	if err := l.Append(store.NewUserMessage("hello")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	select {
	case path := <-sub:
		if path != l.Path() {
			t.Errorf("notified path %q, want %q", path, l.Path())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}
}
