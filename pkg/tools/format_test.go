package tools

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCleanPath(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	if got := CleanPath(filepath.Join(cwd, "sub", "file.txt")); got != "sub/file.txt" {
		t.Errorf("CleanPath under cwd = %q", got)
	}
	if got := CleanPath(cwd); got != "." {
		t.Errorf("CleanPath(cwd) = %q, want .", got)
	}
	if got := CleanPath("/elsewhere/file.txt"); got != "/elsewhere/file.txt" {
		t.Errorf("paths outside cwd must be unchanged, got %q", got)
	}
}

func TestFormatArgs(t *testing.T) {
	got := FormatArgs(map[string]any{
		"command": "ls -la",
		"count":   float64(3),
	})
	want := "command='ls -la', count=3"
	if got != want {
		t.Errorf("FormatArgs = %q, want %q", got, want)
	}
}

func TestFormatArgsFilePaths(t *testing.T) {
	got := FormatArgs(map[string]any{
		"file_paths": []any{"/elsewhere/a.txt", "/elsewhere/b.txt"},
	})
	want := "/elsewhere/a.txt, /elsewhere/b.txt"
	if got != want {
		t.Errorf("FormatArgs = %q, want %q", got, want)
	}
}

func TestFormatCommandResult(t *testing.T) {
	got := FormatCommandResult(`{"stdout":"hello\n","stderr":"","exit_code":0}`)
	if got != "hello" {
		t.Errorf("stdout only = %q", got)
	}

	got = FormatCommandResult(`{"stdout":"","stderr":"boom\n","exit_code":1}`)
	if got != "stderr: boom\nexit code: 1" {
		t.Errorf("stderr with exit code = %q", got)
	}

	if got := FormatCommandResult("not json"); got != "not json" {
		t.Errorf("unparseable content must pass through, got %q", got)
	}

	if got := FormatCommandResult(`{"stdout":"","stderr":"","exit_code":0}`); got != "(no output)" {
		t.Errorf("empty result = %q", got)
	}
}
