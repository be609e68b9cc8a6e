package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, r *Registry, name string, args map[string]any) string {
	t.Helper()
	d, err := r.Get(name)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", name, err)
	}
	out, err := d.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	return out
}

func newFileRegistry() *Registry {
	r := NewRegistry()
	RegisterFileTools(r)
	return r
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.txt")

	out := execute(t, newFileRegistry(), "read_files", map[string]any{
		"file_paths": []any{path, missing},
	})

	var results map[string]*string
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if results[path] == nil || *results[path] != "hello" {
		t.Errorf("unexpected content for %s: %v", path, results[path])
	}
	if results[missing] != nil {
		t.Errorf("missing file must map to null, got %v", *results[missing])
	}
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "deep", "out.txt")

	out := execute(t, newFileRegistry(), "write_file", map[string]any{
		"file_path": path,
		"content":   "written",
	})
	if out != "true" {
		t.Errorf("unexpected result: %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(data) != "written" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestPatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("one two three"), 0644); err != nil {
		t.Fatal(err)
	}

	r := newFileRegistry()
	out := execute(t, r, "patch_file", map[string]any{
		"file_path":   path,
		"old_content": "two",
		"new_content": "2",
	})
	if out != "true" {
		t.Errorf("unexpected result: %q", out)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "one 2 three" {
		t.Errorf("unexpected content after patch: %q", data)
	}

	d, _ := r.Get("patch_file")
	_, err := d.Execute(context.Background(), map[string]any{
		"file_path":   path,
		"old_content": "not there",
		"new_content": "x",
	})
	if err == nil {
		t.Error("expected error when old content is absent")
	}
}

func TestListDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "visible.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	out := execute(t, newFileRegistry(), "list_directory", map[string]any{
		"directory_path": dir,
	})

	var listing struct {
		Dirs  []map[string]any `json:"dirs"`
		Files []map[string]any `json:"files"`
	}
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(listing.Dirs) != 1 || listing.Dirs[0]["name"] != "sub" {
		t.Errorf("unexpected dirs: %v", listing.Dirs)
	}
	if len(listing.Files) != 1 || listing.Files[0]["name"] != "visible.txt" {
		t.Errorf("hidden files must be skipped by default: %v", listing.Files)
	}
}

func TestGlobFilesRecursive(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "a", "b"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"top.go", "a/mid.go", "a/b/deep.go", "a/b/skip.txt"} {
		if err := os.WriteFile(filepath.Join(dir, p), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	out := execute(t, newFileRegistry(), "glob_files", map[string]any{
		"pattern":  "**/*.go",
		"base_dir": dir,
	})

	var paths []string
	if err := json.Unmarshal([]byte(out), &paths); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 matches, got %d: %v", len(paths), paths)
	}
	for _, p := range paths {
		if !strings.HasSuffix(p, ".go") {
			t.Errorf("non-matching path returned: %s", p)
		}
	}
}

func TestGrepFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Needle here\nnothing\nneedle again\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("nothing at all\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out := execute(t, newFileRegistry(), "grep_files", map[string]any{
		"pattern":   "needle",
		"directory": dir,
	})

	var results map[string][]grepMatch
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected matches in 1 file, got %d", len(results))
	}
	matches := results[filepath.Join(dir, "a.txt")]
	if len(matches) != 2 {
		t.Fatalf("case-insensitive search should find 2 matches, got %d", len(matches))
	}
	if matches[0].Line != 1 || matches[1].Line != 3 {
		t.Errorf("unexpected line numbers: %v", matches)
	}
}

func TestGrepFilesInvalidRegex(t *testing.T) {
	r := newFileRegistry()
	d, _ := r.Get("grep_files")
	_, err := d.Execute(context.Background(), map[string]any{"pattern": "(["})
	if err == nil {
		t.Error("expected error for invalid regex")
	}
}
