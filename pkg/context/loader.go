package context

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultDirName is the context directory under the working directory.
	DefaultDirName = "context"
	// ArchiveDirName receives dated session archives written by compression.
	ArchiveDirName = "context-archive"
)

// File is one named context file.
type File struct {
	Name    string
	Content string
}

// Bundle is the set of context files found under the context directory at
// prompt-build time. It is rebuilt from disk on every prompt construction so
// edits are immediately visible.
type Bundle struct {
	Files []File
}

func (b Bundle) Empty() bool { return len(b.Files) == 0 }

// Render concatenates the bundle into prompt text, one section per file.
func (b Bundle) Render() string {
	parts := make([]string, 0, len(b.Files))
	for _, f := range b.Files {
		parts = append(parts, "# Context from "+f.Name+"\n\n"+f.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// Load reads all markdown files directly under dir, in lexical name order. A
// missing directory yields an empty bundle. Unreadable files are skipped with
// a warning; partial context is better than none.
func Load(dir string) (Bundle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Bundle{}, nil
		}
		return Bundle{}, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var bundle Bundle
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("Could not read context file", "file", name, "error", err)
			continue
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			continue
		}
		bundle.Files = append(bundle.Files, File{Name: name, Content: content})
	}

	return bundle, nil
}
