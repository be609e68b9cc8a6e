package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// RegisterFileTools adds the builtin file operation tools to the registry.
// Read-only tools run without confirmation; tools that modify the filesystem
// require it.
func RegisterFileTools(r *Registry) {
	r.Register(readFilesTool())
	r.Register(writeFileTool())
	r.Register(patchFileTool())
	r.Register(listDirectoryTool())
	r.Register(globFilesTool())
	r.Register(grepFilesTool())
}

func always(map[string]any) bool { return true }

func readFilesTool() *Descriptor {
	return &Descriptor{
		Name:        "read_files",
		Description: "Read the contents of one or more files in a single operation for improved efficiency",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_paths": map[string]any{
					"type":        "array",
					"description": "List of file paths to read (for efficiency, include multiple files when needed)",
					"items":       map[string]any{"type": "string"},
				},
			},
			"required": []string{"file_paths"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			paths, err := stringSliceArg(args, "file_paths")
			if err != nil {
				return "", err
			}

			slog.Info("Reading files", "count", len(paths))
			results := make(map[string]*string, len(paths))
			for _, path := range paths {
				data, err := os.ReadFile(path)
				if err != nil {
					slog.Warn("Failed to read file", "path", path, "error", err)
					results[path] = nil
					continue
				}
				s := string(data)
				results[path] = &s
			}

			out, err := json.Marshal(results)
			if err != nil {
				return "", fmt.Errorf("failed to encode results: %w", err)
			}
			return string(out), nil
		},
	}
}

func writeFileTool() *Descriptor {
	return &Descriptor{
		Name:        "write_file",
		Description: "Write content to a file",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{"type": "string", "description": "Path to the file to write"},
				"content":   map[string]any{"type": "string", "description": "Content to write to the file"},
			},
			"required": []string{"file_path", "content"},
		},
		RequiresConfirmation: always,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path, err := stringArg(args, "file_path")
			if err != nil {
				return "", err
			}
			content, err := stringArg(args, "content")
			if err != nil {
				return "", err
			}

			slog.Info("Writing file", "path", path, "size", len(content))
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return "", fmt.Errorf("failed to create directories: %w", err)
			}
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				return "", fmt.Errorf("failed to write file: %w", err)
			}
			return "true", nil
		},
	}
}

func patchFileTool() *Descriptor {
	return &Descriptor{
		Name:        "patch_file",
		Description: "Replace specific content in a file",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path":   map[string]any{"type": "string", "description": "Path to the file to patch"},
				"old_content": map[string]any{"type": "string", "description": "Content to be replaced"},
				"new_content": map[string]any{"type": "string", "description": "New content to replace with"},
			},
			"required": []string{"file_path", "old_content", "new_content"},
		},
		RequiresConfirmation: always,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path, err := stringArg(args, "file_path")
			if err != nil {
				return "", err
			}
			oldContent, err := stringArg(args, "old_content")
			if err != nil {
				return "", err
			}
			newContent, err := stringArg(args, "new_content")
			if err != nil {
				return "", err
			}

			slog.Info("Patching file", "path", path)
			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("failed to read file: %w", err)
			}
			if !strings.Contains(string(data), oldContent) {
				return "", fmt.Errorf("old content not found in %s", path)
			}

			updated := strings.ReplaceAll(string(data), oldContent, newContent)
			if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
				return "", fmt.Errorf("failed to write file: %w", err)
			}
			return "true", nil
		},
	}
}

type dirEntry struct {
	Name     string       `json:"name"`
	Path     string       `json:"path"`
	Size     int64        `json:"size,omitempty"`
	Modified int64        `json:"modified,omitempty"`
	Children *dirChildren `json:"children,omitempty"`
}

type dirChildren struct {
	Dirs  []dirEntry `json:"dirs"`
	Files []dirEntry `json:"files"`
}

func listDirectoryTool() *Descriptor {
	return &Descriptor{
		Name:        "list_directory",
		Description: "List directories and files in a given directory path",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"directory_path": map[string]any{"type": "string", "description": "Path to the directory to list"},
				"show_hidden":    map[string]any{"type": "boolean", "description": "Whether to include hidden files and directories (those starting with .)"},
				"recursive":      map[string]any{"type": "boolean", "description": "Whether to list subdirectories recursively"},
				"max_depth":      map[string]any{"type": "integer", "description": "Maximum recursion depth (only used if recursive=true)"},
			},
			"required": []string{"directory_path"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			dir, err := stringArg(args, "directory_path")
			if err != nil {
				return "", err
			}
			showHidden := optBoolArg(args, "show_hidden", false)
			recursive := optBoolArg(args, "recursive", false)
			maxDepth := optIntArg(args, "max_depth", 3)

			slog.Info("Listing directory", "path", dir)
			info, err := os.Stat(dir)
			if err != nil {
				return "", fmt.Errorf("path does not exist: %s", dir)
			}
			if !info.IsDir() {
				return "", fmt.Errorf("not a directory: %s", dir)
			}

			listing, err := scanDirectory(dir, showHidden, recursive, maxDepth, 0)
			if err != nil {
				return "", err
			}

			out, err := json.Marshal(listing)
			if err != nil {
				return "", fmt.Errorf("failed to encode listing: %w", err)
			}
			return string(out), nil
		},
	}
}

type dirListing struct {
	Path  string     `json:"path"`
	Name  string     `json:"name"`
	Dirs  []dirEntry `json:"dirs"`
	Files []dirEntry `json:"files"`
}

func scanDirectory(dir string, showHidden, recursive bool, maxDepth, depth int) (*dirListing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	listing := &dirListing{
		Path:  dir,
		Name:  filepath.Base(dir),
		Dirs:  []dirEntry{},
		Files: []dirEntry{},
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if !showHidden && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		full := filepath.Join(dir, e.Name())

		if e.IsDir() {
			d := dirEntry{Name: e.Name(), Path: full}
			if recursive && depth < maxDepth {
				sub, err := scanDirectory(full, showHidden, recursive, maxDepth, depth+1)
				if err == nil {
					d.Children = &dirChildren{Dirs: sub.Dirs, Files: sub.Files}
				}
			}
			listing.Dirs = append(listing.Dirs, d)
			continue
		}

		fi, err := e.Info()
		if err != nil {
			continue
		}
		listing.Files = append(listing.Files, dirEntry{
			Name:     e.Name(),
			Path:     full,
			Size:     fi.Size(),
			Modified: fi.ModTime().Unix(),
		})
	}

	return listing, nil
}

func globFilesTool() *Descriptor {
	return &Descriptor{
		Name:        "glob_files",
		Description: "Find files matching a glob pattern",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern":        map[string]any{"type": "string", "description": `Glob pattern to match (e.g., "*.go", "**/*.json")`},
				"base_dir":       map[string]any{"type": "string", "description": "Base directory to start the search from (defaults to current directory)"},
				"include_hidden": map[string]any{"type": "boolean", "description": "Whether to include hidden files (starting with .)"},
			},
			"required": []string{"pattern"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			pattern, err := stringArg(args, "pattern")
			if err != nil {
				return "", err
			}
			baseDir := optStringArg(args, "base_dir", ".")
			includeHidden := optBoolArg(args, "include_hidden", false)

			slog.Info("Globbing files", "pattern", pattern, "base_dir", baseDir)
			info, err := os.Stat(baseDir)
			if err != nil || !info.IsDir() {
				return "", fmt.Errorf("base directory does not exist: %s", baseDir)
			}

			var matched []string
			if strings.Contains(pattern, "**") {
				matched, err = globRecursive(baseDir, pattern, includeHidden)
			} else {
				matched, err = filepath.Glob(filepath.Join(baseDir, pattern))
			}
			if err != nil {
				return "", fmt.Errorf("glob search failed: %w", err)
			}

			result := make([]string, 0, len(matched))
			for _, path := range matched {
				fi, err := os.Stat(path)
				if err != nil || fi.IsDir() {
					continue
				}
				if !includeHidden && strings.HasPrefix(filepath.Base(path), ".") {
					continue
				}
				result = append(result, path)
			}

			// Newest first
			sort.Slice(result, func(i, j int) bool {
				fi, erri := os.Stat(result[i])
				fj, errj := os.Stat(result[j])
				if erri != nil || errj != nil {
					return result[i] < result[j]
				}
				return fi.ModTime().After(fj.ModTime())
			})

			out, err := json.Marshal(result)
			if err != nil {
				return "", fmt.Errorf("failed to encode results: %w", err)
			}
			return string(out), nil
		},
	}
}

// globRecursive handles "**" patterns by walking the tree and matching the
// trailing pattern component against each file name.
func globRecursive(baseDir, pattern string, includeHidden bool) ([]string, error) {
	idx := strings.Index(pattern, "**")
	prefix := strings.TrimSuffix(pattern[:idx], "/")
	suffix := strings.TrimPrefix(pattern[idx+2:], "/")

	root := baseDir
	if prefix != "" {
		root = filepath.Join(baseDir, prefix)
	}

	var matched []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if !includeHidden && strings.HasPrefix(name, ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if suffix == "" {
			matched = append(matched, path)
			return nil
		}
		ok, _ := filepath.Match(suffix, name)
		if ok {
			matched = append(matched, path)
		}
		return nil
	})
	return matched, err
}

type grepMatch struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

func grepFilesTool() *Descriptor {
	return &Descriptor{
		Name:        "grep_files",
		Description: "Search file contents for a regular expression pattern",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern":         map[string]any{"type": "string", "description": "Regular expression pattern to search for in file contents"},
				"file_paths":      map[string]any{"type": "array", "description": "List of specific file paths to search (optional)", "items": map[string]any{"type": "string"}},
				"directory":       map[string]any{"type": "string", "description": "Directory to search in (optional, default: current directory)"},
				"include_pattern": map[string]any{"type": "string", "description": `File pattern to include (e.g., "*.go")`},
				"case_sensitive":  map[string]any{"type": "boolean", "description": "Whether the search should be case-sensitive"},
				"include_hidden":  map[string]any{"type": "boolean", "description": "Whether to include hidden files (starting with .)"},
				"max_results":     map[string]any{"type": "integer", "description": "Maximum number of results to return"},
			},
			"required": []string{"pattern"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			pattern, err := stringArg(args, "pattern")
			if err != nil {
				return "", err
			}
			caseSensitive := optBoolArg(args, "case_sensitive", false)
			includeHidden := optBoolArg(args, "include_hidden", false)
			maxResults := optIntArg(args, "max_results", 1000)
			includePattern := optStringArg(args, "include_pattern", "")
			directory := optStringArg(args, "directory", "")
			filePaths := optStringSliceArg(args, "file_paths")

			expr := pattern
			if !caseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return "", fmt.Errorf("invalid regex pattern: %w", err)
			}

			files, err := grepTargets(filePaths, directory, includePattern, includeHidden)
			if err != nil {
				return "", err
			}

			slog.Info("Searching files", "pattern", pattern, "files", len(files))
			results := make(map[string][]grepMatch)
			total := 0
			for _, path := range files {
				if total >= maxResults {
					break
				}
				data, err := os.ReadFile(path)
				if err != nil {
					slog.Warn("Failed to read file", "path", path, "error", err)
					continue
				}
				var matches []grepMatch
				for i, line := range strings.Split(string(data), "\n") {
					if re.MatchString(line) {
						matches = append(matches, grepMatch{Line: i + 1, Text: line})
						total++
						if total >= maxResults {
							break
						}
					}
				}
				if len(matches) > 0 {
					results[path] = matches
				}
			}

			out, err := json.Marshal(results)
			if err != nil {
				return "", fmt.Errorf("failed to encode results: %w", err)
			}
			return string(out), nil
		},
	}
}

func grepTargets(filePaths []string, directory, includePattern string, includeHidden bool) ([]string, error) {
	if len(filePaths) > 0 {
		var files []string
		for _, path := range filePaths {
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				files = append(files, path)
			} else {
				slog.Warn("Not a file, skipping", "path", path)
			}
		}
		return files, nil
	}

	baseDir := directory
	if baseDir == "" {
		baseDir = "."
	}
	info, err := os.Stat(baseDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s is not a valid directory", baseDir)
	}

	var files []string
	err = filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if !includeHidden && strings.HasPrefix(name, ".") && path != baseDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if includePattern != "" {
			if ok, _ := filepath.Match(includePattern, name); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}
