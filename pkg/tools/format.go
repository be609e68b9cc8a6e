package tools

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// CleanPath strips the current working directory prefix from a path for
// display. Paths outside the working directory are returned unchanged.
func CleanPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, cwd) {
		clean := strings.TrimLeft(path[len(cwd):], "/")
		if clean == "" {
			return "."
		}
		return clean
	}
	return path
}

// FormatArgs renders tool arguments for display, with working-directory
// prefixes stripped from string values. Keys are sorted for stable output.
func FormatArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, formatArg(k, args[k]))
	}
	return strings.Join(parts, ", ")
}

func formatArg(key string, value any) string {
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%s='%s'", key, CleanPath(v))
	case []any:
		strs, ok := stringSlice(v)
		if !ok {
			return fmt.Sprintf("%s=%v", key, v)
		}
		if key == "file_paths" {
			cleaned := make([]string, len(strs))
			for i, s := range strs {
				cleaned[i] = CleanPath(s)
			}
			return strings.Join(cleaned, ", ")
		}
		quoted := make([]string, len(strs))
		for i, s := range strs {
			quoted[i] = "'" + CleanPath(s) + "'"
		}
		return fmt.Sprintf("%s=[%s]", key, strings.Join(quoted, ", "))
	default:
		return fmt.Sprintf("%s=%v", key, v)
	}
}

func stringSlice(vals []any) ([]string, bool) {
	out := make([]string, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// Argument extraction helpers. Model-provided arguments arrive as untyped
// JSON values, so numbers are float64 and arrays are []any.

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok {
		return "", fmt.Errorf("argument '%s' is required and must be a string", key)
	}
	return v, nil
}

func optStringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return def
}

func optBoolArg(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

func optIntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func stringSliceArg(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key].([]any)
	if !ok {
		return nil, fmt.Errorf("argument '%s' is required and must be an array of strings", key)
	}
	out, ok := stringSlice(raw)
	if !ok {
		return nil, fmt.Errorf("argument '%s' must contain only strings", key)
	}
	return out, nil
}

func optStringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out, _ := stringSlice(raw)
	return out
}
