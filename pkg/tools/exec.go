package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/app-vitals/simple-agent/pkg/sandbox"
)

// RegisterExecTool adds the shell execution tool backed by the given runner.
// Execution requires confirmation except for plain listing commands.
func RegisterExecTool(r *Registry, runner sandbox.Runner) {
	r.Register(&Descriptor{
		Name:        "execute_command",
		Description: "Execute a shell command",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{"type": "string", "description": "Command to execute"},
			},
			"required": []string{"command"},
		},
		RequiresConfirmation: func(args map[string]any) bool {
			cmd, _ := args["command"].(string)
			return !strings.Contains(cmd, "ls")
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			command, err := stringArg(args, "command")
			if err != nil {
				return "", err
			}

			res, err := runner.Run(ctx, command)
			if err != nil {
				return "", fmt.Errorf("failed to execute command: %w", err)
			}

			out, err := json.Marshal(res)
			if err != nil {
				return "", fmt.Errorf("failed to encode result: %w", err)
			}
			return string(out), nil
		},
		FormatResult: FormatCommandResult,
	})
}

// FormatCommandResult renders an execute_command result for display, showing
// stdout and flagging stderr. Content that does not parse is shown as-is.
func FormatCommandResult(content string) string {
	var res sandbox.Result
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		return content
	}

	var b strings.Builder
	if res.Stdout != "" {
		b.WriteString(strings.TrimRight(res.Stdout, "\n"))
	}
	if res.Stderr != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("stderr: " + strings.TrimRight(res.Stderr, "\n"))
	}
	if res.ExitCode != 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "exit code: %d", res.ExitCode)
	}
	if b.Len() == 0 {
		return "(no output)"
	}
	return b.String()
}
