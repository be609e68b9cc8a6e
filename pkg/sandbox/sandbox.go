package sandbox

import "context"

// Result represents the output of a command execution.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Runner executes shell commands on behalf of the agent. A non-zero exit code
// is a normal result, not an error; errors mean the command could not be run
// at all.
type Runner interface {
	Run(ctx context.Context, command string) (*Result, error)

	// Close releases any resources held by the runner.
	Close() error
}
