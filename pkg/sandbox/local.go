package sandbox

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
)

// Local runs commands directly on the host through the shell.
type Local struct {
	Workdir string
}

var _ Runner = (*Local)(nil)

func NewLocal(workdir string) *Local {
	return &Local{Workdir: workdir}
}

func (l *Local) Run(ctx context.Context, command string) (*Result, error) {
	slog.Info("Executing command", "command", command)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = l.Workdir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return nil, err
	}
	return res, nil
}

func (l *Local) Close() error { return nil }
