package sandbox

import (
	"context"
	"strings"
	"testing"
)

func TestLocalRun(t *testing.T) {
	r := NewLocal(t.TempDir())
	defer r.Close()

	res, err := r.Run(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
}

func TestLocalRunNonZeroExit(t *testing.T) {
	r := NewLocal(t.TempDir())
	defer r.Close()

	res, err := r.Run(context.Background(), "echo oops >&2; exit 3")
	if err != nil {
		t.Fatalf("non-zero exit must not be an error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
	if strings.TrimSpace(res.Stderr) != "oops" {
		t.Errorf("stderr = %q", res.Stderr)
	}
}

func TestLocalRunUsesWorkdir(t *testing.T) {
	dir := t.TempDir()
	r := NewLocal(dir)
	defer r.Close()

	res, err := r.Run(context.Background(), "pwd")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.TrimSpace(res.Stdout) == "" {
		t.Fatal("pwd produced no output")
	}
}
