package docker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"

	"github.com/app-vitals/simple-agent/pkg/sandbox"
)

const workdirMount = "/workspace"

// Runner implements sandbox.Runner using a persistent Docker container. The
// container is created lazily on first use and removed on Close.
type Runner struct {
	cli       *client.Client
	image     string
	workdir   string
	name      string
	container string
}

var _ sandbox.Runner = (*Runner)(nil)

// New creates a Docker-backed runner. The host working directory is
// bind-mounted into the container so file edits and command execution see the
// same tree.
func New(image, workdir string) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &Runner{
		cli:     cli,
		image:   image,
		workdir: workdir,
		name:    "simple-agent-" + uuid.New().String()[:8],
	}, nil
}

func (r *Runner) Run(ctx context.Context, command string) (*sandbox.Result, error) {
	if err := r.ensureRunning(ctx); err != nil {
		return nil, err
	}

	slog.Info("Executing command in container", "container", r.name, "command", command)

	execResp, err := r.cli.ContainerExecCreate(ctx, r.container, types.ExecConfig{
		Cmd:          []string{"/bin/sh", "-c", command},
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   workdirMount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attach, err := r.cli.ContainerExecAttach(ctx, execResp.ID, types.ExecStartCheck{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return nil, fmt.Errorf("failed to read exec output: %w", err)
	}

	inspect, err := r.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect exec: %w", err)
	}

	return &sandbox.Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}, nil
}

func (r *Runner) Close() error {
	if r.container != "" {
		err := r.cli.ContainerRemove(context.Background(), r.container, types.ContainerRemoveOptions{
			Force: true,
		})
		if err != nil {
			slog.Warn("Failed to remove sandbox container", "container", r.name, "error", err)
		}
		r.container = ""
	}
	return r.cli.Close()
}

// ensureRunning creates and starts the session container if needed.
func (r *Runner) ensureRunning(ctx context.Context) error {
	if r.container != "" {
		c, err := r.cli.ContainerInspect(ctx, r.container)
		if err == nil && c.State.Running {
			return nil
		}
	}

	if _, _, err := r.cli.ImageInspectWithRaw(ctx, r.image); err != nil {
		return fmt.Errorf("sandbox image '%s' not found, pull it first: %w", r.image, err)
	}

	cfg := &container.Config{
		Image:      r.image,
		Cmd:        []string{"sleep", "infinity"},
		WorkingDir: workdirMount,
	}
	hostCfg := &container.HostConfig{
		Binds: []string{r.workdir + ":" + workdirMount},
	}

	resp, err := r.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, r.name)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	if err := r.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}

	r.container = resp.ID
	return nil
}
