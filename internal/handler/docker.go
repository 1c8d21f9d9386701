package handler

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ridgeback/tasq/internal/types"
)

// DockerHandler runs a task as `docker run --name <container> [args...]
// [-e K=V ...] <image> [command...]`, invoking the docker CLI as a
// black-box external command (spec.md §1, §4.1) — never the Docker SDK,
// so no shell is involved and no daemon socket is touched directly.
type DockerHandler struct{}

// Execute spawns `docker run` with exec.Command, never
// exec.CommandContext: ctx's cancellation must not reach the
// container process. Stop's explicit OnExit (`docker stop`) plus
// SIGTERM/SIGKILL escalation is the only termination path (spec.md
// §4.3) — sharing a context with the Supervisor's broader shutdown
// signal would let the container die before `docker stop` ever runs.
func (h *DockerHandler) Execute(ctx context.Context, task *types.Task, onReady func()) (*Handle, error) {
	opts := task.Docker

	argv := buildDockerRunArgs(opts)
	cmd := exec.Command("docker", argv...)
	cmd.Dir = opts.WorkingDirectory
	cmd.SysProcAttr = newGroupAttrs()

	ps, err := wireOutput(cmd, task.PatternInStderr)
	if err != nil {
		return nil, fmt.Errorf("task '%s': %w", task.Name, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, spawnError(task.Name, ps, err)
	}
	ps.closeParentEnds()

	return &Handle{Cmd: cmd, Stdout: ps.Stdout, Stderr: ps.Stderr}, nil
}

// buildDockerRunArgs constructs the docker-run argv. Each environment
// entry is passed as its own `-e K=V` argument (never interpolated into
// a shell string); embedded double quotes in values are backslash-escaped
// per spec.md §4.1.
func buildDockerRunArgs(opts *types.DockerOptions) []string {
	args := []string{"run", "--name", opts.ContainerName}
	args = append(args, opts.DockerArguments...)

	for k, v := range opts.Environment {
		escaped := strings.ReplaceAll(v, `"`, `\"`)
		args = append(args, "-e", fmt.Sprintf(`%s=%s`, k, escaped))
	}

	args = append(args, opts.Image)
	args = append(args, opts.DockerCommand...)
	return args
}

// OnExit stops the backing container when stop_at_exit is set, running
// `docker stop <container_name>` synchronously (spec.md §4.1). Failure
// is logged by the caller, never fatal (spec.md §7).
func (h *DockerHandler) OnExit(task *types.Task, handle *Handle) error {
	opts := task.Docker
	if opts == nil || !opts.StopAtExit {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := exec.CommandContext(ctx, "docker", "stop", opts.ContainerName).Run(); err != nil {
		return fmt.Errorf("docker stop %s: %w", opts.ContainerName, err)
	}
	return nil
}
