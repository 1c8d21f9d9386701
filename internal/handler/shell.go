package handler

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/ridgeback/tasq/internal/types"
)

// ShellHandler runs a task's command either through the platform shell
// (a single string command) or as a direct exec (an argv list), per
// spec.md §4.1.
type ShellHandler struct{}

// Execute builds the *exec.Cmd directly with exec.Command, never
// exec.CommandContext: ctx's cancellation must not reach the child.
// Once spawned, Stop's explicit SIGTERM/SIGKILL escalation is the only
// thing that terminates it (spec.md §4.3) — tying the process to a
// context shared with the Supervisor's own shutdown signal would let
// an unrelated cancellation kill the child before Stop's handler
// teardown (e.g. `docker stop`) ever runs.
func (h *ShellHandler) Execute(ctx context.Context, task *types.Task, onReady func()) (*Handle, error) {
	opts := task.Shell

	var cmd *exec.Cmd
	if opts.CommandIsShellStr {
		cmd = shellCommand(opts.Command[0])
	} else {
		if len(opts.Command) == 0 {
			return nil, &types.ConfigError{Reason: fmt.Sprintf("task '%s': shell.command is empty", task.Name)}
		}
		cmd = exec.Command(opts.Command[0], opts.Command[1:]...)
	}

	cmd.Dir = opts.WorkingDirectory
	cmd.Env = mergeEnv(opts.Environment)
	cmd.SysProcAttr = newGroupAttrs()
	// Stdin left nil: exec.Cmd connects a nil Stdin to the null device,
	// which satisfies "stdin MUST be detached" (spec.md §4.1).

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

func (h *ShellHandler) OnExit(task *types.Task, handle *Handle) error {
	return nil
}
