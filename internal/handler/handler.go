// Package handler translates a task's kind-specific options into a
// spawned child process (or a no-op, for groups) and performs
// kind-specific teardown. One Handler implementation exists per
// types.Kind; Registry selects among them the way the teacher's
// runtime package selects a container runtime by name.
package handler

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ridgeback/tasq/internal/types"
)

// Handle is the opaque running-child handle a Handler hands back to the
// caller. It is nil for group tasks, which never spawn anything.
type Handle struct {
	Cmd *exec.Cmd

	// Stdout is always set for a spawned (non-group) task.
	Stdout *os.File
	// Stderr is nil when the task merged stderr into stdout
	// (PatternInStderr).
	Stderr *os.File
}

// Handler is the per-kind strategy contract from spec.md §4.1.
type Handler interface {
	// Execute spawns the child described by task. onReady is passed
	// through unchanged so a group handler can fire it synchronously
	// before returning, as spec.md requires. When task.PatternInStderr
	// is set, the stdout pipe carries both streams and the returned
	// Handle has no separate stderr pipe.
	Execute(ctx context.Context, task *types.Task, onReady func()) (*Handle, error)

	// OnExit performs kind-specific teardown after the child has been
	// signaled or has exited. Errors are logged, never fatal
	// (spec.md §7).
	OnExit(task *types.Task, h *Handle) error
}

// Registry maps a types.Kind to its Handler.
type Registry struct {
	handlers map[types.Kind]Handler
}

// NewRegistry builds the default registry: shell, docker, and group.
func NewRegistry() *Registry {
	return &Registry{handlers: map[types.Kind]Handler{
		types.KindShell:  &ShellHandler{},
		types.KindDocker: &DockerHandler{},
		types.KindGroup:  &GroupHandler{},
	}}
}

// For returns the handler registered for kind. An unrecognized kind is a
// fatal configuration error per spec.md §4.1 — config.Load already
// rejects unknown kinds at load time, so reaching this branch at
// admission time would indicate a registry/config mismatch.
func (r *Registry) For(kind types.Kind) (Handler, error) {
	h, ok := r.handlers[kind]
	if !ok {
		return nil, &types.ConfigError{Reason: fmt.Sprintf("task type '%s' unrecognized", kind)}
	}
	return h, nil
}
