// Package types holds the data model shared across the scheduler: task
// definitions as loaded from configuration, the runtime status of a live
// task, and the messages that cross the host/observer boundary.
package types

import (
	"fmt"
	"time"
)

// Kind identifies which Handler a Task uses.
type Kind string

const (
	KindShell  Kind = "shell"
	KindDocker Kind = "docker"
	KindGroup  Kind = "group"
)

// RunMode controls whether a task's readiness is gated on a pattern match
// or simply its natural exit.
type RunMode string

const (
	// RunAwaitCompletion is the default: if CompletionPattern is set,
	// readiness is the first matching output line; otherwise it is exit.
	RunAwaitCompletion RunMode = "await_completion"
	// RunIndefinite ignores CompletionPattern for readiness purposes:
	// readiness is the task's natural exit, and no pattern-miss error is
	// reported.
	RunIndefinite RunMode = "indefinite"
)

// ShellOptions configures a shell-kind task.
type ShellOptions struct {
	// Command is either a single string (run through the platform shell)
	// or an argv slice (exec'd directly, no shell). Loaded from YAML as
	// a scalar or sequence node and normalized by config.Load; the string
	// form is stored as a one-element slice with CommandIsShellStr set.
	Command          []string
	CommandIsShellStr bool
	WorkingDirectory string
	Environment      map[string]string
}

// DockerOptions configures a docker-kind task.
type DockerOptions struct {
	ContainerName    string
	Image            string
	DockerArguments  []string
	DockerCommand    []string
	Environment      map[string]string
	WorkingDirectory string
	StopAtExit       bool
}

// Task is an immutable task definition, as produced by config.Load.
type Task struct {
	Name    string
	Kind    Kind
	Depends []string

	RunMode           RunMode
	CompletionPattern string
	PatternInStderr   bool

	Shell  *ShellOptions
	Docker *DockerOptions
}

// UsesPattern reports whether readiness for this task is gated on a
// completion pattern rather than pure exit. An empty RunMode counts as
// the default, RunAwaitCompletion.
func (t *Task) UsesPattern() bool {
	return t.RunMode != RunIndefinite && t.CompletionPattern != ""
}

// GUIConfig is parsed from the configuration's optional `gui:` block and
// retained for any future observer to read, but never interpreted here
// (widget/pane layout is explicitly out of scope).
type GUIConfig struct {
	Palette string
	Panes   map[string]PaneConfig
}

// PaneConfig is one entry of GUIConfig.Panes.
type PaneConfig struct {
	Columns int
	Tasks   []string
}

// Configuration is the fully parsed and validated task set.
type Configuration struct {
	Tasks map[string]*Task
	GUI   *GUIConfig
}

// Stream identifies which child stream a LogRecord came from.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// Level mirrors the CLI's --level filter values.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// LogRecord is a single line of task output crossing the host/observer
// boundary.
type LogRecord struct {
	Timestamp time.Time
	Level     Level
	TaskName  string
	Stream    Stream
	Message   string
}

// Status is a task's lifecycle status as reported to an observer.
type Status string

const (
	StatusStarted   Status = "STARTED"
	StatusStopped   Status = "STOPPED"
	StatusCompleted Status = "COMPLETED"
)

// TaskStatusEvent is emitted on the status channel whenever a task's
// supervised lifecycle changes.
type TaskStatusEvent struct {
	Name   string
	Status Status
}

// Command identifies an observer-issued action.
type Command string

const (
	CommandStart Command = "START"
	CommandStop  Command = "STOP"
)

// TaskCommand is delivered on the command channel by an observer.
type TaskCommand struct {
	Name    string
	Command Command
}

// ConfigError marks a fatal configuration problem: unknown task kind,
// missing dependency target, or a dependency cycle. The CLI exits 1 on
// any ConfigError.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// PatternMissError marks a task whose child exited before its
// completion pattern matched.
type PatternMissError struct {
	TaskName string
}

func (e *PatternMissError) Error() string {
	return fmt.Sprintf("could not match given pattern on '%s' before process exit", e.TaskName)
}

// SpawnError marks a task whose child failed to start.
type SpawnError struct {
	TaskName string
	Cause    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("task '%s' failed to start: %s", e.TaskName, e.Cause)
}

func (e *SpawnError) Unwrap() error { return e.Cause }
