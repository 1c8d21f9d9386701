// Package runner wires a Handler and a Scanner together into the
// per-task lifecycle from spec.md §4.3: spawn, scan for readiness,
// run to exit, reap.
package runner

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridgeback/tasq/internal/handler"
	"github.com/ridgeback/tasq/internal/scanner"
	"github.com/ridgeback/tasq/internal/tlog"
	"github.com/ridgeback/tasq/internal/types"
)

// State is a Runner's position in the state machine diagrammed in
// spec.md §4.3.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateReady    State = "ready"
	StateExited   State = "exited"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

// defaultStopTimeout is used when Stop is called with a non-positive
// timeout.
const defaultStopTimeout = time.Second

// Runner supervises one live execution of a Task.
type Runner struct {
	Task     *types.Task
	Registry *handler.Registry
	Sink     func(types.LogRecord)
	Logger   zerolog.Logger

	mu       sync.Mutex
	state    State
	handle   *handler.Handle
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// New builds a Runner for task. sink receives every log line the task's
// scanner produces.
func New(task *types.Task, registry *handler.Registry, sink func(types.LogRecord)) *Runner {
	return &Runner{
		Task:     task,
		Registry: registry,
		Sink:     sink,
		Logger:   tlog.WithTask(task.Name),
		state:    StateStarting,
	}
}

// Status returns the Runner's current state.
func (r *Runner) Status() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Start spawns the task's child (or, for a group, fires onReady
// synchronously) and blocks until the task's run-to-exit lifecycle
// completes. onReady fires at most once: on readiness (first pattern
// match when Task.UsesPattern reports true, otherwise natural exit), as
// spec.md §4.2/§9 requires.
//
// Start returns *types.SpawnError if the child failed to launch,
// *types.PatternMissError if the task's readiness is pattern-gated but
// the pattern never matched before exit, or nil on ordinary completion. Context
// cancellation is swallowed (spec.md §5): it is the expected shutdown
// path, driven by Stop rather than by the caller canceling ctx
// directly.
func (r *Runner) Start(ctx context.Context, onReady func()) error {
	h, err := r.Registry.For(r.Task.Kind)
	if err != nil {
		r.setState(StateStopped)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.done = make(chan struct{})
	r.mu.Unlock()

	var readyOnce sync.Once
	fireReady := func() {
		readyOnce.Do(func() {
			r.setState(StateReady)
			if onReady != nil {
				onReady()
			}
		})
	}

	handle, err := h.Execute(runCtx, r.Task, fireReady)
	if err != nil {
		cancel()
		r.setState(StateStopped)
		close(r.done)
		r.Logger.Error().Err(err).Msg("task failed to spawn")
		return err
	}

	if handle == nil {
		// Group task: fireReady already ran synchronously inside Execute.
		r.setState(StateExited)
		close(r.done)
		return nil
	}

	r.mu.Lock()
	r.handle = handle
	r.mu.Unlock()
	r.setState(StateRunning)

	var pattern *regexp.Regexp
	if r.Task.UsesPattern() {
		pattern = regexp.MustCompile(r.Task.CompletionPattern)
	}

	sc := &scanner.Scanner{
		TaskName: r.Task.Name,
		Stdout:   handle.Stdout,
		Stderr:   handle.Stderr,
		Pattern:  pattern,
		Sink:     r.Sink,
		OnReady:  fireReady,
	}

	scanErr := sc.Run(runCtx)

	// Reap exactly once, from the same goroutine that drives the scan,
	// so Stop (running concurrently) never races a second Wait call.
	if waitErr := handle.Cmd.Wait(); waitErr != nil {
		r.Logger.Debug().Err(waitErr).Msg("child exited non-zero")
	}

	r.setState(StateExited)
	close(r.done)

	if scanErr != nil {
		r.Logger.Error().Err(scanErr).Msg("task completed without readiness")
		return scanErr
	}
	return nil
}

// Stop terminates a running task: kind-specific teardown, then a
// graceful termination signal, escalating to a forceful kill if the
// child is still alive after timeout (spec.md §4.3). Stop on a task
// that never spawned a child (group, or spawn failed) is a no-op.
//
// Stop is safe to call concurrently or more than once: teardown and
// signaling run at most once per Runner (guarded by stopOnce), so a
// handler's OnExit — e.g. "docker stop" — never runs twice even if the
// Supervisor's command handling and its shutdown sweep both reach the
// same Runner.
func (r *Runner) Stop(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}

	r.mu.Lock()
	handle := r.handle
	done := r.done
	cancel := r.cancel
	r.mu.Unlock()

	if handle == nil || handle.Cmd.Process == nil {
		return nil
	}

	r.stopOnce.Do(func() {
		select {
		case <-done:
			// Already exited on its own; nothing to signal.
			return
		default:
		}

		r.setState(StateStopping)

		if h, err := r.Registry.For(r.Task.Kind); err == nil {
			if terr := h.OnExit(r.Task, handle); terr != nil {
				r.Logger.Debug().Err(terr).Msg("handler teardown failed")
			}
		}

		pid := handle.Cmd.Process.Pid
		if err := sendGraceful(pid); err != nil {
			r.Logger.Debug().Err(err).Msg("graceful termination signal failed")
		}

		select {
		case <-done:
		case <-time.After(timeout):
			if err := sendForce(pid); err != nil {
				r.Logger.Debug().Err(err).Msg("forceful termination signal failed")
			}
			<-done
		}

		if cancel != nil {
			cancel()
		}
		r.setState(StateStopped)
	})
	return nil
}
