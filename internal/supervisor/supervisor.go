// Package supervisor implements the dependency-gated scheduler: it owns
// task definitions, the set of currently running Runners, and the set
// of completed task names, admits tasks as their dependencies clear,
// and answers START/STOP commands from an observer.
package supervisor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridgeback/tasq/internal/bus"
	"github.com/ridgeback/tasq/internal/handler"
	"github.com/ridgeback/tasq/internal/metrics"
	"github.com/ridgeback/tasq/internal/runner"
	"github.com/ridgeback/tasq/internal/tlog"
	"github.com/ridgeback/tasq/internal/types"
)

// DefaultStopTimeout is used for commanded and shutdown stops when the
// caller does not override it.
const DefaultStopTimeout = time.Second

// Supervisor owns admission and runner lifecycle for one configuration.
type Supervisor struct {
	definitions map[string]*types.Task
	registry    *handler.Registry
	bus         *bus.Bus
	logger      zerolog.Logger
	stopTimeout time.Duration

	mu        sync.Mutex
	pending   map[string]bool
	runners   map[string]*runner.Runner
	order     []string // insertion order of live runners, for LIFO shutdown
	completed map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Supervisor over cfg's task set. Every task starts
// pending; admission runs once Run is called.
func New(cfg *types.Configuration, registry *handler.Registry, b *bus.Bus, stopTimeout time.Duration) *Supervisor {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	pending := make(map[string]bool, len(cfg.Tasks))
	for name := range cfg.Tasks {
		pending[name] = true
	}
	return &Supervisor{
		definitions: cfg.Tasks,
		registry:    registry,
		bus:         b,
		logger:      tlog.WithComponent("supervisor"),
		stopTimeout: stopTimeout,
		pending:     pending,
		runners:     make(map[string]*runner.Runner),
		completed:   make(map[string]bool),
	}
}

// Run performs initial admission, serves observer commands, and blocks
// until ctx is canceled — the termination signal described in spec.md
// §4.5 — at which point it runs the reverse-order shutdown sweep and
// returns.
func (s *Supervisor) Run(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.commandLoop()
	}()

	s.admit()

	<-s.ctx.Done()
	s.shutdown()
}

// Completed reports whether name has fired its on_ready at least once
// in this session. Exposed for tests and for an observer wanting a
// snapshot of scheduler state.
func (s *Supervisor) Completed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[name]
}

// Running reports whether name currently has a live Runner.
func (s *Supervisor) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.runners[name]
	return ok
}

func (s *Supervisor) commandLoop() {
	for {
		select {
		case cmd, ok := <-s.bus.Commands():
			if !ok {
				return
			}
			s.handleCommand(cmd)
		case <-s.ctx.Done():
			return
		}
	}
}

// handleCommand implements spec.md §4.4's command table. START is a
// no-op if a Runner already exists for the task in any non-terminal
// state (the spec's resolved open question); STOP is a no-op if no
// Runner exists; anything else (unknown task name) is ignored.
func (s *Supervisor) handleCommand(cmd types.TaskCommand) {
	s.mu.Lock()
	_, isTask := s.definitions[cmd.Name]
	existing, running := s.runners[cmd.Name]
	s.mu.Unlock()

	if !isTask {
		return
	}

	switch cmd.Command {
	case types.CommandStart:
		if running {
			return
		}
		s.spawn(cmd.Name, true)
	case types.CommandStop:
		if !running {
			return
		}
		go func() {
			if err := s.stopAndObserve(cmd.Name, existing); err != nil {
				s.logger.Debug().Err(err).Str("task", cmd.Name).Msg("commanded stop failed")
			}
		}()
	}
}

// stopAndObserve calls r.Stop and reports its call-to-reaping latency
// to tasq_task_stop_duration_seconds, labeled by the task's kind.
func (s *Supervisor) stopAndObserve(name string, r *runner.Runner) error {
	timer := metrics.NewTimer()
	err := r.Stop(s.stopTimeout)
	timer.ObserveDurationVec(metrics.TaskStopDuration, string(s.definitions[name].Kind))
	return err
}

// admit computes E = { t in pending : depends(t) ⊆ completed } under
// lock (so the check-and-remove is atomic against concurrent on_ready
// callbacks), then spawns a Runner for each member of E. Admission
// order is unspecified by spec.md §4.4; this implementation sorts by
// name for deterministic, testable output.
func (s *Supervisor) admit() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.AdmissionCycleDuration)

	s.mu.Lock()
	var eligible []string
	for name := range s.pending {
		if dependsSatisfied(s.definitions[name], s.completed) {
			eligible = append(eligible, name)
		}
	}
	for _, name := range eligible {
		delete(s.pending, name)
	}
	s.mu.Unlock()

	sort.Strings(eligible)
	for _, name := range eligible {
		s.spawn(name, false)
	}
}

func dependsSatisfied(t *types.Task, completed map[string]bool) bool {
	for _, dep := range t.Depends {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// spawn creates and starts a new Runner for name. manual marks a
// command-issued (re)start: its on_ready is wired to a no-op so a
// manual restart never re-triggers dependents (spec.md §4.4).
func (s *Supervisor) spawn(name string, manual bool) {
	task := s.definitions[name]
	r := runner.New(task, s.registry, func(rec types.LogRecord) {
		s.bus.PublishLog(rec)
	})

	s.mu.Lock()
	delete(s.pending, name)
	s.runners[name] = r
	s.order = append(s.order, name)
	s.mu.Unlock()

	metrics.TasksAdmittedTotal.WithLabelValues(string(task.Kind)).Inc()
	metrics.TasksRunning.Inc()

	s.bus.PublishStatus(types.TaskStatusEvent{Name: name, Status: types.StatusStarted})

	var onReady func()
	if manual {
		onReady = func() {}
	} else {
		onReady = func() { s.markCompleted(name) }
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Start's own context is independent of s.ctx: a Runner's child
		// process and its Scanner must live until an explicit Stop
		// terminates them, never until the Supervisor's shared shutdown
		// signal fires simultaneously under every other live Runner (that
		// would let ctx cancellation race Stop's handler teardown, e.g.
		// `docker stop`, out from under it; see shutdown below).
		err := r.Start(context.Background(), onReady)
		if err != nil {
			s.bus.PublishLog(types.LogRecord{
				TaskName: name,
				Stream:   types.StreamStderr,
				Level:    types.LevelError,
				Message:  err.Error(),
			})
			s.logger.Error().Err(err).Str("task", name).Msg("task ended in error")
			metrics.TasksFailedTotal.WithLabelValues(string(task.Kind), failureReason(err)).Inc()
		}

		s.mu.Lock()
		delete(s.runners, name)
		s.removeFromOrderLocked(name)
		s.mu.Unlock()

		metrics.TasksRunning.Dec()
		s.bus.PublishStatus(types.TaskStatusEvent{Name: name, Status: types.StatusStopped})
	}()
}

// removeFromOrderLocked must be called with s.mu held.
func (s *Supervisor) removeFromOrderLocked(name string) {
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// markCompleted adds name to completed, emits TASK_COMPLETED, and
// re-runs admission — the causal chain spec.md §4.4 requires between a
// Runner's readiness and its dependents becoming eligible.
func (s *Supervisor) markCompleted(name string) {
	s.mu.Lock()
	if s.completed[name] {
		s.mu.Unlock()
		return
	}
	s.completed[name] = true
	s.mu.Unlock()

	metrics.TasksCompletedTotal.WithLabelValues(string(s.definitions[name].Kind)).Inc()
	s.bus.PublishStatus(types.TaskStatusEvent{Name: name, Status: types.StatusCompleted})
	s.admit()
}

// failureReason classifies a Start error for the tasq_tasks_failed_total
// label without importing the errors package's type-switch ceremony
// into the hot path.
func failureReason(err error) string {
	switch err.(type) {
	case *types.SpawnError:
		return "spawn_error"
	case *types.PatternMissError:
		return "pattern_miss"
	default:
		return "other"
	}
}

// shutdown stops every still-live Runner in reverse insertion order —
// each Stop call runs the task's handler teardown (e.g. `docker stop`)
// and its graceful/forceful signal escalation to completion before the
// next Runner is touched — then cancels the Supervisor's own context,
// waits for every spawn goroutine to finish, and closes the bus.
//
// Runners are stopped before s.cancel() precisely because each
// Runner's own context (see spawn) is independent of s.ctx: nothing
// here races a Runner's Stop against a ctx-driven kill of its child.
// s.cancel() only needs to run so commandLoop and Run's own
// <-s.ctx.Done() wait release their goroutines.
func (s *Supervisor) shutdown() {
	s.mu.Lock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	live := make(map[string]*runner.Runner, len(s.runners))
	for k, v := range s.runners {
		live[k] = v
	}
	s.mu.Unlock()

	for i := len(names) - 1; i >= 0; i-- {
		r, ok := live[names[i]]
		if !ok {
			continue
		}
		if err := s.stopAndObserve(names[i], r); err != nil {
			s.logger.Debug().Err(err).Str("task", names[i]).Msg("stop failed during shutdown")
		}
	}

	s.cancel()
	s.wg.Wait()
	s.bus.Close()
}
