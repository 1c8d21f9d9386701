// Package host wires a Supervisor and an Observer together on their own
// goroutines joined by an errgroup, isolating either side's slowness
// from the other the way the teacher's cmd/warren main wires its
// scheduler, reconciler, and API server around one shared shutdown
// signal (spec.md §4.5).
package host

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ridgeback/tasq/internal/bus"
	"github.com/ridgeback/tasq/internal/observer"
	"github.com/ridgeback/tasq/internal/supervisor"
	"github.com/ridgeback/tasq/internal/tlog"
)

// ErrInterrupted is returned by Run when shutdown was triggered by an
// OS interrupt/TERM signal rather than the caller canceling ctx or an
// internal failure, so main can map it to the conventional 130 exit
// code spec.md §6 requires.
var ErrInterrupted = errors.New("interrupted")

// Process owns the Supervisor context, the Observer context, and the
// OS-signal watcher that raises the shared termination signal
// described in spec.md §4.5.
type Process struct {
	Supervisor *supervisor.Supervisor
	Observer   observer.Observer
	Bus        *bus.Bus
}

// New builds a Process. obs may be nil, in which case Run starts no
// observer goroutine and nothing reads the bus's log or status
// channels. main always passes an observer.NewConsole; with the
// observer turned off it is non-interactive, so it still writes each
// log record to stdout with a "[task_name]: " prefix but reads no
// commands.
func New(sup *supervisor.Supervisor, obs observer.Observer, b *bus.Bus) *Process {
	return &Process{Supervisor: sup, Observer: obs, Bus: b}
}

// Run blocks until ctx is canceled or an interrupt/SIGTERM arrives,
// running the Supervisor and the Observer each on their own goroutine
// so neither can stall the other (spec.md §4.5, §5), then performs
// orderly shutdown and returns.
func (p *Process) Run(ctx context.Context) error {
	logger := tlog.WithComponent("host")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		p.Supervisor.Run(gctx)
		return nil
	})

	if p.Observer != nil {
		g.Go(func() error {
			return p.Observer.Run(gctx, p.Bus)
		})
	}

	var interrupted bool
	select {
	case <-sigCh:
		interrupted = true
		logger.Info().Msg("shutdown signal received")
	case <-gctx.Done():
	}

	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	if interrupted {
		return ErrInterrupted
	}
	return nil
}
