// Package observer defines the pure contract spec.md §2.7 requires of
// any consumer of the Message Bus — a UI, a console sink, or a test
// double — and ships one concrete implementation, ConsoleObserver.
package observer

import (
	"context"

	"github.com/ridgeback/tasq/internal/bus"
)

// Observer consumes log records and task-status events off a Bus and
// may produce task commands onto it. Run blocks until ctx is canceled
// and must return promptly afterward; it never mutates Supervisor
// state directly — the bus's command channel is the only coupling.
type Observer interface {
	Run(ctx context.Context, b *bus.Bus) error
}
