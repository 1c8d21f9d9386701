// Package bus carries the three message kinds that cross the Supervisor
// and Observer boundary described in spec.md §6: log records, task
// status events, and observer-issued commands. The teacher's
// pkg/events.Broker fans one event out to many subscribers over
// buffered channels; spec.md's Message Bus is narrower (exactly one
// supervisor, one observer, three typed streams instead of one
// broadcast type), so Bus keeps the teacher's buffered channels and a
// done signal closed on shutdown (Close), without the subscriber registry a single
// consumer doesn't need.
package bus

import (
	"github.com/ridgeback/tasq/internal/types"
)

// logBuffer and statusBuffer bound how far a slow observer can lag
// before Publish* blocks the supervisor; commandBuffer is small since
// commands are rare, interactive, user-paced events.
const (
	logBuffer     = 256
	statusBuffer  = 64
	commandBuffer = 8
)

// Bus is the single-producer (Supervisor), single-consumer (Observer)
// channel set spec.md §6 calls the Message Bus.
type Bus struct {
	logs     chan types.LogRecord
	statuses chan types.TaskStatusEvent
	commands chan types.TaskCommand
	done     chan struct{}
}

// New builds an unstarted Bus. There is no Start: the channels are
// live as soon as New returns, matching spec.md's "always-on" wire
// rather than the teacher's explicit broker run-loop, since there is
// no broadcast fan-out here to run.
func New() *Bus {
	return &Bus{
		logs:     make(chan types.LogRecord, logBuffer),
		statuses: make(chan types.TaskStatusEvent, statusBuffer),
		commands: make(chan types.TaskCommand, commandBuffer),
		done:     make(chan struct{}),
	}
}

// Logs returns the channel an Observer reads task output lines from.
func (b *Bus) Logs() <-chan types.LogRecord { return b.logs }

// Statuses returns the channel an Observer reads task lifecycle events
// from.
func (b *Bus) Statuses() <-chan types.TaskStatusEvent { return b.statuses }

// Commands returns the channel a Supervisor reads observer-issued
// START/STOP requests from.
func (b *Bus) Commands() <-chan types.TaskCommand { return b.commands }

// Done is closed once the host process begins shutdown; callers
// blocked sending on a full buffered channel select on it to avoid
// hanging past shutdown.
func (b *Bus) Done() <-chan struct{} { return b.done }

// PublishLog forwards a log record to the Observer, dropping it rather
// than blocking the supervisor if the bus has already begun shutdown.
func (b *Bus) PublishLog(rec types.LogRecord) {
	select {
	case b.logs <- rec:
	case <-b.done:
	}
}

// PublishStatus forwards a task status transition to the Observer.
func (b *Bus) PublishStatus(evt types.TaskStatusEvent) {
	select {
	case b.statuses <- evt:
	case <-b.done:
	}
}

// SendCommand delivers an observer-issued command to the Supervisor.
func (b *Bus) SendCommand(cmd types.TaskCommand) {
	select {
	case b.commands <- cmd:
	case <-b.done:
	}
}

// Close signals shutdown. It is not idempotent: it must be called at
// most once, since a second call panics on the already-closed done
// channel. Callers coordinate that via sync.Once or a single shutdown goroutine,
// the same discipline the teacher's Broker.Stop assumes of its caller.
func (b *Bus) Close() {
	close(b.done)
}
