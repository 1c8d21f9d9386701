package runner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeback/tasq/internal/handler"
	"github.com/ridgeback/tasq/internal/types"
)

func TestStartFiresOnReadyOnPatternMatchThenCompletes(t *testing.T) {
	task := &types.Task{
		Name: "pattern-task",
		Kind: types.KindShell,
		Shell: &types.ShellOptions{
			Command:           []string{"echo not-yet; echo ready-now; echo trailing"},
			CommandIsShellStr: true,
		},
		CompletionPattern: "ready-now",
	}

	var records []types.LogRecord
	r := New(task, handler.NewRegistry(), func(rec types.LogRecord) {
		records = append(records, rec)
	})

	var readyCount int32
	err := r.Start(context.Background(), func() { atomic.AddInt32(&readyCount, 1) })

	require.NoError(t, err)
	assert.Equal(t, int32(1), readyCount)
	assert.Equal(t, StateExited, r.Status())

	var lines []string
	for _, rec := range records {
		lines = append(lines, rec.Message)
	}
	assert.Contains(t, lines, "ready-now")
}

func TestStartFiresOnReadyOnNaturalExitWhenNoPattern(t *testing.T) {
	task := &types.Task{
		Name: "no-pattern-task",
		Kind: types.KindShell,
		Shell: &types.ShellOptions{
			Command: []string{"echo", "done"},
		},
	}

	r := New(task, handler.NewRegistry(), func(types.LogRecord) {})

	var ready bool
	err := r.Start(context.Background(), func() { ready = true })

	require.NoError(t, err)
	assert.True(t, ready)
}

func TestStartReturnsPatternMissErrorWhenPatternNeverMatches(t *testing.T) {
	task := &types.Task{
		Name: "miss-task",
		Kind: types.KindShell,
		Shell: &types.ShellOptions{
			Command: []string{"echo", "nope"},
		},
		CompletionPattern: "will-never-appear",
	}

	r := New(task, handler.NewRegistry(), func(types.LogRecord) {})

	var ready bool
	err := r.Start(context.Background(), func() { ready = true })

	require.Error(t, err)
	var missErr *types.PatternMissError
	require.ErrorAs(t, err, &missErr)
	assert.False(t, ready)
	assert.Equal(t, StateExited, r.Status())
}

func TestStartReturnsSpawnErrorWithoutFiringOnReady(t *testing.T) {
	task := &types.Task{
		Name: "bad-exe",
		Kind: types.KindShell,
		Shell: &types.ShellOptions{
			Command: []string{"/no/such/executable-xyz"},
		},
	}

	r := New(task, handler.NewRegistry(), func(types.LogRecord) {})

	var ready bool
	err := r.Start(context.Background(), func() { ready = true })

	require.Error(t, err)
	var spawnErr *types.SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.False(t, ready)
}

func TestStartOnGroupFiresOnReadySynchronouslyWithoutSpawning(t *testing.T) {
	task := &types.Task{Name: "g", Kind: types.KindGroup}
	r := New(task, handler.NewRegistry(), func(types.LogRecord) {})

	var ready bool
	err := r.Start(context.Background(), func() { ready = true })

	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, StateExited, r.Status())
}

func TestStopOnGroupRunnerIsNoOp(t *testing.T) {
	task := &types.Task{Name: "g", Kind: types.KindGroup}
	r := New(task, handler.NewRegistry(), func(types.LogRecord) {})

	require.NoError(t, r.Start(context.Background(), nil))
	assert.NoError(t, r.Stop(time.Second))
}

func TestStopTerminatesLongRunningTaskGracefully(t *testing.T) {
	task := &types.Task{
		Name: "sleeper",
		Kind: types.KindShell,
		Shell: &types.ShellOptions{
			Command:           []string{"trap 'exit 0' TERM; sleep 30 & wait"},
			CommandIsShellStr: true,
		},
	}

	r := New(task, handler.NewRegistry(), func(types.LogRecord) {})

	startErrCh := make(chan error, 1)
	go func() {
		startErrCh <- r.Start(context.Background(), nil)
	}()

	require.Eventually(t, func() bool {
		return r.Status() == StateRunning
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, r.Stop(2*time.Second))

	select {
	case err := <-startErrCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	assert.Equal(t, StateStopped, r.Status())
}
