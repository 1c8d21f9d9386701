package handler

import (
	"bufio"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeback/tasq/internal/types"
)

func TestShellHandlerExecuteRunsArgvDirectly(t *testing.T) {
	task := &types.Task{
		Name: "echo-task",
		Kind: types.KindShell,
		Shell: &types.ShellOptions{
			Command: []string{"echo", "hello"},
		},
	}

	h := &ShellHandler{}
	handle, err := h.Execute(context.Background(), task, nil)
	require.NoError(t, err)
	require.NotNil(t, handle)
	defer handle.Stdout.Close()

	sc := bufio.NewScanner(handle.Stdout)
	require.True(t, sc.Scan())
	assert.Equal(t, "hello", sc.Text())

	require.NoError(t, handle.Cmd.Wait())
}

func TestShellHandlerExecuteShellString(t *testing.T) {
	task := &types.Task{
		Name: "shellstr-task",
		Kind: types.KindShell,
		Shell: &types.ShellOptions{
			Command:           []string{"echo hi-from-shell"},
			CommandIsShellStr: true,
		},
	}

	h := &ShellHandler{}
	handle, err := h.Execute(context.Background(), task, nil)
	require.NoError(t, err)
	defer handle.Stdout.Close()

	sc := bufio.NewScanner(handle.Stdout)
	require.True(t, sc.Scan())
	assert.Equal(t, "hi-from-shell", sc.Text())
	require.NoError(t, handle.Cmd.Wait())
}

func TestShellHandlerMergesStderrWhenPatternInStderr(t *testing.T) {
	task := &types.Task{
		Name:            "merge-task",
		Kind:            types.KindShell,
		PatternInStderr: true,
		Shell: &types.ShellOptions{
			Command:           []string{"echo err-line 1>&2"},
			CommandIsShellStr: true,
		},
	}

	h := &ShellHandler{}
	handle, err := h.Execute(context.Background(), task, nil)
	require.NoError(t, err)
	defer handle.Stdout.Close()
	assert.Nil(t, handle.Stderr)

	sc := bufio.NewScanner(handle.Stdout)
	require.True(t, sc.Scan())
	assert.Equal(t, "err-line", sc.Text())
	require.NoError(t, handle.Cmd.Wait())
}

func TestShellHandlerSpawnErrorOnMissingExecutable(t *testing.T) {
	task := &types.Task{
		Name: "missing",
		Kind: types.KindShell,
		Shell: &types.ShellOptions{
			Command: []string{"/no/such/executable-xyz"},
		},
	}

	h := &ShellHandler{}
	_, err := h.Execute(context.Background(), task, nil)
	require.Error(t, err)

	var spawnErr *types.SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Equal(t, "missing", spawnErr.TaskName)
}
