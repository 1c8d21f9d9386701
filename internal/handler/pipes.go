package handler

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/ridgeback/tasq/internal/types"
)

// pipeSet is the pair of pipes wired onto a spawned child, plus the two
// cleanup actions a caller needs: closeParentEnds (call once, right after
// a successful Start, to drop the parent's copy of the write ends so EOF
// reaches the read ends on child exit) and closeAll (call instead, if
// Start failed, to release every fd).
type pipeSet struct {
	Stdout *os.File
	Stderr *os.File

	closeParentEnds func()
	closeAll        func()
}

// wireOutput allocates stdout (and, unless mergeStderr, a separate
// stderr) pipe for cmd. The pipe-ownership discipline — parent creates
// both ends, hands the write end to the child, closes its own copy right
// after Start — is grounded on edirooss-zmux-server's
// internal/infrastructure/processmgr/process.go. When mergeStderr is set,
// the child's stderr is duplicated onto the same pipe as stdout (the Unix
// equivalent of `2>&1`), so the scanner sees both streams on one reader.
func wireOutput(cmd *exec.Cmd, mergeStderr bool) (*pipeSet, error) {
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("allocating stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW

	var stderrR, stderrW *os.File
	if mergeStderr {
		cmd.Stderr = stdoutW
	} else {
		stderrR, stderrW, err = os.Pipe()
		if err != nil {
			stdoutR.Close()
			stdoutW.Close()
			return nil, fmt.Errorf("allocating stderr pipe: %w", err)
		}
		cmd.Stderr = stderrW
	}

	ps := &pipeSet{
		Stdout: stdoutR,
		Stderr: stderrR,
		closeParentEnds: func() {
			stdoutW.Close()
			if stderrW != nil {
				stderrW.Close()
			}
		},
		closeAll: func() {
			stdoutR.Close()
			stdoutW.Close()
			if stderrR != nil {
				stderrR.Close()
			}
			if stderrW != nil {
				stderrW.Close()
			}
		},
	}
	return ps, nil
}

func spawnError(taskName string, ps *pipeSet, err error) error {
	if ps != nil {
		ps.closeAll()
	}
	return &types.SpawnError{TaskName: taskName, Cause: err}
}
