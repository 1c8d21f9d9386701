//go:build !windows

package handler

import (
	"os/exec"
)

// shellCommand builds the *exec.Cmd for a string-form shell.command,
// interpreted by the platform shell (spec.md §4.1).
func shellCommand(command string) *exec.Cmd {
	return exec.Command("/bin/sh", "-c", command)
}
