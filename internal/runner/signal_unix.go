//go:build !windows

package runner

import "syscall"

// sendGraceful sends SIGTERM to the child's process group (spec.md
// §4.3). The pid is negated to target the whole group, not just the
// leader, since the handler placed the child in its own group
// (handler.newGroupAttrs) specifically so this signal cannot reach the
// supervisor itself.
func sendGraceful(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}

// sendForce sends SIGKILL, the POSIX escalation after a graceful
// termination timeout (spec.md §4.3).
func sendForce(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
