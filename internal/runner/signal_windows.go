//go:build windows

package runner

import "golang.org/x/sys/windows"

// sendGraceful raises CTRL_BREAK_EVENT in the child's process group, the
// Windows counterpart to SIGTERM for a console process placed in its own
// group (spec.md §4.3).
func sendGraceful(pid int) error {
	return windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(pid))
}

// sendForce raises CTRL_C_EVENT as the forceful escalation spec.md §4.3
// calls for on Windows.
func sendForce(pid int) error {
	return windows.GenerateConsoleCtrlEvent(windows.CTRL_C_EVENT, uint32(pid))
}
