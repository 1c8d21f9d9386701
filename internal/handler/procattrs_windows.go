//go:build windows

package handler

import "syscall"

// newGroupAttrs places a spawned child in its own process group on
// Windows, the platform counterpart to Setpgid (spec.md §4.1, §9).
func newGroupAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
