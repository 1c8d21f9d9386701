//go:build !windows

package handler

import "syscall"

// newGroupAttrs places a spawned child in a new process group / session so
// that a termination signal sent to the child's pid never reaches the
// supervisor itself (spec.md §4.1, §9 — a known hazard in the source this
// spec was distilled from).
func newGroupAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
