package handler

import (
	"context"

	"github.com/ridgeback/tasq/internal/types"
)

// GroupHandler spawns no child. It exists purely as a dependency join
// point: "all these others are ready" (spec.md §4.1, glossary).
type GroupHandler struct{}

func (h *GroupHandler) Execute(ctx context.Context, task *types.Task, onReady func()) (*Handle, error) {
	// A group task must fire onReady synchronously before returning, and
	// return no handle, per spec.md §4.1.
	if onReady != nil {
		onReady()
	}
	return nil, nil
}

func (h *GroupHandler) OnExit(task *types.Task, handle *Handle) error {
	return nil
}
