package wizard

import (
	"context"

	"saasywrap/internal/operation"
	"saasywrap/internal/requirements"
)

// AddRequirement appends a blank user-created requirement.
func (w *Workspace) AddRequirement(ctx context.Context) (requirements.Requirement, error) {
	ctx = w.context(ctx)
	prev := w.registry.Refs()
	req := w.registry.AddNew()
	if err := w.saveRequirements(ctx); err != nil {
		return req, err
	}
	return req, w.reviewBoards(ctx, prev)
}

// UpdateRequirement applies a local field edit. The boolean reports whether
// anything changed.
func (w *Workspace) UpdateRequirement(ctx context.Context, id string, patch requirements.Patch) (requirements.Requirement, bool, error) {
	ctx = w.context(ctx)
	prev := w.registry.Refs()
	req, changed, err := w.registry.Update(id, patch)
	if err != nil || !changed {
		return req, changed, err
	}
	if err := w.saveRequirements(ctx); err != nil {
		return req, true, err
	}
	return req, true, w.reviewBoards(ctx, prev)
}

// DeleteRequirement removes a requirement and flags operations that still
// reference it.
func (w *Workspace) DeleteRequirement(ctx context.Context, id string) error {
	ctx = w.context(ctx)
	prev := w.registry.Refs()
	if err := w.registry.Delete(id); err != nil {
		return err
	}
	if err := w.saveRequirements(ctx); err != nil {
		return err
	}
	return w.reviewBoards(ctx, prev)
}

// Rollback marks a completed or failed operation rolled back.
func (w *Workspace) Rollback(ctx context.Context, kind operation.Kind, id string) (operation.Operation, error) {
	ctx = w.context(ctx)
	board := w.Board(kind)
	op, err := board.List.MarkRolledBack(id)
	if err != nil {
		return op, err
	}
	return op, w.saveOperations(ctx, board)
}
