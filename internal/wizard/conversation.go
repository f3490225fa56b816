package wizard

import (
	"context"
	"encoding/json"
	"fmt"

	"saasywrap/internal/chat"
	"saasywrap/internal/logging"
	"saasywrap/internal/operation"
	"saasywrap/internal/requirements"
	"saasywrap/internal/services"
)

// ChatRequirements sends message on the requirements channel. Requirement
// records in the reply are merged into the registry and both boards are
// reviewed against the change.
func (w *Workspace) ChatRequirements(ctx context.Context, message string) (chat.Reply, error) {
	return w.reqConversation.Send(w.context(ctx), message)
}

// ChatOperations sends message on kind's channel. A reply carrying changes
// edits the list in place; one carrying a full list replaces it. A preview
// payload replaces the board's preview HTML.
func (w *Workspace) ChatOperations(ctx context.Context, kind operation.Kind, message string) (chat.Reply, error) {
	ctx = services.WithListKind(w.context(ctx), kind.Name)
	return w.Board(kind).chat.Send(ctx, message)
}

func (w *Workspace) requirementsExtra() (map[string]any, error) {
	return map[string]any{
		"currentRequirements": w.registry.Snapshot(),
		"initialContext":      w.registry.InitialContext(),
	}, nil
}

func (w *Workspace) handleRequirementsReply(ctx context.Context, reply chat.Reply) error {
	var update requirements.ChatUpdate
	if reply.Has("requirements") {
		if err := reply.Decode("requirements", &update.Requirements); err != nil {
			return err
		}
	}
	if reply.Has("deletedRequirements") {
		if err := reply.Decode("deletedRequirements", &update.Deleted); err != nil {
			return err
		}
	}
	if len(update.Requirements) == 0 && len(update.Deleted) == 0 {
		return nil
	}

	prev := w.registry.Refs()
	result, err := w.registry.Merge(update)
	if err != nil {
		return err
	}
	if !result.Changed() {
		return nil
	}
	w.logger.Info("requirements merged from chat",
		logging.String(logging.FieldSession, w.name),
		logging.Int("added", len(result.Added)),
		logging.Int("updated", len(result.Updated)),
		logging.Int("deleted", len(result.Deleted)),
	)
	if err := w.saveRequirements(ctx); err != nil {
		return err
	}
	return w.reviewBoards(ctx, prev)
}

func (w *Workspace) operationsExtra(board *Board) chat.ExtraFunc {
	return func() (map[string]any, error) {
		state := board.Preview.State()
		if len(state) == 0 {
			state = json.RawMessage(`{}`)
		}
		return map[string]any{
			board.Kind.CurrentField: board.List.Snapshot(),
			"previewState":          state,
			"requirements":          w.registry.Snapshot(),
		}, nil
	}
}

func (w *Workspace) operationsReplyHandler(board *Board) chat.Handler {
	return func(ctx context.Context, reply chat.Reply) error {
		changed, err := w.applyOperationsReply(ctx, board, reply)
		if err != nil {
			return err
		}

		var html string
		if reply.Has("preview") {
			if err := reply.Decode("preview", &html); err != nil {
				return err
			}
		}
		if board.Preview.SetHTML(html) {
			if err := w.store.SavePreview(ctx, board.Kind, board.Preview.Snapshot()); err != nil {
				return fmt.Errorf("persist %s preview: %w", board.Kind.Name, err)
			}
		}

		if !changed {
			return nil
		}
		if err := w.saveOperations(ctx, board); err != nil {
			return err
		}
		return w.reviewRequirements(ctx, board)
	}
}

func (w *Workspace) applyOperationsReply(ctx context.Context, board *Board, reply chat.Reply) (bool, error) {
	logger := logging.WithContext(ctx, w.logger)
	switch {
	case reply.Has("changes"):
		var raw []json.RawMessage
		if err := reply.Decode("changes", &raw); err != nil {
			return false, err
		}
		changes, err := operation.DecodeChanges(board.Kind, raw)
		if err != nil {
			return false, services.Wrap(services.ErrMalformed, "wizard", board.Kind.Name+" chat", "decode changes", err)
		}
		result := board.List.Apply(changes)
		if len(result.Skipped) > 0 {
			logging.WarnWithContext(logger, "chat changes skipped", "chat_changes_skipped",
				logging.Any("skipped", result.Skipped),
				logging.String(logging.FieldImpact, "some proposed edits were not applied"),
				logging.String(logging.FieldErrorHint, "the change referenced an unknown id or could not be decoded"),
			)
		}
		return result.Changed(), nil
	case reply.Has(board.Kind.ListField):
		var raw []json.RawMessage
		if err := reply.Decode(board.Kind.ListField, &raw); err != nil {
			return false, err
		}
		ops, err := operation.Decode(raw)
		if err != nil {
			return false, services.Wrap(services.ErrMalformed, "wizard", board.Kind.Name+" chat", "decode "+board.Kind.ListField, err)
		}
		if err := board.List.Replace(ops); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}
