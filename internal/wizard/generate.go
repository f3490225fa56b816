package wizard

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"saasywrap/internal/backend"
	"saasywrap/internal/chat"
	"saasywrap/internal/logging"
	"saasywrap/internal/operation"
	"saasywrap/internal/requirements"
	"saasywrap/internal/services"
)

// RequirementsApology is appended when the initial upload fails.
const RequirementsApology = "Sorry, there was an error generating the requirements. Please try again."

// GenerateApology is the notice appended when generating kind's list fails.
func GenerateApology(kind operation.Kind) string {
	return fmt.Sprintf("Sorry, there was an error generating the %s. Please try again.", kind.Name)
}

// Initialize submits the free-text description, and the dataset file when
// datasetPath is set, and replaces the requirement list with the generated
// records. The description is recorded in the requirements transcript and
// kept as the initial context replayed with every requirements chat.
func (w *Workspace) Initialize(ctx context.Context, description, datasetPath string) error {
	ctx = w.context(ctx)
	description = strings.TrimSpace(description)
	if description == "" {
		return services.Wrap(services.ErrValidation, "wizard", "initialize", "requirements description required", nil)
	}
	datasetPath = strings.TrimSpace(datasetPath)

	initial := requirements.InitialContext{Requirements: description}
	if datasetPath != "" {
		initial.DatasetName = filepath.Base(datasetPath)
		initial.DatasetPath = datasetPath
	}

	if err := w.reqTranscript.Append(ctx, chat.RoleUser, "Initial Requirements:\n"+description); err != nil {
		return err
	}

	prev := w.registry.Refs()
	resp, err := w.client.GenerateRequirements(ctx, backend.GenerateRequirementsRequest{
		Requirements: description,
		DatasetPath:  datasetPath,
	})
	if err == nil {
		err = w.registry.Replace(resp.Requirements)
	}
	if err != nil {
		return w.generationFailed(ctx, w.reqTranscript, RequirementsApology, "requirements generation", err)
	}

	if resp.DatasetPath != "" {
		initial.DatasetPath = resp.DatasetPath
	}
	w.registry.SetInitialContext(initial)
	if err := w.store.SaveInitialContext(ctx, initial); err != nil {
		return fmt.Errorf("persist initial context: %w", err)
	}
	if err := w.saveRequirements(ctx); err != nil {
		return err
	}
	if err := w.reqTranscript.Append(ctx, chat.RoleAssistant, resp.Response); err != nil {
		return err
	}

	w.logger.Info("requirements generated",
		logging.String(logging.FieldSession, w.name),
		logging.Int("requirements", w.registry.Len()),
		logging.Bool("dataset", datasetPath != ""),
	)
	return w.reviewBoards(ctx, prev)
}

// Generate posts the current requirements to kind's generate endpoint and
// replaces the board's list with the result.
func (w *Workspace) Generate(ctx context.Context, kind operation.Kind) error {
	ctx = services.WithListKind(w.context(ctx), kind.Name)
	board := w.Board(kind)
	reqs := w.registry.Snapshot()
	if len(reqs) == 0 {
		return services.Wrap(services.ErrValidation, "wizard", "generate "+kind.Name, "no requirements yet; run init first", nil)
	}

	resp, err := w.client.GenerateOperations(ctx, kind.GeneratePath, kind.ListField, reqs)
	var ops []operation.Operation
	if err == nil {
		ops, err = operation.Decode(resp.Items)
	}
	if err == nil {
		err = board.List.Replace(ops)
	}
	if err != nil {
		return w.generationFailed(ctx, board.Transcript, GenerateApology(kind), kind.Name+" generation", err)
	}

	if err := w.saveOperations(ctx, board); err != nil {
		return err
	}
	if err := board.Transcript.Append(ctx, chat.RoleAssistant, resp.Response); err != nil {
		return err
	}
	w.logger.Info(kind.Name+" generated",
		logging.String(logging.FieldSession, w.name),
		logging.String(logging.FieldListKind, kind.Name),
		logging.Int("operations", len(ops)),
	)
	return w.reviewRequirements(ctx, board)
}

func (w *Workspace) generationFailed(ctx context.Context, transcript *chat.Transcript, apology, what string, cause error) error {
	logging.ErrorWithContext(logging.WithContext(ctx, w.logger), what+" failed", "generation_failure",
		logging.String(logging.FieldErrorKind, services.Kind(cause)),
		logging.String(logging.FieldErrorHint, "check that the backend is running and reachable"),
		logging.Error(cause),
	)
	w.reportError(ctx, what, cause)
	if err := transcript.Notice(ctx, apology); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
