package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"saasywrap/internal/backend"
	"saasywrap/internal/chat"
	"saasywrap/internal/logging"
	"saasywrap/internal/notifications"
	"saasywrap/internal/operation"
	"saasywrap/internal/services"
)

// ErrBusy is returned when a batch is already running on the executor.
var ErrBusy = errors.New("executor busy")

// Backend runs one operation remotely.
type Backend interface {
	Execute(ctx context.Context, path, idField, id string, previewState json.RawMessage) (backend.ExecuteResult, error)
}

// Persister stores list and preview state after every change.
type Persister interface {
	SaveOperations(ctx context.Context, kind operation.Kind, ops []operation.Operation) error
	SavePreview(ctx context.Context, kind operation.Kind, preview operation.PreviewSnapshot) error
}

// Observer is notified after a status change has been written back and persisted.
type Observer func(op operation.Operation)

// Executor runs the operations of one list sequentially against the backend.
type Executor struct {
	kind       operation.Kind
	list       *operation.List
	preview    *operation.Preview
	transcript *chat.Transcript
	client     Backend

	persister Persister
	notifier  notifications.Service
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time

	running sync.Mutex
}

// Option customizes an Executor.
type Option func(*Executor)

// WithPersister stores state after each transition.
func WithPersister(p Persister) Option {
	return func(e *Executor) {
		e.persister = p
	}
}

// WithNotifier publishes batch outcomes.
func WithNotifier(n notifications.Service) Option {
	return func(e *Executor) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithObserver registers a callback for status changes.
func WithObserver(fn Observer) Option {
	return func(e *Executor) {
		e.observer = fn
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source used for durations (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an executor for list. Execution messages and apologies are
// appended to transcript.
func New(list *operation.List, preview *operation.Preview, transcript *chat.Transcript, client Backend, opts ...Option) *Executor {
	e := &Executor{
		kind:       list.Kind(),
		list:       list,
		preview:    preview,
		transcript: transcript,
		client:     client,
		notifier:   nopNotifier{},
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "executor")
	return e
}

// Kind returns the list kind the executor drives.
func (e *Executor) Kind() operation.Kind {
	return e.kind
}

// Apology is the transcript notice appended when an operation fails.
func (e *Executor) Apology() string {
	return fmt.Sprintf("Sorry, there was an error executing this %s. Please try again.", e.kind.Noun)
}

// ExecuteOne runs a single operation and reports whether the backend marked it
// completed. Transport failures, malformed replies, and backend-reported
// failures all leave the operation failed, append one apology notice, and
// return false with a nil error. The error return is reserved for unknown
// ids, a concurrent batch, cancellation, and persistence failures.
func (e *Executor) ExecuteOne(ctx context.Context, id string) (bool, error) {
	if !e.running.TryLock() {
		return false, ErrBusy
	}
	defer e.running.Unlock()
	outcome, err := e.executeOne(ctx, id)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return outcome.Succeeded(), nil
}

// ExecuteAll runs every operation in list order and stops at the first one that
// does not complete.
func (e *Executor) ExecuteAll(ctx context.Context) (Report, error) {
	if !e.running.TryLock() {
		return Report{}, ErrBusy
	}
	defer e.running.Unlock()
	return e.runBatch(ctx, e.list.IDs(), "", "all")
}

// ExecuteUntil runs operations in list order up to and including targetID,
// stopping early at the first one that does not complete.
func (e *Executor) ExecuteUntil(ctx context.Context, targetID string) (Report, error) {
	if !e.running.TryLock() {
		return Report{}, ErrBusy
	}
	defer e.running.Unlock()
	targetID = strings.TrimSpace(targetID)
	if !e.list.Contains(targetID) {
		return Report{Kind: e.kind}, e.notFound(targetID)
	}
	return e.runBatch(ctx, e.list.IDs(), targetID, "until")
}

// ExecuteNext runs the first pending operation only. It is a no-op when
// nothing is pending.
func (e *Executor) ExecuteNext(ctx context.Context) (Report, error) {
	if !e.running.TryLock() {
		return Report{}, ErrBusy
	}
	defer e.running.Unlock()
	next, ok := e.list.FirstPending()
	if !ok {
		e.logger.Debug("no pending operation",
			logging.String(logging.FieldListKind, e.kind.Name),
			logging.String(logging.FieldEventType, "batch_stop"),
		)
		return Report{Kind: e.kind}, nil
	}
	return e.runBatch(ctx, []string{next.ID}, next.ID, "next")
}

// runBatch executes ids in order. The id sequence is captured by the caller
// before the loop so chat edits during the batch cannot shift the order;
// ids removed from the live list meanwhile are skipped.
func (e *Executor) runBatch(ctx context.Context, ids []string, targetID, mode string) (Report, error) {
	report := Report{Kind: e.kind, Mode: mode, Target: targetID}
	started := e.now()
	ctx = services.WithListKind(ctx, e.kind.Name)
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("mode", mode),
		logging.Int("operations", len(ids)),
		logging.String("target", targetID),
	)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			report.Duration = e.now().Sub(started)
			e.logStop(logger, report, "cancelled")
			return report, err
		}
		if !e.list.Contains(id) {
			logger.Info(e.kind.Noun+" removed during batch; skipping",
				logging.String(logging.FieldOperationID, id),
				logging.String(logging.FieldEventType, "operation_skipped"),
			)
			report.add(Outcome{ID: id, Skipped: true})
			if id == targetID {
				report.StoppedAt = id
				break
			}
			continue
		}

		outcome, err := e.executeOne(ctx, id)
		if err != nil {
			report.Duration = e.now().Sub(started)
			e.logStop(logger, report, "error")
			return report, err
		}
		report.add(outcome)
		if !outcome.Succeeded() {
			report.StoppedAt = id
			report.Halted = true
			break
		}
		if id == targetID {
			report.StoppedAt = id
			break
		}
	}

	report.Duration = e.now().Sub(started)
	reason := "finished"
	if report.Halted {
		reason = "failure"
	} else if targetID != "" && report.StoppedAt == targetID {
		reason = "target_reached"
	}
	e.logStop(logger, report, reason)
	e.notifyBatch(ctx, report)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (e *Executor) logStop(logger *slog.Logger, report Report, reason string) {
	logger.Info("batch stopped",
		logging.String(logging.FieldEventType, "batch_stop"),
		logging.String("reason", reason),
		logging.Int("completed", report.Completed),
		logging.Int("failed", report.Failed),
		logging.Int("skipped", report.Skipped),
		logging.String("stopped_at", report.StoppedAt),
		logging.Duration("duration", report.Duration),
	)
}

func (e *Executor) executeOne(ctx context.Context, id string) (Outcome, error) {
	op, ok := e.list.Get(id)
	if !ok {
		return Outcome{}, e.notFound(id)
	}
	ctx = services.WithListKind(ctx, e.kind.Name)
	ctx = services.WithOperationID(ctx, id)
	logger := logging.WithContext(ctx, e.logger)

	logger.Info(e.kind.Noun+" started",
		logging.String(logging.FieldEventType, "operation_start"),
		logging.String("title", strings.TrimSpace(op.Title)),
		logging.String("previous_status", string(op.Status)),
	)
	if err := e.transition(ctx, id, operation.StatusInProgress); err != nil {
		return Outcome{}, err
	}

	result, execErr := e.client.Execute(ctx, e.kind.ExecutePath, e.kind.IDField, id, e.preview.State())
	if execErr != nil {
		if ctx.Err() != nil {
			execErr = services.Wrap(services.ErrTransport, "executor", e.kind.Noun, "request cancelled", ctx.Err())
		}
		return e.fail(ctx, logger, op, execErr)
	}

	status, valid := operation.ParseStatus(result.Status)
	if !valid {
		return e.fail(ctx, logger, op, services.Wrap(
			services.ErrMalformed, "executor", e.kind.Noun,
			fmt.Sprintf("unrecognised status %q", result.Status), nil,
		))
	}

	if err := e.applyPreview(ctx, result); err != nil {
		return Outcome{}, err
	}
	if err := e.transition(ctx, id, status); err != nil {
		return Outcome{}, err
	}
	if err := e.transcript.Append(ctx, chat.RoleAssistant, result.Message); err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{ID: id, Title: op.Title, Status: status, Message: result.Message}
	switch status {
	case operation.StatusCompleted:
		logger.Info(e.kind.Noun+" completed",
			logging.String(logging.FieldEventType, "operation_complete"),
			logging.Bool("preview_updated", result.Preview != ""),
			logging.Bool("state_updated", result.HasPreviewState()),
		)
	case operation.StatusFailed:
		rejected := services.Wrap(services.ErrRejected, "executor", e.kind.Noun, "backend reported failure", nil)
		outcome.Err = rejected
		e.logFailure(logger, rejected)
		if err := e.transcript.Notice(ctx, e.Apology()); err != nil {
			return Outcome{}, err
		}
	default:
		logger.Warn(e.kind.Noun+" returned a non-terminal status",
			logging.String(logging.FieldEventType, "operation_incomplete"),
			logging.String("status", string(status)),
			logging.String(logging.FieldImpact, "batch stops at this "+e.kind.Noun),
		)
	}
	return outcome, nil
}

func (e *Executor) fail(ctx context.Context, logger *slog.Logger, op operation.Operation, cause error) (Outcome, error) {
	e.logFailure(logger, cause)
	// A cancelled context would abort persistence of the failure itself.
	persistCtx := context.WithoutCancel(ctx)
	if err := e.transition(persistCtx, op.ID, operation.StatusFailed); err != nil {
		return Outcome{}, err
	}
	if err := e.transcript.Notice(persistCtx, e.Apology()); err != nil {
		return Outcome{}, err
	}
	return Outcome{ID: op.ID, Title: op.Title, Status: operation.StatusFailed, Err: cause}, nil
}

func (e *Executor) logFailure(logger *slog.Logger, cause error) {
	attrs := []logging.Attr{
		logging.String("resolved_status", string(operation.StatusFailed)),
		logging.String(logging.FieldErrorKind, services.Kind(cause)),
		logging.String(logging.FieldErrorHint, hintFor(cause)),
		logging.Error(cause),
	}
	if code := backend.StatusCode(cause); code != 0 {
		attrs = append(attrs, logging.Int("http_status", code))
	}
	logging.ErrorWithContext(logger, e.kind.Noun+" failed", "operation_failure", attrs...)
}

// transition writes status into the list, persists the list, and only then
// notifies the observer.
func (e *Executor) transition(ctx context.Context, id string, status operation.Status) error {
	updated, err := e.list.SetStatus(id, status)
	if err != nil {
		return err
	}
	if e.persister != nil {
		if err := e.persister.SaveOperations(ctx, e.kind, e.list.Snapshot()); err != nil {
			return fmt.Errorf("persist %s status: %w", e.kind.Noun, err)
		}
	}
	if e.observer != nil {
		e.observer(updated)
	}
	return nil
}

func (e *Executor) applyPreview(ctx context.Context, result backend.ExecuteResult) error {
	htmlChanged := e.preview.SetHTML(result.Preview)
	stateChanged := e.preview.SetState(result.PreviewState)
	if (!htmlChanged && !stateChanged) || e.persister == nil {
		return nil
	}
	if err := e.persister.SavePreview(ctx, e.kind, e.preview.Snapshot()); err != nil {
		return fmt.Errorf("persist preview: %w", err)
	}
	return nil
}

func (e *Executor) notifyBatch(ctx context.Context, report Report) {
	if len(report.Processed) < 2 && !report.Halted {
		return
	}
	event := notifications.EventBatchCompleted
	payload := notifications.Payload{
		"kind":      e.kind.Noun,
		"completed": report.Completed,
		"duration":  report.Duration,
	}
	if report.Halted {
		event = notifications.EventBatchFailed
		payload["operation"] = report.StoppedAt
		if last, ok := report.Last(); ok {
			payload["title"] = last.Title
		}
	}
	if err := e.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		e.logger.Debug("batch notification failed", logging.Error(err))
	}
}

func (e *Executor) notFound(id string) error {
	return services.Wrap(services.ErrNotFound, "executor", e.kind.Name, fmt.Sprintf("unknown %s %q", e.kind.Noun, id), nil)
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrTransport):
		return "check that the backend is running and reachable"
	case errors.Is(err, services.ErrMalformed):
		return "backend returned an unexpected response; see backend logs"
	case errors.Is(err, services.ErrRejected):
		return "review the backend message and re-run the operation"
	default:
		return "check the session log for details"
	}
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, notifications.Event, notifications.Payload) error {
	return nil
}
