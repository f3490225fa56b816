package wizard

import (
	"context"
	"fmt"
	"log/slog"

	"saasywrap/internal/backend"
	"saasywrap/internal/chat"
	"saasywrap/internal/executor"
	"saasywrap/internal/logging"
	"saasywrap/internal/notifications"
	"saasywrap/internal/operation"
	"saasywrap/internal/requirements"
	"saasywrap/internal/services"
	"saasywrap/internal/session"
)

// RequirementsChannel is the transcript channel of the requirements screen.
const RequirementsChannel = "requirements"

// Backend is the slice of the backend client the workspace drives.
type Backend interface {
	chat.Poster
	executor.Backend
	GenerateRequirements(ctx context.Context, in backend.GenerateRequirementsRequest) (backend.GenerateRequirementsResponse, error)
	GenerateOperations(ctx context.Context, path, listField string, requirements any) (backend.GenerateOperationsResponse, error)
}

// Store persists workspace state. *session.Session satisfies it.
type Store interface {
	chat.Recorder
	executor.Persister
	Ensure(ctx context.Context, userID string) error
	Load(ctx context.Context) (session.State, error)
	SaveInitialContext(ctx context.Context, initial requirements.InitialContext) error
	SaveRequirements(ctx context.Context, reqs []requirements.Requirement) error
}

// Deps carries the collaborators Open wires together.
type Deps struct {
	Backend  Backend
	Store    Store
	Notifier notifications.Service
	Logger   *slog.Logger
	// UserID is recorded as the author of requirement edits.
	UserID string
	// RegistryOptions customize the requirement registry (clock, id source).
	RegistryOptions []requirements.Option
	// Observer, when set, sees every executor status transition.
	Observer executor.Observer
}

// Board is one operation list with its preview, transcript, chat, and executor.
type Board struct {
	Kind       operation.Kind
	List       *operation.List
	Preview    *operation.Preview
	Transcript *chat.Transcript
	Executor   *executor.Executor

	chat *chat.Conversation
}

// Workspace is the composition root of one wizard session. It owns the
// requirement registry and both operation boards and keeps them consistent.
type Workspace struct {
	name     string
	client   Backend
	store    Store
	notifier notifications.Service
	logger   *slog.Logger

	registry        *requirements.Registry
	reqTranscript   *chat.Transcript
	reqConversation *chat.Conversation
	boards          map[string]*Board
}

// Open restores the session held by deps.Store, creating it when missing.
func Open(ctx context.Context, name string, deps Deps) (*Workspace, error) {
	if deps.Backend == nil || deps.Store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "wizard", "open", "backend and store are required", nil)
	}
	ctx = services.WithSession(ctx, name)
	if err := deps.Store.Ensure(ctx, deps.UserID); err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}
	state, err := deps.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}

	userID := deps.UserID
	if userID == "" {
		userID = state.UserID
	}
	regOpts := append([]requirements.Option{requirements.WithUserID(userID)}, deps.RegistryOptions...)
	registry := requirements.NewRegistry(regOpts...)
	registry.Load(state.Requirements)
	registry.SetInitialContext(state.Initial)

	w := &Workspace{
		name:     name,
		client:   deps.Backend,
		store:    deps.Store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "wizard"),
		registry: registry,
		boards:   make(map[string]*Board, 2),
	}
	w.reqTranscript = chat.NewTranscript(RequirementsChannel, state.Transcripts[RequirementsChannel], deps.Store)
	w.reqConversation = chat.NewConversation(deps.Backend, backend.PathChatRequirements, w.reqTranscript,
		chat.WithExtra(w.requirementsExtra),
		chat.WithHandler(w.handleRequirementsReply),
		chat.WithLogger(logger),
	)

	for _, kind := range operation.Kinds() {
		list := operation.NewList(kind)
		if err := list.Replace(state.Operations[kind.Name]); err != nil {
			return nil, fmt.Errorf("restore %s: %w", kind.Name, err)
		}
		board := &Board{
			Kind:       kind,
			List:       list,
			Preview:    operation.NewPreview(state.Previews[kind.Name]),
			Transcript: chat.NewTranscript(kind.Name, state.Transcripts[kind.Name], deps.Store),
		}
		execOpts := []executor.Option{
			executor.WithPersister(deps.Store),
			executor.WithNotifier(notifier),
			executor.WithLogger(logger),
		}
		if deps.Observer != nil {
			execOpts = append(execOpts, executor.WithObserver(deps.Observer))
		}
		board.Executor = executor.New(list, board.Preview, board.Transcript, deps.Backend, execOpts...)
		board.chat = chat.NewConversation(deps.Backend, kind.ChatPath, board.Transcript,
			chat.WithExtra(w.operationsExtra(board)),
			chat.WithHandler(w.operationsReplyHandler(board)),
			chat.WithLogger(logger),
		)
		w.boards[kind.Name] = board
	}
	return w, nil
}

// Name returns the session name.
func (w *Workspace) Name() string {
	return w.name
}

// Registry returns the requirement registry.
func (w *Workspace) Registry() *requirements.Registry {
	return w.registry
}

// RequirementsTranscript returns the requirements chat transcript.
func (w *Workspace) RequirementsTranscript() *chat.Transcript {
	return w.reqTranscript
}

// Board returns the board for kind.
func (w *Workspace) Board(kind operation.Kind) *Board {
	return w.boards[kind.Name]
}

// Transcript resolves a channel name to its transcript.
func (w *Workspace) Transcript(channel string) (*chat.Transcript, bool) {
	if channel == RequirementsChannel {
		return w.reqTranscript, true
	}
	kind, ok := operation.KindByName(channel)
	if !ok {
		return nil, false
	}
	return w.boards[kind.Name].Transcript, true
}

func (w *Workspace) context(ctx context.Context) context.Context {
	return services.WithSession(ctx, w.name)
}

func (w *Workspace) saveRequirements(ctx context.Context) error {
	if err := w.store.SaveRequirements(ctx, w.registry.Snapshot()); err != nil {
		return fmt.Errorf("persist requirements: %w", err)
	}
	return nil
}

func (w *Workspace) saveOperations(ctx context.Context, board *Board) error {
	if err := w.store.SaveOperations(ctx, board.Kind, board.List.Snapshot()); err != nil {
		return fmt.Errorf("persist %s: %w", board.Kind.Name, err)
	}
	return nil
}

// reviewBoards raises board advisories after the requirement set changed from prev.
func (w *Workspace) reviewBoards(ctx context.Context, prev []operation.RequirementRef) error {
	cur := w.registry.Refs()
	for _, kind := range operation.Kinds() {
		board := w.boards[kind.Name]
		ops := board.List.Snapshot()
		if len(ops) == 0 {
			continue
		}
		for _, advisory := range operation.ReviewRequirements(kind, ops, prev, cur) {
			if err := board.Transcript.Notice(ctx, advisory.Message); err != nil {
				return err
			}
		}
	}
	return nil
}

// reviewRequirements raises requirement advisories after board's list changed.
func (w *Workspace) reviewRequirements(ctx context.Context, board *Board) error {
	for _, advisory := range w.registry.ReviewOperations(board.Kind, board.List.Snapshot()) {
		if err := w.reqTranscript.Notice(ctx, advisory.Message); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workspace) reportError(ctx context.Context, what string, err error) {
	if pubErr := w.notifier.Publish(ctx, notifications.EventError, notifications.Payload{
		"context": what,
		"error":   err.Error(),
	}); pubErr != nil {
		logging.WarnWithContext(logging.WithContext(ctx, w.logger), "error notification failed", "notification_failure",
			logging.String(logging.FieldImpact, "error was not pushed to ntfy"),
			logging.Error(pubErr),
		)
	}
}
