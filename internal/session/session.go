package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"saasywrap/internal/chat"
	"saasywrap/internal/operation"
	"saasywrap/internal/requirements"
	"saasywrap/internal/services"
)

// State is everything persisted for one session.
type State struct {
	Name         string
	UserID       string
	Initial      requirements.InitialContext
	Requirements []requirements.Requirement
	Operations   map[string][]operation.Operation
	Previews     map[string]operation.PreviewSnapshot
	Transcripts  map[string][]chat.Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary describes a stored session for listings.
type Summary struct {
	Name         string
	UserID       string
	Requirements int
	Operations   int
	UpdatedAt    time.Time
}

// Session is a Store bound to one session name. It satisfies the executor
// persister and the chat recorder contracts.
type Session struct {
	store *Store
	name  string
}

// Session returns a handle for name. Call Ensure before writing.
func (s *Store) Session(name string) *Session {
	return &Session{store: s, name: strings.TrimSpace(name)}
}

// Name returns the bound session name.
func (h *Session) Name() string {
	return h.name
}

// Ensure creates the session row when missing.
func (h *Session) Ensure(ctx context.Context, userID string) error {
	now := h.store.timestamp()
	err := h.store.execWithRetry(ctx,
		`INSERT INTO sessions (name, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		h.name, userID, now, now,
	)
	if err != nil {
		return fmt.Errorf("ensure session %q: %w", h.name, err)
	}
	return nil
}

// Exists reports whether the session has been created.
func (h *Session) Exists(ctx context.Context) (bool, error) {
	var count int
	err := h.store.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM sessions WHERE name = ?", h.name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check session %q: %w", h.name, err)
	}
	return count > 0, nil
}

// Load reads the whole session. A missing session reports services.ErrNotFound.
func (h *Session) Load(ctx context.Context) (State, error) {
	ctx = ensureContext(ctx)
	state := State{
		Name:        h.name,
		Operations:  map[string][]operation.Operation{},
		Previews:    map[string]operation.PreviewSnapshot{},
		Transcripts: map[string][]chat.Message{},
	}

	var created, updated string
	err := h.store.db.QueryRowContext(ctx,
		`SELECT user_id, initial_requirements, dataset_path, dataset_name, created_at, updated_at
		 FROM sessions WHERE name = ?`, h.name,
	).Scan(&state.UserID, &state.Initial.Requirements, &state.Initial.DatasetPath, &state.Initial.DatasetName, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return state, services.Wrap(services.ErrNotFound, "session", "load", fmt.Sprintf("session %q has not been initialized", h.name), nil)
	}
	if err != nil {
		return state, fmt.Errorf("load session %q: %w", h.name, err)
	}
	state.CreatedAt = parseTimestamp(created)
	state.UpdatedAt = parseTimestamp(updated)

	if state.Requirements, err = h.loadRequirements(ctx); err != nil {
		return state, err
	}
	if err := h.loadOperations(ctx, state.Operations); err != nil {
		return state, err
	}
	if err := h.loadPreviews(ctx, state.Previews); err != nil {
		return state, err
	}
	if err := h.loadMessages(ctx, state.Transcripts); err != nil {
		return state, err
	}
	return state, nil
}

func (h *Session) loadRequirements(ctx context.Context) ([]requirements.Requirement, error) {
	rows, err := h.store.db.QueryContext(ctx, "SELECT body FROM requirements WHERE session = ? ORDER BY position", h.name)
	if err != nil {
		return nil, fmt.Errorf("query requirements: %w", err)
	}
	defer rows.Close()
	var out []requirements.Requirement
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		var req requirements.Requirement
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return nil, fmt.Errorf("decode stored requirement: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (h *Session) loadOperations(ctx context.Context, into map[string][]operation.Operation) error {
	rows, err := h.store.db.QueryContext(ctx, "SELECT kind, body FROM operations WHERE session = ? ORDER BY kind, position", h.name)
	if err != nil {
		return fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, body string
		if err := rows.Scan(&kind, &body); err != nil {
			return fmt.Errorf("scan operation: %w", err)
		}
		var op operation.Operation
		if err := json.Unmarshal([]byte(body), &op); err != nil {
			return fmt.Errorf("decode stored operation: %w", err)
		}
		into[kind] = append(into[kind], op)
	}
	return rows.Err()
}

func (h *Session) loadPreviews(ctx context.Context, into map[string]operation.PreviewSnapshot) error {
	rows, err := h.store.db.QueryContext(ctx, "SELECT kind, html, state FROM previews WHERE session = ?", h.name)
	if err != nil {
		return fmt.Errorf("query previews: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			kind, html string
			state      sql.NullString
		)
		if err := rows.Scan(&kind, &html, &state); err != nil {
			return fmt.Errorf("scan preview: %w", err)
		}
		snap := operation.PreviewSnapshot{HTML: html}
		if state.Valid && state.String != "" {
			snap.State = json.RawMessage(state.String)
		}
		into[kind] = snap
	}
	return rows.Err()
}

func (h *Session) loadMessages(ctx context.Context, into map[string][]chat.Message) error {
	rows, err := h.store.db.QueryContext(ctx, "SELECT channel, role, content FROM messages WHERE session = ? ORDER BY id", h.name)
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var channel string
		var msg chat.Message
		if err := rows.Scan(&channel, &msg.Role, &msg.Content); err != nil {
			return fmt.Errorf("scan message: %w", err)
		}
		into[channel] = append(into[channel], msg)
	}
	return rows.Err()
}

// SaveInitialContext stores the upload coordinator input.
func (h *Session) SaveInitialContext(ctx context.Context, initial requirements.InitialContext) error {
	err := h.store.execWithRetry(ctx,
		`UPDATE sessions SET initial_requirements = ?, dataset_path = ?, dataset_name = ?, updated_at = ? WHERE name = ?`,
		initial.Requirements, initial.DatasetPath, initial.DatasetName, h.store.timestamp(), h.name,
	)
	if err != nil {
		return fmt.Errorf("save initial context: %w", err)
	}
	return nil
}

// SaveRequirements replaces the stored requirement list.
func (h *Session) SaveRequirements(ctx context.Context, reqs []requirements.Requirement) error {
	err := h.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM requirements WHERE session = ?", h.name); err != nil {
			return err
		}
		for i, req := range reqs {
			body, err := json.Marshal(req)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO requirements (session, position, id, body) VALUES (?, ?, ?, ?)",
				h.name, i, req.ID, string(body),
			); err != nil {
				return err
			}
		}
		return h.touch(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("save requirements: %w", err)
	}
	return nil
}

// SaveOperations replaces the stored list for kind.
func (h *Session) SaveOperations(ctx context.Context, kind operation.Kind, ops []operation.Operation) error {
	err := h.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM operations WHERE session = ? AND kind = ?", h.name, kind.Name); err != nil {
			return err
		}
		for i, op := range ops {
			body, err := json.Marshal(op)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO operations (session, kind, position, id, status, body) VALUES (?, ?, ?, ?, ?, ?)",
				h.name, kind.Name, i, op.ID, string(op.Status), string(body),
			); err != nil {
				return err
			}
		}
		return h.touch(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", kind.Name, err)
	}
	return nil
}

// SavePreview stores the preview panel for kind.
func (h *Session) SavePreview(ctx context.Context, kind operation.Kind, preview operation.PreviewSnapshot) error {
	var state any
	if len(preview.State) > 0 {
		state = string(preview.State)
	}
	err := h.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO previews (session, kind, html, state) VALUES (?, ?, ?, ?)
			 ON CONFLICT(session, kind) DO UPDATE SET html = excluded.html, state = excluded.state`,
			h.name, kind.Name, preview.HTML, state,
		); err != nil {
			return err
		}
		return h.touch(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("save %s preview: %w", kind.Name, err)
	}
	return nil
}

// RecordMessage appends a transcript entry.
func (h *Session) RecordMessage(ctx context.Context, channel string, msg chat.Message) error {
	err := h.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO messages (session, channel, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
			h.name, channel, string(msg.Role), msg.Content, h.store.timestamp(),
		); err != nil {
			return err
		}
		return h.touch(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("record %s message: %w", channel, err)
	}
	return nil
}

// ClearOperations removes the stored list, preview, and transcript for kind.
func (h *Session) ClearOperations(ctx context.Context, kind operation.Kind) error {
	err := h.store.withTx(ctx, func(tx *sql.Tx) error {
		for _, query := range []string{
			"DELETE FROM operations WHERE session = ? AND kind = ?",
			"DELETE FROM previews WHERE session = ? AND kind = ?",
			"DELETE FROM messages WHERE session = ? AND channel = ?",
		} {
			if _, err := tx.ExecContext(ctx, query, h.name, kind.Name); err != nil {
				return err
			}
		}
		return h.touch(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("clear %s: %w", kind.Name, err)
	}
	return nil
}

// Delete removes the session and everything stored under it.
func (h *Session) Delete(ctx context.Context) (bool, error) {
	var affected int64
	err := h.store.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE name = ?", h.name)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete session %q: %w", h.name, err)
	}
	return affected > 0, nil
}

func (h *Session) touch(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "UPDATE sessions SET updated_at = ? WHERE name = ?", h.store.timestamp(), h.name)
	return err
}

// List returns every stored session ordered by most recent activity.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.user_id, s.updated_at,
		       (SELECT COUNT(1) FROM requirements r WHERE r.session = s.name),
		       (SELECT COUNT(1) FROM operations o WHERE o.session = s.name)
		FROM sessions s
		ORDER BY s.updated_at DESC, s.name`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var summary Summary
		var updated string
		if err := rows.Scan(&summary.Name, &summary.UserID, &updated, &summary.Requirements, &summary.Operations); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		summary.UpdatedAt = parseTimestamp(updated)
		out = append(out, summary)
	}
	return out, rows.Err()
}
