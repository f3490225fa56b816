package operation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"saasywrap/internal/jsonutil"
	"saasywrap/internal/services"
)

// List is the ordered operation sequence for one Kind. It is safe for
// concurrent use; readers receive copies.
type List struct {
	kind Kind

	mu    sync.RWMutex
	items []Operation
}

// NewList constructs an empty list for kind.
func NewList(kind Kind) *List {
	return &List{kind: kind}
}

// Kind returns the list flavour.
func (l *List) Kind() Kind {
	return l.kind
}

// Len returns the number of operations.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Replace swaps the whole sequence. Operations without an id receive one;
// duplicate ids are rejected and leave the list unchanged.
func (l *List) Replace(ops []Operation) error {
	next := make([]Operation, 0, len(ops))
	seen := make(map[string]struct{}, len(ops))
	for _, op := range ops {
		op = op.Clone()
		if strings.TrimSpace(op.ID) == "" {
			op.ID = l.newID()
		}
		if _, dup := seen[op.ID]; dup {
			return services.Wrap(services.ErrMalformed, "operation", l.kind.Name, fmt.Sprintf("duplicate %s id %q", l.kind.Noun, op.ID), nil)
		}
		seen[op.ID] = struct{}{}
		if !op.Status.Valid() {
			op.Status = StatusPending
		}
		next = append(next, op)
	}

	l.mu.Lock()
	l.items = next
	l.mu.Unlock()
	return nil
}

// Snapshot returns a deep copy of the sequence in order.
func (l *List) Snapshot() []Operation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Operation, len(l.items))
	for i, op := range l.items {
		out[i] = op.Clone()
	}
	return out
}

// IDs returns the operation ids in order.
func (l *List) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, len(l.items))
	for i, op := range l.items {
		ids[i] = op.ID
	}
	return ids
}

// Get returns the operation with id.
func (l *List) Get(id string) (Operation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx := l.indexLocked(id); idx >= 0 {
		return l.items[idx].Clone(), true
	}
	return Operation{}, false
}

// Contains reports whether id is in the list.
func (l *List) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.indexLocked(id) >= 0
}

// FirstPending returns the first pending operation in list order.
func (l *List) FirstPending() (Operation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, op := range l.items {
		if op.Status == StatusPending {
			return op.Clone(), true
		}
	}
	return Operation{}, false
}

// SetStatus writes status into the sequence and returns the updated operation.
func (l *List) SetStatus(id string, status Status) (Operation, error) {
	if !status.Valid() {
		return Operation{}, services.Wrap(services.ErrValidation, "operation", l.kind.Name, fmt.Sprintf("unknown status %q", status), nil)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexLocked(id)
	if idx < 0 {
		return Operation{}, l.notFound(id)
	}
	l.items[idx].Status = status
	return l.items[idx].Clone(), nil
}

// MarkRolledBack moves a completed or failed operation to rolled_back.
func (l *List) MarkRolledBack(id string) (Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexLocked(id)
	if idx < 0 {
		return Operation{}, l.notFound(id)
	}
	current := l.items[idx].Status
	if current != StatusCompleted && current != StatusFailed {
		return Operation{}, services.Wrap(
			services.ErrValidation,
			"operation",
			l.kind.Name,
			fmt.Sprintf("%s %s is %s; only completed or failed %ss can be rolled back", l.kind.Noun, id, current, l.kind.Noun),
			nil,
		)
	}
	l.items[idx].Status = StatusRolledBack
	return l.items[idx].Clone(), nil
}

// Change is one chat-proposed edit: add, modify, or remove.
type Change struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Updates json.RawMessage `json:"updates,omitempty"`
	// Item is the new operation of an add; it is read from the Kind's ChangeField.
	Item json.RawMessage `json:"-"`
}

// DecodeChanges parses a chat changes array for kind.
func DecodeChanges(kind Kind, raw []json.RawMessage) ([]Change, error) {
	changes := make([]Change, 0, len(raw))
	for _, entry := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil {
			return nil, fmt.Errorf("decode change: %w", err)
		}
		var change Change
		if err := json.Unmarshal(entry, &change); err != nil {
			return nil, fmt.Errorf("decode change: %w", err)
		}
		if item, ok := fields[kind.ChangeField]; ok {
			change.Item = item
		} else if item, ok := fields["item"]; ok {
			change.Item = item
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// ApplyResult lists the ids touched by Apply.
type ApplyResult struct {
	Added    []string
	Modified []string
	Removed  []string
	Skipped  []string
}

// Changed reports whether any change took effect.
func (r ApplyResult) Changed() bool {
	return len(r.Added)+len(r.Modified)+len(r.Removed) > 0
}

// Apply performs chat edits in order. Modify overlays the supplied fields on
// the existing operation, keeping its id. Changes that reference unknown ids
// or cannot be decoded are skipped.
func (l *List) Apply(changes []Change) ApplyResult {
	var result ApplyResult
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, change := range changes {
		switch strings.ToLower(strings.TrimSpace(change.Type)) {
		case "add":
			var op Operation
			if len(change.Item) == 0 || json.Unmarshal(change.Item, &op) != nil {
				result.Skipped = append(result.Skipped, change.ID)
				continue
			}
			if strings.TrimSpace(op.ID) == "" {
				op.ID = l.newID()
			}
			if l.indexLocked(op.ID) >= 0 {
				result.Skipped = append(result.Skipped, op.ID)
				continue
			}
			if !op.Status.Valid() {
				op.Status = StatusPending
			}
			l.items = append(l.items, op)
			result.Added = append(result.Added, op.ID)
		case "modify":
			idx := l.indexLocked(change.ID)
			if idx < 0 || len(change.Updates) == 0 {
				result.Skipped = append(result.Skipped, change.ID)
				continue
			}
			current := l.items[idx]
			var merged Operation
			if err := jsonutil.Overlay(current, change.Updates, &merged); err != nil {
				result.Skipped = append(result.Skipped, change.ID)
				continue
			}
			merged.ID = current.ID
			if !merged.Status.Valid() {
				merged.Status = current.Status
			}
			l.items[idx] = merged
			result.Modified = append(result.Modified, change.ID)
		case "remove":
			idx := l.indexLocked(change.ID)
			if idx < 0 {
				result.Skipped = append(result.Skipped, change.ID)
				continue
			}
			l.items = append(l.items[:idx], l.items[idx+1:]...)
			result.Removed = append(result.Removed, change.ID)
		default:
			result.Skipped = append(result.Skipped, change.ID)
		}
	}
	return result
}

func (l *List) indexLocked(id string) int {
	for i, op := range l.items {
		if op.ID == id {
			return i
		}
	}
	return -1
}

func (l *List) notFound(id string) error {
	return services.Wrap(services.ErrNotFound, "operation", l.kind.Name, fmt.Sprintf("unknown %s %q", l.kind.Noun, id), nil)
}

func (l *List) newID() string {
	return l.kind.Noun + "-" + uuid.NewString()[:8]
}
