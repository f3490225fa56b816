package requirements

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"saasywrap/internal/jsonutil"
	"saasywrap/internal/operation"
	"saasywrap/internal/services"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// InitialContext is the upload coordinator input, replayed with every
// requirements chat request.
type InitialContext struct {
	Requirements string `json:"requirements"`
	DatasetPath  string `json:"datasetPath,omitempty"`
	DatasetName  string `json:"datasetName,omitempty"`
}

// Registry is the ordered requirement list. It is safe for concurrent use.
type Registry struct {
	userID string
	now    func() time.Time
	newID  func() string

	mu      sync.RWMutex
	items   []Requirement
	initial InitialContext
}

// Option customizes a Registry.
type Option func(*Registry)

// WithUserID sets the author recorded in metadata and history entries.
func WithUserID(id string) Option {
	return func(r *Registry) {
		if strings.TrimSpace(id) != "" {
			r.userID = strings.TrimSpace(id)
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides requirement id generation (useful for tests).
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		userID: "default-user",
		now:    time.Now,
	}
	r.newID = r.generateID
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) generateID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("req-%d-%s", r.now().UnixMilli(), suffix)
}

func (r *Registry) timestamp() string {
	return r.now().UTC().Format(timestampLayout)
}

// UserID returns the configured author.
func (r *Registry) UserID() string {
	return r.userID
}

// Len returns the number of requirements.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Snapshot returns a deep copy of the list in order.
func (r *Registry) Snapshot() []Requirement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Requirement, len(r.items))
	for i, req := range r.items {
		out[i] = req.Clone()
	}
	return out
}

// Refs returns the advisory view of every requirement.
func (r *Registry) Refs() []operation.RequirementRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs := make([]operation.RequirementRef, len(r.items))
	for i, req := range r.items {
		refs[i] = req.Ref()
	}
	return refs
}

// Get returns the requirement with id.
func (r *Registry) Get(id string) (Requirement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexLocked(id); idx >= 0 {
		return r.items[idx].Clone(), true
	}
	return Requirement{}, false
}

// InitialContext returns the upload coordinator input.
func (r *Registry) InitialContext() InitialContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initial
}

// SetInitialContext records the upload coordinator input.
func (r *Registry) SetInitialContext(ctx InitialContext) {
	r.mu.Lock()
	r.initial = ctx
	r.mu.Unlock()
}

// Load restores a persisted list verbatim.
func (r *Registry) Load(items []Requirement) {
	next := make([]Requirement, len(items))
	for i, req := range items {
		next[i] = req.Clone()
	}
	r.mu.Lock()
	r.items = next
	r.mu.Unlock()
}

// Enrich fills missing metadata: id, dateAdded, createdBy, and an initial
// "created" history entry. dateModified is always refreshed.
func (r *Registry) Enrich(req Requirement, userCreated bool) Requirement {
	now := r.timestamp()
	out := req.Clone()
	if strings.TrimSpace(out.ID) == "" {
		out.ID = r.newID()
	}
	out.DateModified = now
	if out.DateAdded == "" {
		out.DateAdded = now
	}
	if out.CreatedBy == "" {
		out.CreatedBy = r.userID
	}
	if out.ChangeHistory == nil {
		details := "Requirement generated by AI"
		if userCreated {
			details = "Requirement created by user"
		}
		out.ChangeHistory = []Change{{
			Type:      ChangeCreated,
			Timestamp: now,
			UserID:    r.userID,
			Details:   details,
		}}
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

// Replace swaps the list for backend-generated records, enriching each.
func (r *Registry) Replace(raw []json.RawMessage) error {
	next := make([]Requirement, 0, len(raw))
	for _, entry := range raw {
		var req Requirement
		if err := json.Unmarshal(entry, &req); err != nil {
			return services.Wrap(services.ErrMalformed, "requirements", "replace", "decode requirement", err)
		}
		next = append(next, r.Enrich(req, false))
	}
	r.mu.Lock()
	r.items = next
	r.mu.Unlock()
	return nil
}

// ChatUpdate is the requirement payload of a chat reply.
type ChatUpdate struct {
	Requirements []json.RawMessage `json:"requirements"`
	Deleted      []string          `json:"deletedRequirements"`
}

// MergeResult lists the ids touched by Merge.
type MergeResult struct {
	Added   []string
	Updated []string
	Deleted []string
}

// Changed reports whether the merge altered the list.
func (m MergeResult) Changed() bool {
	return len(m.Added)+len(m.Updated)+len(m.Deleted) > 0
}

// Merge reconciles a chat update: records whose id matches an existing one are
// shallow-merged with incoming fields winning, unmatched records are enriched
// and appended, and ids on the deletion list are removed last. The list is
// left untouched when any record fails to decode.
func (r *Registry) Merge(update ChatUpdate) (MergeResult, error) {
	var result MergeResult
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]Requirement, len(r.items))
	for i, req := range r.items {
		next[i] = req.Clone()
	}

	for _, entry := range update.Requirements {
		var incoming struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(entry, &incoming); err != nil {
			return MergeResult{}, services.Wrap(services.ErrMalformed, "requirements", "merge", "decode requirement", err)
		}
		idx := -1
		if incoming.ID != "" {
			idx = slices.IndexFunc(next, func(req Requirement) bool { return req.ID == incoming.ID })
		}
		if idx >= 0 {
			var merged Requirement
			if err := jsonutil.Overlay(next[idx], entry, &merged); err != nil {
				return MergeResult{}, services.Wrap(services.ErrMalformed, "requirements", "merge", "overlay requirement "+incoming.ID, err)
			}
			next[idx] = r.Enrich(merged, false)
			result.Updated = append(result.Updated, merged.ID)
			continue
		}
		var req Requirement
		if err := json.Unmarshal(entry, &req); err != nil {
			return MergeResult{}, services.Wrap(services.ErrMalformed, "requirements", "merge", "decode requirement", err)
		}
		enriched := r.Enrich(req, false)
		next = append(next, enriched)
		result.Added = append(result.Added, enriched.ID)
	}

	for _, id := range update.Deleted {
		idx := slices.IndexFunc(next, func(req Requirement) bool { return req.ID == id })
		if idx < 0 {
			continue
		}
		next = slices.Delete(next, idx, idx+1)
		result.Deleted = append(result.Deleted, id)
	}

	r.items = next
	return result, nil
}

// AddNew appends a blank user-created requirement and returns it.
func (r *Registry) AddNew() Requirement {
	req := r.Enrich(Requirement{
		Title:       "New Requirement",
		Description: "Add description here...",
		Importance:  ImportanceMedium,
		Category:    "uncategorized",
		Tags:        []string{},
	}, true)
	r.mu.Lock()
	r.items = append(r.items, req)
	r.mu.Unlock()
	return req.Clone()
}

// Delete removes the requirement with id.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(id)
	if idx < 0 {
		return r.notFound(id)
	}
	r.items = slices.Delete(r.items, idx, idx+1)
	return nil
}

func (r *Registry) indexLocked(id string) int {
	return slices.IndexFunc(r.items, func(req Requirement) bool { return req.ID == id })
}

func (r *Registry) notFound(id string) error {
	return services.Wrap(services.ErrNotFound, "requirements", "", fmt.Sprintf("unknown requirement %q", id), nil)
}
