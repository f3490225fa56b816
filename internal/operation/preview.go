package operation

import (
	"encoding/json"
	"slices"
	"strings"
	"sync"
)

// PreviewSnapshot is a copy of a list's preview panel.
type PreviewSnapshot struct {
	HTML  string          `json:"html"`
	State json.RawMessage `json:"state"`
}

// Preview holds the rendered preview and the opaque state blob shared by the
// operations of one list. The state is last-writer-wins.
type Preview struct {
	mu    sync.RWMutex
	html  string
	state json.RawMessage
}

// NewPreview returns a preview seeded from a persisted snapshot.
func NewPreview(snap PreviewSnapshot) *Preview {
	p := &Preview{html: snap.HTML}
	p.SetState(snap.State)
	return p
}

// HTML returns the last rendered preview payload.
func (p *Preview) HTML() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.html
}

// State returns a copy of the shared state blob, nil when never set.
func (p *Preview) State() json.RawMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.state)
}

// SetHTML replaces the preview payload. Empty payloads are ignored.
func (p *Preview) SetHTML(html string) bool {
	if html == "" {
		return false
	}
	p.mu.Lock()
	p.html = html
	p.mu.Unlock()
	return true
}

// SetState overwrites the shared state. Empty or null blobs are ignored.
func (p *Preview) SetState(state json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(state))
	if trimmed == "" || trimmed == "null" {
		return false
	}
	p.mu.Lock()
	p.state = slices.Clone(state)
	p.mu.Unlock()
	return true
}

// Snapshot returns a copy suitable for persistence.
func (p *Preview) Snapshot() PreviewSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PreviewSnapshot{HTML: p.html, State: slices.Clone(p.state)}
}
