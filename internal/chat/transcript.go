package chat

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleNotice marks local diagnostics (apologies, advisories). Notices are
	// shown but never sent back to the backend as chat history.
	RoleNotice Role = "notice"
)

// Message is one transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Recorder persists transcript entries as they are appended.
type Recorder interface {
	RecordMessage(ctx context.Context, channel string, msg Message) error
}

// Transcript is the append-only message log of one chat channel. It is safe
// for concurrent use.
type Transcript struct {
	channel  string
	recorder Recorder

	mu       sync.RWMutex
	messages []Message
}

// NewTranscript returns a transcript for channel seeded with history.
// recorder may be nil.
func NewTranscript(channel string, history []Message, recorder Recorder) *Transcript {
	return &Transcript{
		channel:  channel,
		recorder: recorder,
		messages: slices.Clone(history),
	}
}

// Channel returns the channel name (requirements, blueprint, plan).
func (t *Transcript) Channel() string {
	return t.channel
}

// Append records a message. Empty content is ignored. The entry stays in
// memory even when the recorder fails; the recorder error is returned.
func (t *Transcript) Append(ctx context.Context, role Role, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	msg := Message{Role: role, Content: content}
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
	if t.recorder == nil {
		return nil
	}
	return t.recorder.RecordMessage(ctx, t.channel, msg)
}

// Notice appends a local diagnostic entry.
func (t *Transcript) Notice(ctx context.Context, content string) error {
	return t.Append(ctx, RoleNotice, content)
}

// Messages returns every entry in order.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.messages)
}

// History returns the user and assistant entries sent as chatHistory.
func (t *Transcript) History() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, 0, len(t.messages))
	for _, msg := range t.messages {
		if msg.Role == RoleUser || msg.Role == RoleAssistant {
			out = append(out, msg)
		}
	}
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
