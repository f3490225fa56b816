package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"saasywrap/internal/logging"
	"saasywrap/internal/services"
)

// Apology is appended to the transcript when a chat exchange fails.
const Apology = "Sorry, there was an error processing your message. Please try again."

// Poster sends a JSON request and decodes the JSON reply.
type Poster interface {
	PostJSON(ctx context.Context, path string, payload any, out any) error
}

// ExtraFunc supplies the screen-specific request members sent alongside
// message and chatHistory.
type ExtraFunc func() (map[string]any, error)

// Handler applies the domain side effects of a reply.
type Handler func(ctx context.Context, reply Reply) error

// Reply is a decoded chat response.
type Reply struct {
	Response string
	Fields   map[string]json.RawMessage
}

// Has reports whether the reply carried a non-null member named key.
func (r Reply) Has(key string) bool {
	raw, ok := r.Fields[key]
	return ok && strings.TrimSpace(string(raw)) != "null"
}

// Decode unmarshals the member named key into out. Absent members leave out
// untouched.
func (r Reply) Decode(key string, out any) error {
	if !r.Has(key) {
		return nil
	}
	if err := json.Unmarshal(r.Fields[key], out); err != nil {
		return services.Wrap(services.ErrMalformed, "chat", "reply", "decode "+key, err)
	}
	return nil
}

// Conversation posts user messages for one channel and records the exchange.
type Conversation struct {
	client     Poster
	path       string
	transcript *Transcript
	extra      ExtraFunc
	handle     Handler
	logger     *slog.Logger
}

// Option customizes a Conversation.
type Option func(*Conversation)

// WithExtra sets the extra payload provider.
func WithExtra(fn ExtraFunc) Option {
	return func(c *Conversation) {
		c.extra = fn
	}
}

// WithHandler sets the reply handler.
func WithHandler(fn Handler) Option {
	return func(c *Conversation) {
		c.handle = fn
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conversation) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewConversation builds a conversation posting to path.
func NewConversation(client Poster, path string, transcript *Transcript, opts ...Option) *Conversation {
	c := &Conversation{
		client:     client,
		path:       path,
		transcript: transcript,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "chat")
	return c
}

// Transcript returns the conversation transcript.
func (c *Conversation) Transcript() *Transcript {
	return c.transcript
}

// Send records message, posts {message, chatHistory, ...extra} to the
// channel endpoint, appends the response text as an assistant entry, and
// passes the reply to the handler. There is no retry: any failure appends
// exactly one apology notice and is returned, leaving the user message
// recorded.
func (c *Conversation) Send(ctx context.Context, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, services.Wrap(services.ErrValidation, "chat", c.transcript.Channel(), "message is empty", nil)
	}
	if c.client == nil {
		return Reply{}, services.Wrap(services.ErrConfiguration, "chat", c.transcript.Channel(), "backend client unavailable", nil)
	}

	if err := c.transcript.Append(ctx, RoleUser, message); err != nil {
		return Reply{}, err
	}

	reply, err := c.exchange(ctx, message)
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, c.logger), "chat exchange failed", "chat_failure",
			logging.String("channel", c.transcript.Channel()),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "check that the backend is running and reachable"),
			logging.Error(err),
		)
		if noticeErr := c.transcript.Notice(ctx, Apology); noticeErr != nil {
			return reply, errors.Join(err, noticeErr)
		}
		return reply, err
	}
	return reply, nil
}

func (c *Conversation) exchange(ctx context.Context, message string) (Reply, error) {
	payload := map[string]any{}
	if c.extra != nil {
		extra, err := c.extra()
		if err != nil {
			return Reply{}, err
		}
		for key, value := range extra {
			payload[key] = value
		}
	}
	payload["message"] = message
	payload["chatHistory"] = c.transcript.History()

	var fields map[string]json.RawMessage
	if err := c.client.PostJSON(ctx, c.path, payload, &fields); err != nil {
		return Reply{}, err
	}
	reply := Reply{Fields: fields}
	if err := reply.Decode("response", &reply.Response); err != nil {
		return reply, err
	}

	if err := c.transcript.Append(ctx, RoleAssistant, reply.Response); err != nil {
		return reply, err
	}
	if c.handle != nil {
		if err := c.handle(ctx, reply); err != nil {
			return reply, err
		}
	}
	return reply, nil
}
