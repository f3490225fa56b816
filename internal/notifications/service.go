package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"saasywrap/internal/config"
)

const userAgent = "saasywrap/0.1.0"

// Event identifies a notification-worthy occurrence.
type Event string

const (
	EventBatchCompleted Event = "batch_completed"
	EventBatchFailed    Event = "batch_failed"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event-specific values.
type Payload map[string]any

// Service publishes wizard events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		batch:    cfg.Notifications.Batch,
		errors:   cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	batch    bool
	errors   bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventBatchCompleted:
		if !n.batch {
			return message{}, false
		}
		kind := payloadString(payload, "kind")
		return message{
			title: "saasywrap - " + titleFor(kind) + " Complete",
			body: fmt.Sprintf("✅ %d %s completed in %s",
				payloadInt(payload, "completed"), plural(kind, payloadInt(payload, "completed")), payloadDuration(payload, "duration")),
			tags: []string{"saasywrap", kind, "completed"},
		}, true
	case EventBatchFailed:
		if !n.batch {
			return message{}, false
		}
		kind := payloadString(payload, "kind")
		body := fmt.Sprintf("❌ %s %s failed after %d completed",
			kind, payloadString(payload, "operation"), payloadInt(payload, "completed"))
		if title := payloadString(payload, "title"); title != "" {
			body = fmt.Sprintf("%s\n%s", body, title)
		}
		return message{
			title:    "saasywrap - " + titleFor(kind) + " Stopped",
			body:     body,
			tags:     []string{"saasywrap", kind, "failed"},
			priority: "high",
		}, true
	case EventError:
		if !n.errors {
			return message{}, false
		}
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payloadString(payload, "context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if detail := payloadString(payload, "error"); detail != "" {
			builder.WriteString(detail)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "saasywrap - Error",
			body:     builder.String(),
			tags:     []string{"saasywrap", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "saasywrap - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"saasywrap", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func payloadString(payload Payload, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func payloadInt(payload Payload, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func payloadDuration(payload Payload, key string) string {
	d, _ := payload[key].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func titleFor(kind string) string {
	switch kind {
	case "transform":
		return "Blueprint"
	case "step":
		return "Plan"
	default:
		return "Batch"
	}
}

func plural(noun string, count int) string {
	if noun == "" {
		noun = "operation"
	}
	if count == 1 {
		return noun
	}
	return noun + "s"
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
