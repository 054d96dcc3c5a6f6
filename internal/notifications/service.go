package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scribe/internal/config"
)

const userAgent = "Scribe-Go/0.1.0"

// Event identifies a run lifecycle milestone worth telling the operator about.
type Event string

const (
	// EventRunCompleted fires when a transcription run finishes and its
	// artifacts are on disk.
	EventRunCompleted Event = "run.completed"
	// EventRunFailed fires when a run fails terminally.
	EventRunFailed Event = "run.failed"
	// EventTest exercises the notification path on demand.
	EventTest Event = "test"
)

// Payload carries the per-event fields used to render the message.
type Payload map[string]string

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		completions: cfg.Notifications.Completions,
		errors:      cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	completions bool
	errors      bool
}

// Publish renders and delivers the event. Events the operator filtered out in
// config are dropped without a network call.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	switch event {
	case EventRunCompleted:
		if !n.completions {
			return nil
		}
		return n.send(ctx, renderCompleted(payload))
	case EventRunFailed:
		if !n.errors {
			return nil
		}
		return n.send(ctx, renderFailed(payload))
	case EventTest:
		return n.send(ctx, message{
			title:    "Scribe - Test",
			body:     "Notification system test",
			tags:     []string{"scribe", "test"},
			priority: "low",
		})
	default:
		return fmt.Errorf("unknown notification event %q", event)
	}
}

func renderCompleted(payload Payload) message {
	audio := payload.get("audio", "unknown input")
	body := fmt.Sprintf("Transcript ready: %s", audio)
	if language := payload.get("language", ""); language != "" {
		body = fmt.Sprintf("%s\nLanguage: %s", body, language)
	}
	if segments := payload.get("segments", ""); segments != "" {
		body = fmt.Sprintf("%s\nSegments: %s", body, segments)
	}
	if output := payload.get("output", ""); output != "" {
		body = fmt.Sprintf("%s\nOutput: %s", body, output)
	}
	return message{
		title: "Scribe - Transcript Ready",
		body:  body,
		tags:  []string{"scribe", "transcribe", "completed"},
	}
}

func renderFailed(payload Payload) message {
	audio := payload.get("audio", "unknown input")
	reason := payload.get("error", "unknown")
	return message{
		title:    "Scribe - Error",
		body:     fmt.Sprintf("Error with %s: %s", audio, reason),
		tags:     []string{"scribe", "error", "alert"},
		priority: "high",
	}
}

func (p Payload) get(key, fallback string) string {
	if p == nil {
		return fallback
	}
	value := strings.TrimSpace(p[key])
	if value == "" {
		return fallback
	}
	return value
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
