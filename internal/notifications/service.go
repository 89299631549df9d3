package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clapper/internal/config"
)

const userAgent = "Clapper/0.1.0"

// Event identifies a render lifecycle moment worth announcing.
type Event string

const (
	EventRenderStarted   Event = "render_started"
	EventSceneRendered   Event = "scene_rendered"
	EventRenderCompleted Event = "render_completed"
	EventError           Event = "error"
	EventTest            Event = "test"
)

// Payload carries the event's display values keyed by field name.
type Payload map[string]string

// Service publishes render lifecycle events.
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventRenderStarted:   cfg.Notifications.RenderStarted,
			EventSceneRendered:   cfg.Notifications.SceneRendered,
			EventRenderCompleted: cfg.Notifications.RenderCompleted,
			EventError:           cfg.Notifications.Errors,
			// Test notifications are an explicit user action; never suppressed.
			EventTest: true,
		},
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
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, err := compose(event, payload)
	if err != nil {
		return err
	}
	return n.send(ctx, msg)
}

func compose(event Event, payload Payload) (message, error) {
	get := func(key string) string { return strings.TrimSpace(payload[key]) }

	switch event {
	case EventRenderStarted:
		return message{
			title: "Clapper - Render Started",
			body:  fmt.Sprintf("🎬 Rendering %s: %s scenes", get("project"), get("scenes")),
			tags:  []string{"clapper", "render", "started"},
		}, nil
	case EventSceneRendered:
		body := fmt.Sprintf("Scene %s/%s ready: %s", get("position"), get("total"), get("project"))
		if get("cached") == "true" {
			body += " (cached)"
		}
		return message{
			title: "Clapper - Scene Ready",
			body:  body,
			tags:  []string{"clapper", "scene", "rendered"},
		}, nil
	case EventRenderCompleted:
		failed := get("failed")
		if failed == "" || failed == "0" {
			return message{
				title:    "Clapper - Render Complete",
				body:     fmt.Sprintf("✅ Movie ready: %s\n%s scenes in %s", get("movie"), get("scenes"), get("duration")),
				tags:     []string{"clapper", "render", "completed"},
				priority: "high",
			}, nil
		}
		return message{
			title: "Clapper - Render Complete (with failures)",
			body: fmt.Sprintf("✅ Movie ready: %s\n%s rendered, %s failed in %s",
				get("movie"), get("scenes"), failed, get("duration")),
			tags:     []string{"clapper", "render", "completed"},
			priority: "high",
		}, nil
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := get("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if detail := get("error"); detail != "" {
			builder.WriteString(detail)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Clapper - Error",
			body:     builder.String(),
			tags:     []string{"clapper", "error", "alert"},
			priority: "high",
		}, nil
	case EventTest:
		return message{
			title:    "Clapper - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"clapper", "test"},
			priority: "low",
		}, nil
	default:
		return message{}, fmt.Errorf("unknown notification event %q", event)
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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
