package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tagbrain/internal/config"
)

// Event identifies a notification kind.
type Event string

const (
	// EventScanCompleted fires when a track was identified and published.
	EventScanCompleted Event = "scan_completed"
	// EventScanFailed fires on a terminal scan failure.
	EventScanFailed Event = "scan_failed"
	// EventFixCompleted fires when a manual fix succeeded.
	EventFixCompleted Event = "fix_completed"
	// EventFixFailed fires when a manual fix failed.
	EventFixFailed Event = "fix_failed"
	// EventTest is sent by the CLI to verify delivery.
	EventTest Event = "test"
)

// Payload carries event fields. Values are formatted with %v.
type Payload map[string]any

// Service publishes events.
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
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		userAgent: "tagbrain/" + config.Version,
		failures:  cfg.Notifications.ScanFailures,
		successes: cfg.Notifications.ScanSuccesses,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	userAgent string
	failures  bool
	successes bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n == nil {
		return nil
	}
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventScanCompleted, EventFixCompleted:
		return n.successes
	case EventScanFailed, EventFixFailed:
		return n.failures
	}
	return true
}

func format(event Event, data Payload) (payload, bool) {
	switch event {
	case EventScanCompleted:
		message := fmt.Sprintf("🎵 Tagged: %s - %s", text(data, "artist"), text(data, "title"))
		if target := text(data, "target"); target != "" {
			message += "\nFile: " + target
		}
		return payload{
			title:   "tagbrain - Scan Complete",
			message: message,
			tags:    []string{"tagbrain", "scan", "completed"},
		}, true
	case EventScanFailed:
		return payload{
			title:    "tagbrain - Scan Failed",
			message:  fmt.Sprintf("❌ Could not tag %s: %s", text(data, "source"), text(data, "error")),
			tags:     []string{"tagbrain", "scan", "failed"},
			priority: "high",
		}, true
	case EventFixCompleted:
		return payload{
			title:   "tagbrain - Fix Complete",
			message: fmt.Sprintf("🔧 Fixed: %s", text(data, "target")),
			tags:    []string{"tagbrain", "fix", "completed"},
		}, true
	case EventFixFailed:
		return payload{
			title:    "tagbrain - Fix Failed",
			message:  fmt.Sprintf("❌ Fix failed for %s: %s", text(data, "source"), text(data, "error")),
			tags:     []string{"tagbrain", "fix", "failed"},
			priority: "high",
		}, true
	case EventTest:
		return payload{
			title:    "tagbrain - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"tagbrain", "test"},
			priority: "low",
		}, true
	}
	return payload{}, false
}

func text(data Payload, key string) string {
	value, ok := data[key]
	if !ok || value == nil {
		return ""
	}
	if err, ok := value.(error); ok {
		return strings.TrimSpace(err.Error())
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
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
