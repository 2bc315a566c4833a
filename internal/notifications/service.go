package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scenecast/internal/config"
)

const (
	userAgent       = "scenecast/0.1.0"
	defaultNtfyBase = "https://ntfy.sh/"
	defaultTimeout  = 10 * time.Second
)

// Event identifies a workflow milestone worth a push notification.
type Event string

const (
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventJobReview      Event = "job_review"
	EventQueueStarted   Event = "queue_started"
	EventQueueCompleted Event = "queue_completed"
	EventTest           Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]any

// str returns the value under key as trimmed text; errors render their
// message.
func (p Payload) str(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Service publishes workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService returns an ntfy publisher, or a no-op when no topic is set. A
// bare topic name publishes to ntfy.sh; a full URL is used as given.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	n := cfg.Notifications
	topic := strings.TrimSpace(n.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	if !strings.Contains(topic, "://") {
		topic = defaultNtfyBase + strings.TrimLeft(topic, "/")
	}
	timeout := time.Duration(n.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		muted:    map[Event]bool{EventJobCompleted: !n.Completed, EventJobFailed: !n.Failed, EventJobReview: !n.Failed},
	}
}

// message maps onto ntfy's publish headers; the body is the notification
// text.
type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type formatter func(Payload) message

var formatters = map[Event]formatter{
	EventJobCompleted: func(p Payload) message {
		body := "✅ Video ready: " + p.str("topic")
		if output := p.str("output"); output != "" {
			body += "\nFile: " + output
		}
		return message{title: "Complete", body: body, tags: []string{"video", "completed"}, priority: "high"}
	},
	EventJobFailed: func(p Payload) message { return jobProblem(p, "❌", "Failed", "error") },
	EventJobReview: func(p Payload) message { return jobProblem(p, "⚠️", "Needs Review", "review") },
	EventQueueStarted: func(p Payload) message {
		return message{
			title: "Queue Started",
			body:  fmt.Sprintf("Started processing %v queued videos", p["count"]),
			tags:  []string{"queue", "started"},
		}
	},
	EventQueueCompleted: func(p Payload) message {
		took, _ := p["duration"].(time.Duration)
		took = max(took.Round(time.Second), 0)
		return message{
			title: "Queue Complete",
			body:  fmt.Sprintf("Queue drained: %v completed, %v failed in %s", p["processed"], p["failed"], took),
			tags:  []string{"queue", "completed"},
		}
	},
	EventTest: func(Payload) message {
		return message{title: "Test", body: "🧪 Notification system test", tags: []string{"test"}, priority: "low"}
	},
}

func jobProblem(p Payload, emoji, label, tag string) message {
	body := emoji + " " + label
	if stage := p.str("stage"); stage != "" {
		body += " during " + stage
	}
	if topic := p.str("topic"); topic != "" {
		body += ": " + topic
	}
	if reason := p.str("error"); reason != "" {
		body += "\n" + reason
	}
	return message{title: label, body: body, tags: []string{tag}, priority: "high"}
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	muted    map[Event]bool
}

// Publish sends event unless it is muted or unknown.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	format, ok := formatters[event]
	if !ok || n.muted[event] {
		return nil
	}
	return n.send(ctx, format(payload))
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", "scenecast - "+msg.title)
	req.Header.Set("Tags", strings.Join(append([]string{"scenecast"}, msg.tags...), ","))
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
