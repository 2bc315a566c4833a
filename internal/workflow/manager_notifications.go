package workflow

import (
	"context"
	"errors"
	"time"

	"scenecast/internal/logging"
	"scenecast/internal/notifications"
	"scenecast/internal/queue"
)

// busyPeriod spans from the first item picked up after an idle queue to the
// moment nothing is left to process.
type busyPeriod struct {
	active bool
	since  time.Time
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	err := m.notifier.Publish(ctx, event, payload)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		m.logger.Debug("daemon shutting down, notification skipped", logging.String("event", string(event)))
	default:
		m.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

// queueStats reads counts for a notification; failures are logged and skip
// the notification.
func (m *Manager) queueStats(ctx context.Context, purpose string) (map[queue.Status]int, bool) {
	stats, err := m.store.Stats(ctx)
	if err == nil {
		return stats, true
	}
	if !errors.Is(err, context.Canceled) {
		m.logger.Warn("queue stats unavailable; "+purpose+" notification skipped",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_stats_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, purpose+" notification will not be sent"),
		)
	}
	return nil, false
}

// onItemStarted announces the queue once per busy period.
func (m *Manager) onItemStarted(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	m.mu.Lock()
	started := !m.busy.active
	if started {
		m.busy = busyPeriod{active: true, since: time.Now()}
	}
	m.mu.Unlock()
	if !started {
		return
	}
	if stats, ok := m.queueStats(ctx, "start"); ok {
		m.publish(ctx, notifications.EventQueueStarted, notifications.Payload{"count": pendingWork(stats)})
	}
}

// checkQueueCompletion ends the busy period and publishes its summary once
// no item is left for a stage.
func (m *Manager) checkQueueCompletion(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, ok := m.queueStats(ctx, "completion")
	if !ok || pendingWork(stats) > 0 {
		return
	}
	m.mu.Lock()
	period := m.busy
	m.busy = busyPeriod{}
	m.mu.Unlock()
	if !period.active {
		return
	}
	m.publish(ctx, notifications.EventQueueCompleted, notifications.Payload{
		"processed": stats[queue.StatusCompleted],
		"failed":    stats[queue.StatusFailed] + stats[queue.StatusReview],
		"duration":  time.Since(period.since),
	})
}

// pendingWork counts items a stage will still pick up.
func pendingWork(stats map[queue.Status]int) int {
	n := 0
	for status, count := range stats {
		if !status.IsTerminal() {
			n += count
		}
	}
	return n
}
