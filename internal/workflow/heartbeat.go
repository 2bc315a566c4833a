package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scenecast/internal/logging"
	"scenecast/internal/queue"
	"scenecast/internal/stage"
)

// heartbeats stamps in-flight items and reclaims the ones whose stamp
// expired, e.g. after the daemon was killed mid-stage.
type heartbeats struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

func newHeartbeats(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *heartbeats {
	return &heartbeats{
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow-heartbeat"),
		interval: interval,
		timeout:  timeout,
	}
}

// reclaim rolls back items in statuses whose last heartbeat is older than
// the timeout. A zero timeout disables it.
func (h *heartbeats) reclaim(ctx context.Context, statuses []queue.Status) error {
	if h.timeout <= 0 || len(statuses) == 0 {
		return nil
	}
	n, err := h.store.ReclaimStaleProcessing(ctx, time.Now().Add(-h.timeout), statuses...)
	if err != nil {
		return err
	}
	if n > 0 {
		h.logger.Info("reclaimed stale items",
			logging.Int64("count", n),
			logging.String(logging.FieldEventType, "heartbeat_reclaimed"),
		)
	}
	return nil
}

// beat stamps itemID every interval until ctx ends, then closes done.
func (h *heartbeats) beat(ctx context.Context, itemID int64, done chan<- struct{}) {
	defer close(done)
	if h.interval <= 0 {
		return
	}
	logger := logging.WithContext(ctx, h.logger)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := h.store.UpdateHeartbeat(ctx, itemID)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			logger.Debug("heartbeat update cancelled")
		default:
			logger.Warn("heartbeat update failed", logging.Error(err))
		}
	}
}

// heartbeatHandler keeps the item's heartbeat fresh while Execute runs.
type heartbeatHandler struct {
	stage.Handler
	beats *heartbeats
}

func (h heartbeatHandler) Execute(ctx context.Context, item *queue.Item) error {
	beatCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go h.beats.beat(beatCtx, item.ID, done)
	defer func() {
		stop()
		<-done
	}()
	return h.Handler.Execute(ctx, item)
}

// SetLogger forwards to the wrapped handler so stageexec can scope it.
func (h heartbeatHandler) SetLogger(logger *slog.Logger) {
	if aware, ok := h.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(logger)
	}
}
