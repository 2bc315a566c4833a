package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scenecast/internal/logging"
	"scenecast/internal/queue"
)

var errNoStages = errors.New("workflow stages not configured")

// Start launches the processing loop in the background.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.running:
		return errors.New("workflow already running")
	case m.pipeline == nil || len(m.pipeline.stages) == 0:
		return errNoStages
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.loop(loopCtx, m.pipeline)
	return nil
}

// Stop cancels the loop and waits for the current item to settle.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.running, m.cancel = false, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
}

// Running reports whether the processing loop is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// loop reclaims stale items, then processes the oldest item any stage can
// take, idling for the poll interval when there is none or when preflight
// fails.
func (m *Manager) loop(ctx context.Context, p *pipeline) {
	defer m.wg.Done()
	for ctx.Err() == nil {
		if err := m.beats.reclaim(ctx, p.processingStatuses); err != nil && ctx.Err() == nil {
			m.logger.Warn("reclaim stale processing failed; stuck items may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}

		item, err := m.store.NextForStatuses(ctx, p.statusOrder...)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			m.noteError(err)
			m.logger.Error("failed to fetch next queue item",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			m.idle(ctx)
		case item == nil:
			m.idle(ctx)
		default:
			if err := m.processItem(ctx, p, item); errors.Is(err, errPreflightFailed) {
				m.idle(ctx)
			}
		}
	}
}

// idle waits one poll interval or until shutdown.
func (m *Manager) idle(ctx context.Context) {
	t := time.NewTimer(m.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// RunItem drives a single item through every remaining stage in the calling
// goroutine. The generate command uses it to render one video without a
// daemon.
func (m *Manager) RunItem(ctx context.Context, item *queue.Item) error {
	m.mu.RLock()
	p := m.pipeline
	m.mu.RUnlock()
	if p == nil || len(p.stages) == 0 {
		return errNoStages
	}
	for item.Status != queue.StatusCompleted {
		if _, ok := p.stageForStatus(item.Status); !ok {
			if item.Status.IsTerminal() {
				return errors.New(item.ErrorMessage)
			}
			return fmt.Errorf("no stage configured for status %s", item.Status)
		}
		if err := m.processItem(ctx, p, item); err != nil {
			return err
		}
	}
	return nil
}
