package workflow

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"scenecast/internal/logging"
	"scenecast/internal/queue"
	"scenecast/internal/stage"
)

// StatusSummary is the workflow section of the daemon status.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastItem    *queue.Item
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// activity is the most recent item and error seen by the run loop. It is
// replaced wholesale, never edited in place.
type activity struct {
	item *queue.Item
	err  string
}

func (m *Manager) noteItem(item *queue.Item) {
	var snapshot *queue.Item
	if item != nil {
		cp := *item
		snapshot = &cp
	}
	m.swapActivity(func(a *activity) { a.item = snapshot })
}

func (m *Manager) noteError(err error) {
	if err == nil {
		return
	}
	m.swapActivity(func(a *activity) { a.err = err.Error() })
}

func (m *Manager) swapActivity(edit func(*activity)) {
	for {
		old := m.last.Load()
		next := activity{}
		if old != nil {
			next = *old
		}
		edit(&next)
		if m.last.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Status reports whether the loop runs, what it last touched, queue counts
// and each stage's health. Stage checks run concurrently.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running}
	var stages []pipelineStage
	if m.pipeline != nil {
		stages = append(stages, m.pipeline.stages...)
	}
	m.mu.RUnlock()

	if last := m.last.Load(); last != nil {
		summary.LastError = last.err
		if last.item != nil {
			cp := *last.item
			summary.LastItem = &cp
		}
	}

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats

	summary.StageHealth = make(map[string]stage.Health, len(stages))
	var mu sync.Mutex
	var g errgroup.Group
	for _, stg := range stages {
		g.Go(func() error {
			health := stg.handler.HealthCheck(ctx)
			mu.Lock()
			summary.StageHealth[stg.name] = health
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return summary
}
