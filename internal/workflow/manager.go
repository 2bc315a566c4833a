package workflow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"scenecast/internal/config"
	"scenecast/internal/logging"
	"scenecast/internal/notifications"
	"scenecast/internal/preflight"
	"scenecast/internal/queue"
)

// PreflightFunc runs readiness checks before an item is processed.
type PreflightFunc func(ctx context.Context, cfg *config.Config) []preflight.Result

// Manager coordinates queue processing using registered stage functions.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	notifier     notifications.Service
	preflight    PreflightFunc

	beats   *heartbeats
	jobLogs *JobLogger

	pipeline *pipeline

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	last    atomic.Pointer[activity]
	busy    busyPeriod
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier overrides the ntfy notifier built from config.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithPreflight overrides the readiness checks run before each item.
func WithPreflight(fn PreflightFunc) ManagerOption {
	return func(m *Manager) {
		m.preflight = fn
	}
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	pollInterval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	m := &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow-manager"),
		notifier:     notifications.NewService(cfg),
		preflight:    preflight.RunAll,
		pollInterval: pollInterval,
		beats: newHeartbeats(store, logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		jobLogs: NewJobLogger(cfg),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
