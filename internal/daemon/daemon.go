package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scenecast/internal/config"
	"scenecast/internal/deps"
	"scenecast/internal/logging"
	"scenecast/internal/preflight"
	"scenecast/internal/queue"
	"scenecast/internal/workflow"
)

// LockFileName is created in paths.log_dir while a daemon runs.
const LockFileName = "scenecast.lock"

// shutdownGrace bounds the store writes made while stopping.
const shutdownGrace = 5 * time.Second

var (
	errAlreadyRunning = errors.New("daemon already running")
	errLockHeld       = errors.New("another scenecast daemon instance is already running")
)

// Daemon owns the single-instance lock and runs the workflow manager and
// the HTTP API for as long as it holds it.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	lock     *flock.Flock
	api      *apiServer

	mu      sync.Mutex // serializes Start and Stop
	cancel  context.CancelFunc
	running atomic.Bool
}

// Status is the snapshot returned by Daemon.Status.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	Dependencies []deps.Status
}

// New wires a daemon around an opened store and a configured manager.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lock:     flock.New(filepath.Join(cfg.Paths.LogDir, LockFileName)),
	}
	d.api = newAPIServer(cfg.Paths.APIBind, d, d.logger)
	return d, nil
}

// Start takes the lock, requeues work a crashed predecessor left mid-stage
// and brings up the workflow loop and API server. A failure part way
// through undoes whatever had already started.
func (d *Daemon) Start(ctx context.Context) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return errAlreadyRunning
	}
	if err := d.acquire(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	undo := []func(){d.release, cancel}
	defer func() {
		if err != nil {
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
		}
	}()

	d.requeueInterrupted(runCtx)
	if err := d.workflow.Start(runCtx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	undo = append(undo, d.workflow.Stop)
	if err := d.api.start(runCtx); err != nil {
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("scenecast daemon started", logging.String("lock", d.lock.Path()))
	return nil
}

// Stop halts processing, fails whatever was mid-stage and releases the
// lock. Stopping a daemon that is not running does nothing.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel == nil {
		return
	}
	d.running.Store(false)
	d.cancel()
	d.cancel = nil
	d.workflow.Stop()
	d.api.stop()
	d.failInFlight()
	d.release()
	d.logger.Info("scenecast daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// APIAddress returns the bound API address, or "" when the API is off.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status reports the daemon, workflow and dependency state.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lock.Path(),
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
}

func (d *Daemon) acquire() error {
	if err := os.MkdirAll(filepath.Dir(d.lock.Path()), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	switch {
	case err != nil:
		return fmt.Errorf("acquire lock: %w", err)
	case !ok:
		return errLockHeld
	}
	return nil
}

func (d *Daemon) release() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// requeueInterrupted is best effort: a queue that cannot be reset still
// gets served, and the stale sweep catches the items later.
func (d *Daemon) requeueInterrupted(ctx context.Context) {
	n, err := d.store.ResetStuckProcessing(ctx)
	switch {
	case err != nil:
		logging.WarnWithContext(d.logger, "reset stuck items failed", "reset_stuck_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	case n > 0:
		d.logger.Info("requeued interrupted items", logging.Int64("count", n))
	}
}

func (d *Daemon) failInFlight() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	n, err := d.store.FailActive(ctx, queue.DaemonStopReason)
	switch {
	case err != nil:
		logging.WarnWithContext(d.logger, "failed to mark in-flight items", "fail_active_failed", logging.Error(err))
	case n > 0:
		d.logger.Info("in-flight items marked failed", logging.Int64("count", n))
	}
}
