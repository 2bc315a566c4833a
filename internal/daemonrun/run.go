package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"scenecast/internal/config"
	"scenecast/internal/daemon"
	"scenecast/internal/logging"
	"scenecast/internal/notifications"
	"scenecast/internal/preflight"
	"scenecast/internal/queue"
	"scenecast/internal/workflow"
)

// PIDFileName is written to paths.log_dir while the daemon runs.
const PIDFileName = "scenecast.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel    string
	Development bool
}

// Run starts the scenecast daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := NewLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logDependencySnapshot(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	manager := workflow.NewManager(cfg, store, logger, workflow.WithNotifier(notifications.NewService(cfg)))
	manager.ConfigureStages(BuildStages(cfg, store, logger))

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running daemon and the api_bind address"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("scenecast daemon shutting down")
	return nil
}

// NewLogger builds the process logger: stdout plus <log_dir>/scenecast.log.
func NewLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg, opts.LogLevel, opts.Development)
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("llm_provider", cfg.LLM.Provider),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.Bool("pexels_key_present", strings.TrimSpace(cfg.Pexels.APIKey) != ""),
		logging.String("image_backend", cfg.ImageGen.Backend),
		logging.String("clip_source", cfg.Clips.Source),
		logging.Bool("whisperx_cuda", cfg.WhisperX.CUDAEnabled),
	}
	for _, dep := range preflight.CheckSystemDeps(ctx, cfg) {
		attrs = append(attrs, logging.Bool(strings.ReplaceAll(strings.ToLower(dep.Name), " ", "_")+"_available", dep.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
