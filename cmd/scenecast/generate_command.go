package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"scenecast/internal/api"
	"scenecast/internal/config"
	"scenecast/internal/daemon"
	"scenecast/internal/daemonrun"
	"scenecast/internal/logging"
	"scenecast/internal/notifications"
	"scenecast/internal/queue"
	"scenecast/internal/workflow"
)

// stageBuilder is swapped in tests to avoid external tools.
var stageBuilder = daemonrun.BuildStages

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var flags jobFlags
	var verbose bool

	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "Render one video in the foreground",
		Long: "Render one video in the foreground. When a daemon is running the job is\n" +
			"queued for it instead so the two never work on the same item.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				lock := flock.New(filepath.Join(cfg.Paths.LogDir, daemon.LockFileName))
				locked, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("check daemon lock: %w", err)
				}

				svc := api.NewQueueService(store)
				submitted, err := svc.Submit(runCtx, flags.request(strings.Join(args, " ")))
				if err != nil {
					if locked {
						_ = lock.Unlock()
					}
					return err
				}
				if !locked {
					fmt.Fprintf(out, "Daemon is running; queued job %d. Follow it with `scenecast queue show %d`.\n", submitted.ID, submitted.ID)
					return nil
				}
				defer lock.Unlock()

				logger, err := cliLogger(cfg, cmd, verbose)
				if err != nil {
					return err
				}
				manager := workflow.NewManager(cfg, store, logger, workflow.WithNotifier(notifications.NewService(cfg)))
				manager.ConfigureStages(stageBuilder(cfg, store, logger))

				item, err := store.GetByID(runCtx, submitted.ID)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("job %d disappeared", submitted.ID)
				}
				fmt.Fprintf(out, "Generating job %d: %s\n", item.ID, item.Topic)
				if err := manager.RunItem(runCtx, item); err != nil {
					if errors.Is(runCtx.Err(), context.Canceled) {
						return runCtx.Err()
					}
					return fmt.Errorf("job %d %s: %w (retry with `scenecast queue retry %d`)", item.ID, item.Status, err, item.ID)
				}
				fmt.Fprintf(out, "Video ready: %s\n", item.OutputFile)
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	return cmd
}

// cliLogger writes to stderr and the shared log file so foreground runs end
// up next to daemon logs.
func cliLogger(cfg *config.Config, cmd *cobra.Command, verbose bool) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	stderr := cmd.ErrOrStderr()
	file, err := logging.New(logging.Options{
		Level:       level,
		Format:      "json",
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
	})
	if err != nil {
		return nil, err
	}
	console, err := logging.New(logging.Options{Level: level, Format: "console", Writer: stderr})
	if err != nil {
		return nil, err
	}
	return slog.New(logging.Fanout(console.Handler(), file.Handler())), nil
}
