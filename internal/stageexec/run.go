package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scenecast/internal/logging"
	"scenecast/internal/notifications"
	"scenecast/internal/queue"
	"scenecast/internal/services"
	"scenecast/internal/stage"
	"scenecast/internal/textutil"
)

// Handler is the part of stage.Handler Run drives.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
}

// Options names the item, the stage and the statuses it moves between.
type Options struct {
	Logger     *slog.Logger
	Store      *queue.Store
	Notifier   notifications.Service
	Handler    Handler
	StageName  string
	Processing queue.Status
	Done       queue.Status
	Item       *queue.Item
}

// Run marks the item as processing, runs Prepare and Execute, and saves the
// done status or the classified failure. The handler's error comes back
// unchanged. When ctx is cancelled mid-stage the item keeps its processing
// status; the daemon fails or reclaims it.
func Run(ctx context.Context, opts Options) error {
	switch {
	case opts.Handler == nil:
		return fmt.Errorf("stage %s: no handler", opts.StageName)
	case opts.Store == nil:
		return errors.New("stage run: queue store is required")
	case opts.Item == nil:
		return errors.New("stage run: queue item is required")
	}

	ctx = services.WithItemID(ctx, opts.Item.ID)
	ctx = services.WithStage(ctx, opts.StageName)
	ctx = services.WithRequestID(ctx, opts.Item.RequestID)
	r := &run{Options: opts, logger: logging.WithContext(ctx, opts.Logger)}
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(r.logger)
	}
	return r.do(ctx)
}

type run struct {
	Options
	logger *slog.Logger
}

func (r *run) do(ctx context.Context) error {
	item := r.Item
	label := textutil.Title(string(r.Processing))
	now := time.Now().UTC()
	item.Status = r.Processing
	item.InitProgress(label, label+" started")
	item.LastHeartbeat = &now
	r.logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(r.Processing)),
		logging.String("topic", strings.TrimSpace(item.Topic)),
	)
	if err := r.Store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	if err := r.Handler.Prepare(ctx, item); err != nil {
		return r.fail(ctx, err)
	}
	if err := r.Store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	started := time.Now()
	if err := r.Handler.Execute(ctx, item); err != nil {
		return r.fail(ctx, err)
	}
	// A handler may pick the next status itself; otherwise the stage's done
	// status applies.
	if item.Status == r.Processing || item.Status == "" {
		item.Status = r.Done
	}
	item.LastHeartbeat = nil
	if err := r.Store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}
	r.logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(item.Status)),
		logging.Duration("elapsed", time.Since(started)),
		logging.String("progress_message", strings.TrimSpace(item.ProgressMessage)),
	)
	return nil
}

// fail records stageErr on the item and notifies, unless the stage was
// interrupted by shutdown.
func (r *run) fail(ctx context.Context, stageErr error) error {
	if ctx.Err() != nil && errors.Is(stageErr, context.Canceled) {
		r.logger.Debug("stage interrupted by shutdown")
		return stageErr
	}
	item := r.Item
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = "stage failed"
	}
	item.SetFailed(services.FailureStatus(stageErr), message)
	logging.ErrorWithContext(r.logger, "stage failed", "stage_failure",
		logging.String("resolved_status", string(item.Status)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)

	// Saved even when ctx was cancelled after the failure.
	ctx = context.WithoutCancel(ctx)
	if err := r.Store.Update(ctx, item); err != nil {
		r.logger.Error("failed to persist stage failure", logging.Error(err))
	}
	if r.Notifier == nil {
		return stageErr
	}
	event := notifications.EventJobFailed
	if item.Status == queue.StatusReview {
		event = notifications.EventJobReview
	}
	payload := notifications.Payload{"topic": item.Topic, "stage": r.StageName, "item_id": item.ID, "error": message}
	if err := r.Notifier.Publish(ctx, event, payload); err != nil {
		r.logger.Debug("stage failure notification failed", logging.Error(err))
	}
	return stageErr
}
