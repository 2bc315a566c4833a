package workflow

import (
	"context"
	"errors"

	"scenecast/internal/logging"
	"scenecast/internal/notifications"
	"scenecast/internal/queue"
	"scenecast/internal/services"
	"scenecast/internal/stageexec"
)

func (m *Manager) processItem(ctx context.Context, p *pipeline, item *queue.Item) error {
	stg, ok := p.stageForStatus(item.Status)
	if !ok {
		m.logger.Warn("no stage configured for status",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("status", string(item.Status)),
		)
		m.idle(ctx)
		return nil
	}

	itemCtx := services.WithRequestID(services.WithItemID(ctx, item.ID), item.RequestID)
	if err := m.runPreflightChecks(itemCtx, logging.WithContext(itemCtx, m.logger)); err != nil {
		m.noteError(err)
		return err
	}

	jobLogger, closer, err := m.jobLogs.Open(item, m.logger)
	if err != nil {
		m.logger.Warn("job log unavailable; logging to daemon log only",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_log_unavailable"),
			logging.String(logging.FieldImpact, "per-job log file will be missing"),
		)
	}
	defer closer.Close()

	m.onItemStarted(ctx)
	m.noteItem(item)

	runErr := stageexec.Run(ctx, stageexec.Options{
		Logger:     jobLogger,
		Store:      m.store,
		Notifier:   m.notifier,
		Handler:    heartbeatHandler{Handler: stg.handler, beats: m.beats},
		StageName:  stg.name,
		Processing: stg.processingStatus,
		Done:       stg.doneStatus,
		Item:       item,
	})
	m.noteItem(item)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
			return runErr
		}
		m.noteError(runErr)
		m.logger.Warn("job stopped",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldStage, stg.name),
			logging.String("resolved_status", string(item.Status)),
			logging.String(logging.FieldEventType, "job_stopped"),
			logging.String(logging.FieldErrorHint, "inspect the job log, then run `scenecast queue retry`"),
		)
		m.checkQueueCompletion(ctx)
		return runErr
	}

	if item.Status == queue.StatusCompleted {
		m.logger.Info("video ready",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("topic", item.Topic),
			logging.String("output", item.OutputFile),
			logging.String(logging.FieldEventType, "job_completed"),
		)
		m.publish(ctx, notifications.EventJobCompleted, notifications.Payload{
			"topic":   item.Topic,
			"output":  item.OutputFile,
			"item_id": item.ID,
		})
		m.checkQueueCompletion(ctx)
	}
	return nil
}
