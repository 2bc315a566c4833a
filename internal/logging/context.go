package logging

import (
	"context"
	"log/slog"

	"scenecast/internal/services"
)

// Keys shared by every component so log lines can be filtered per job.
const (
	FieldComponent     = "component"
	FieldItemID        = "item_id"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldImpact        = "impact"
)

// WithContext adds the job identity carried by ctx (item id, stage and
// request id) to logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var attrs []any
	if id, ok := services.ItemIDFromContext(ctx); ok {
		attrs = append(attrs, Int64(FieldItemID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldCorrelationID, rid))
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}
