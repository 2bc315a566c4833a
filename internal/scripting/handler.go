package scripting

import (
	"context"
	"log/slog"
	"strings"

	"scenecast/internal/logging"
	"scenecast/internal/queue"
	"scenecast/internal/services"
	"scenecast/internal/stage"
)

// ScriptWriter produces a script for a topic.
type ScriptWriter interface {
	Generate(ctx context.Context, topic string) (string, error)
}

// Handler is the scripting workflow stage.
type Handler struct {
	writer ScriptWriter
	store  *queue.Store
	logger *slog.Logger
}

// NewHandler builds the stage. store may be nil when progress does not need
// persisting mid-stage.
func NewHandler(writer ScriptWriter, store *queue.Store, logger *slog.Logger) *Handler {
	h := &Handler{writer: writer, store: store}
	h.SetLogger(logger)
	return h
}

// SetLogger scopes the stage logger to the item being processed.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "scripting")
}

// Prepare resets progress for a fresh script.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.Topic) == "" {
		return services.Wrap(services.ErrValidation, "scripting", "prepare", "item has no topic", nil)
	}
	item.InitProgress("Scripting", "Writing script")
	return nil
}

// Execute writes the script and stores it on the item.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	script, err := h.writer.Generate(ctx, item.Topic)
	if err != nil {
		return err
	}
	item.ScriptText = script
	item.SetProgressComplete("Scripting", "Script ready")
	h.logger.Info("script generated",
		logging.Int("words", len(strings.Fields(script))),
		logging.String(logging.FieldEventType, "script_generated"),
	)
	if h.store != nil {
		if err := h.store.UpdateProgress(ctx, item); err != nil {
			h.logger.Debug("progress update failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck reports whether a script writer is wired.
func (h *Handler) HealthCheck(context.Context) stage.Health {
	if h.writer == nil {
		return stage.Unhealthy("scripting", "llm client not configured")
	}
	return stage.Healthy("scripting")
}
