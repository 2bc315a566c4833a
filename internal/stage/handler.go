package stage

import (
	"context"
	"log/slog"

	"scenecast/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}

// LoggerAware handlers receive a logger scoped to the item being processed.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
