package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"scenecast/internal/clips"
	"scenecast/internal/config"
	"scenecast/internal/footage"
	"scenecast/internal/logging"
	"scenecast/internal/queue"
	"scenecast/internal/services"
	"scenecast/internal/stage"
	"scenecast/internal/textutil"
)

// Renderer composes a timeline into a video.
type Renderer interface {
	Compose(ctx context.Context, req Request) (Result, error)
}

// Handler is the render workflow stage.
type Handler struct {
	cfg      *config.Config
	renderer Renderer
	logger   *slog.Logger
}

func NewHandler(cfg *config.Config, renderer Renderer, logger *slog.Logger) *Handler {
	h := &Handler{cfg: cfg, renderer: renderer}
	h.SetLogger(logger)
	return h
}

func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "render")
	if aware, ok := h.renderer.(stage.LoggerAware); ok {
		aware.SetLogger(logger)
	}
}

// Prepare checks the timeline and narration are present.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.TimelineJSON) == "" {
		return services.Wrap(services.ErrValidation, "render", "prepare", "timeline missing; rerun footage", nil)
	}
	if strings.TrimSpace(item.AudioFile) == "" {
		return services.Wrap(services.ErrValidation, "render", "prepare", "narration audio missing; rerun narration", nil)
	}
	item.InitProgress("Render", "Composing video")
	return nil
}

// Execute renders the item's timeline to the output directory.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	timeline, err := stage.DecodeArtifact[[]clips.TimelineEntry](item.TimelineJSON, "timeline", "footage")
	if err != nil {
		return err
	}
	orientation, err := clips.ParseOrientation(item.Orientation)
	if err != nil || strings.TrimSpace(item.Orientation) == "" {
		orientation, err = clips.ParseOrientation(h.cfg.Clips.Orientation)
		if err != nil {
			return services.Wrap(services.ErrValidation, "render", "execute", "invalid orientation", err)
		}
	}

	req := Request{
		Timeline:  timeline,
		AudioFile: item.AudioFile,
		Size:      footage.OptionsFromConfig(h.cfg).Target(orientation),
		WorkDir:   h.cfg.ItemWorkDir(item.ID),
		Output:    filepath.Join(h.cfg.Paths.OutputDir, OutputName(item)),
	}
	if h.cfg.Render.BurnCaptions {
		req.CaptionsFile = strings.TrimSpace(item.CaptionsFile)
	}

	renderCtx := ctx
	if secs := h.cfg.Render.TimeoutSeconds; secs > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}
	started := time.Now()
	result, err := h.renderer.Compose(renderCtx, req)
	if err != nil {
		if ctx.Err() == nil && errors.Is(renderCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "render", "compose", "render timed out", err)
		}
		return err
	}

	item.OutputFile = result.Output
	item.SetProgressComplete("Render", fmt.Sprintf("%.1fs video written", result.Duration))
	h.logger.Info("render stage finished",
		logging.String("output", result.Output),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// HealthCheck reports whether a renderer is wired.
func (h *Handler) HealthCheck(context.Context) stage.Health {
	if h.renderer == nil {
		return stage.Unhealthy("render", "renderer not configured")
	}
	return stage.Healthy("render")
}

// OutputName is the published file name for item.
func OutputName(item *queue.Item) string {
	return textutil.Slug(item.Topic) + ".mp4"
}
