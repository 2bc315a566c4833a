package footage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"scenecast/internal/clips"
	"scenecast/internal/config"
	"scenecast/internal/logging"
	"scenecast/internal/queue"
	"scenecast/internal/services"
	"scenecast/internal/stage"
)

const clipsDirName = "clips"

// Handler is the footage workflow stage.
type Handler struct {
	cfg       *config.Config
	extractor clips.WindowExtractor
	searcher  clips.FootageSearcher
	generator clips.ImageGenerator
	encoder   clips.FrameEncoder
	logger    *slog.Logger
}

// NewHandler builds the stage. searcher may be nil when every item uses
// generated footage.
func NewHandler(cfg *config.Config, extractor clips.WindowExtractor, searcher clips.FootageSearcher, generator clips.ImageGenerator, encoder clips.FrameEncoder, logger *slog.Logger) *Handler {
	h := &Handler{
		cfg:       cfg,
		extractor: extractor,
		searcher:  searcher,
		generator: generator,
		encoder:   encoder,
	}
	h.SetLogger(logger)
	return h
}

func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "footage")
}

// Prepare checks the narration artifacts the engine needs.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.CaptionsJSON) == "" || strings.TrimSpace(item.AudioFile) == "" || item.DurationSeconds <= 0 {
		return services.Wrap(services.ErrValidation, "footage", "prepare", "narration artifacts missing; rerun narration", nil)
	}
	item.InitProgress("Footage", "Choosing search windows")
	return nil
}

// Execute builds the query windows (reusing stored ones) and assembles the
// clip timeline.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	captions, err := stage.DecodeArtifact[[]clips.CaptionSegment](item.CaptionsJSON, "captions", "narration")
	if err != nil {
		return err
	}
	orientation, err := clips.ParseOrientation(firstNonEmpty(item.Orientation, h.cfg.Clips.Orientation))
	if err != nil {
		return services.Wrap(services.ErrValidation, "footage", "execute", "invalid orientation", err)
	}
	source := strings.ToLower(firstNonEmpty(item.ClipSource, h.cfg.Clips.Source))
	opts := OptionsFromConfig(h.cfg)

	windows, err := h.windows(ctx, item, captions, opts)
	if err != nil {
		return err
	}
	item.SetProgress("Footage", fmt.Sprintf("Finding footage for %d windows", len(windows)), 30)

	assembler, err := h.assembler(item, source, opts)
	if err != nil {
		return err
	}
	timeline, err := assembler.Assemble(ctx, windows, item.DurationSeconds, orientation)
	if err != nil {
		return classifyEngineError(err)
	}
	encoded, err := stage.EncodeArtifact(timeline, "timeline")
	if err != nil {
		return err
	}
	item.TimelineJSON = encoded

	stock, generated := countSources(timeline)
	item.SetProgressComplete("Footage", fmt.Sprintf("%d clips (%d stock, %d generated)", len(timeline), stock, generated))
	h.logger.Info("timeline assembled",
		logging.Int("entries", len(timeline)),
		logging.Int("stock", stock),
		logging.Int("generated", generated),
		logging.String("orientation", string(orientation)),
		logging.String("clip_source", source),
		logging.String(logging.FieldEventType, "timeline_ready"),
	)
	return nil
}

func (h *Handler) windows(ctx context.Context, item *queue.Item, captions []clips.CaptionSegment, opts clips.Options) ([]clips.QueryWindow, error) {
	if strings.TrimSpace(item.WindowsJSON) != "" {
		stored, err := stage.DecodeArtifact[[]clips.QueryWindow](item.WindowsJSON, "query windows", "footage")
		if err == nil {
			if windows, normErr := clips.NormalizeWindows(stored, item.DurationSeconds, opts.MinWindowGap); normErr == nil {
				h.logger.Debug("reusing stored query windows", logging.Int("windows", len(windows)))
				return windows, nil
			}
		}
		logging.WarnWithContext(h.logger, "stored query windows unusable; extracting again", "windows_discarded",
			logging.String(logging.FieldImpact, "one extra llm request"),
		)
		item.WindowsJSON = ""
	}

	if h.extractor == nil {
		return nil, services.Wrap(services.ErrConfiguration, "footage", "extract windows", "window extractor not configured", nil)
	}
	builder := clips.NewBuilder(h.extractor, opts, h.logger)
	windows, err := builder.Build(ctx, item.ScriptText, captions, item.DurationSeconds)
	if err != nil {
		return nil, classifyEngineError(err)
	}
	encoded, err := stage.EncodeArtifact(windows, "query windows")
	if err != nil {
		return nil, err
	}
	item.WindowsJSON = encoded
	return windows, nil
}

func (h *Handler) assembler(item *queue.Item, source string, opts clips.Options) (*clips.Assembler, error) {
	var synth *clips.Synthesizer
	if h.generator != nil && h.encoder != nil {
		dir := filepath.Join(h.cfg.ItemWorkDir(item.ID), clipsDirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "footage", "execute", "create clips directory", err)
		}
		synth = clips.NewSynthesizer(h.generator, h.encoder, dir, opts, h.logger)
	}

	var resolver *clips.Resolver
	switch source {
	case config.ClipSourceGenerated:
		if synth == nil {
			return nil, services.Wrap(services.ErrConfiguration, "footage", "execute", "generated footage requested but image generation is not configured", nil)
		}
	default:
		if h.searcher == nil {
			return nil, services.Wrap(services.ErrConfiguration, "footage", "execute", "stock footage requested but no provider is configured", nil)
		}
		resolver = clips.NewResolver(h.searcher, opts, h.logger)
	}
	return clips.NewAssembler(resolver, synth, opts, h.logger), nil
}

// HealthCheck reports whether the collaborators for the configured source
// are wired.
func (h *Handler) HealthCheck(context.Context) stage.Health {
	switch {
	case h.extractor == nil:
		return stage.Unhealthy("footage", "llm not configured")
	case h.cfg.UsesStockFootage() && h.searcher == nil:
		return stage.Unhealthy("footage", "stock provider not configured")
	case !h.cfg.UsesStockFootage() && (h.generator == nil || h.encoder == nil):
		return stage.Unhealthy("footage", "image generation not configured")
	default:
		return stage.Healthy("footage")
	}
}

// classifyEngineError keeps typed engine errors and marks anything else as
// an external failure.
func classifyEngineError(err error) error {
	var malformed *clips.MalformedWindowError
	var noMedia *clips.NoUsableMediaError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &malformed), errors.As(err, &noMedia):
		return err
	case errors.Is(err, services.ErrExternalTool), errors.Is(err, services.ErrConfiguration), errors.Is(err, services.ErrValidation):
		return err
	default:
		return services.Wrap(services.ErrExternalTool, "footage", "assemble", "clip engine failed", err)
	}
}

func countSources(timeline []clips.TimelineEntry) (stock, generated int) {
	for _, entry := range timeline {
		if entry.Media == nil {
			continue
		}
		if entry.Media.Source == clips.SourceGenerated {
			generated++
		} else {
			stock++
		}
	}
	return stock, generated
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
