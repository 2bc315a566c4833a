package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scenecast/internal/captions"
	"scenecast/internal/clips"
	"scenecast/internal/config"
	"scenecast/internal/logging"
	"scenecast/internal/media/ffprobe"
	"scenecast/internal/queue"
	"scenecast/internal/services"
	"scenecast/internal/services/whisperx"
	"scenecast/internal/stage"
)

const (
	audioFileName    = "narration.mp3"
	alignFileName    = "narration.wav"
	captionsFileName = "captions.srt"
	alignDirName     = "whisperx"
)

// Speaker turns text into an audio file.
type Speaker interface {
	Synthesize(ctx context.Context, text, voice, dest string) error
}

// Aligner recovers word timings from narration audio.
type Aligner interface {
	PrepareAudio(ctx context.Context, source, dest string) error
	Align(ctx context.Context, source, outputDir string) ([]whisperx.Word, error)
}

// Handler is the narration workflow stage.
type Handler struct {
	cfg     *config.Config
	speaker Speaker
	aligner Aligner
	probe   ffprobe.Runner
	logger  *slog.Logger
}

// NewHandler builds the stage. A nil probe runs ffprobe.
func NewHandler(cfg *config.Config, speaker Speaker, aligner Aligner, probe ffprobe.Runner, logger *slog.Logger) *Handler {
	if probe == nil {
		probe = ffprobe.ExecRunner
	}
	h := &Handler{cfg: cfg, speaker: speaker, aligner: aligner, probe: probe}
	h.SetLogger(logger)
	return h
}

// SetLogger scopes the stage logger to the item being processed.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "narration")
}

// Prepare checks the script is present.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.ScriptText) == "" {
		return services.Wrap(services.ErrValidation, "narration", "prepare", "item has no script; retry from scripting", nil)
	}
	item.InitProgress("Narration", "Synthesizing speech")
	return nil
}

// Execute produces the audio, captions and duration for the item.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	workDir := h.cfg.ItemWorkDir(item.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "narration", "execute", "create work directory", err)
	}
	audioPath := filepath.Join(workDir, audioFileName)

	voice := strings.TrimSpace(item.Voice)
	if voice == "" {
		voice = h.cfg.TTS.Voice
	}
	started := time.Now()
	ttsCtx, cancel := withTimeout(ctx, h.cfg.TTS.TimeoutSeconds)
	err := h.speaker.Synthesize(ttsCtx, item.ScriptText, voice, audioPath)
	cancel()
	if err != nil {
		return classify(ctx, ttsCtx, "synthesize speech", err)
	}
	h.logger.Info("narration synthesized",
		logging.String("voice", voice),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "tts_complete"),
	)
	item.SetProgress("Narration", "Aligning captions", 40)

	segments, err := h.align(ctx, audioPath, workDir)
	if err != nil {
		return err
	}
	item.SetProgress("Narration", "Measuring audio", 85)

	duration := h.duration(ctx, audioPath, segments)
	if duration <= 0 {
		return services.Wrap(services.ErrValidation, "narration", "measure audio", "narration has no duration", nil)
	}

	srtPath := filepath.Join(workDir, captionsFileName)
	if err := writeSRT(srtPath, segments); err != nil {
		return services.Wrap(services.ErrExternalTool, "narration", "write captions", "write srt", err)
	}
	encoded, err := stage.EncodeArtifact(segments, "captions")
	if err != nil {
		return err
	}

	item.AudioFile = audioPath
	item.CaptionsJSON = encoded
	item.CaptionsFile = srtPath
	item.DurationSeconds = duration
	item.SetProgressComplete("Narration", fmt.Sprintf("%d captions, %.1fs of audio", len(segments), duration))
	h.logger.Info("captions aligned",
		logging.Int("captions", len(segments)),
		logging.Float64("duration_seconds", duration),
		logging.String(logging.FieldEventType, "captions_ready"),
	)
	return nil
}

func (h *Handler) align(ctx context.Context, audioPath, workDir string) ([]clips.CaptionSegment, error) {
	alignCtx, cancel := withTimeout(ctx, h.cfg.WhisperX.TimeoutSeconds)
	defer cancel()

	wavPath := filepath.Join(workDir, alignFileName)
	if err := h.aligner.PrepareAudio(alignCtx, audioPath, wavPath); err != nil {
		return nil, classify(ctx, alignCtx, "prepare audio", err)
	}
	words, err := h.aligner.Align(alignCtx, wavPath, filepath.Join(workDir, alignDirName))
	if err != nil {
		return nil, classify(ctx, alignCtx, "align words", err)
	}

	timed := make([]captions.Word, 0, len(words))
	for _, w := range words {
		if w.Start == nil || w.End == nil {
			continue
		}
		timed = append(timed, captions.Word{Text: w.Word, Start: *w.Start, End: *w.End})
	}
	segments := captions.FromWords(timed, h.cfg.WhisperX.MaxCaptionChars)
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, "narration", "align words", "no captions could be built from the narration", nil)
	}
	return segments, nil
}

// duration prefers the container duration and never reports less than the
// last caption end, so the timeline always covers every caption.
func (h *Handler) duration(ctx context.Context, audioPath string, segments []clips.CaptionSegment) float64 {
	captionEnd := clips.TotalDuration(segments)
	result, err := ffprobe.InspectWith(ctx, h.probe, h.cfg.FFprobeBinary(), audioPath)
	if err != nil {
		logging.WarnWithContext(h.logger, "ffprobe failed; using caption timing as duration", "probe_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "video may end slightly before the audio"),
		)
		return captionEnd
	}
	if probed := result.DurationSeconds(); probed > captionEnd {
		return probed
	}
	return captionEnd
}

// HealthCheck reports whether the stage's collaborators are wired.
func (h *Handler) HealthCheck(context.Context) stage.Health {
	switch {
	case h.speaker == nil:
		return stage.Unhealthy("narration", "tts not configured")
	case h.aligner == nil:
		return stage.Unhealthy("narration", "whisperx not configured")
	default:
		return stage.Healthy("narration")
	}
}

func writeSRT(path string, segments []clips.CaptionSegment) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return captions.WriteSRT(f, segments)
}

func withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

// classify separates our own timeout from the caller's cancellation.
func classify(parent, scoped context.Context, op string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(scoped.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "narration", op, "timed out", err)
	}
	return services.Wrap(services.ErrExternalTool, "narration", op, "command failed", err)
}
