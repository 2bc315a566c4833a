package clips

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"scenecast/internal/logging"
	"scenecast/internal/services"
)

// ImageGenerator renders one image for a text prompt and returns the encoded
// bytes (PNG or JPEG).
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, size Resolution) ([]byte, error)
}

// FrameEncoder turns still frames into a video clip.
type FrameEncoder interface {
	EncodeFrames(ctx context.Context, clip FrameClip) error
}

// FrameClip describes a clip assembled from generated frames. Each frame is
// held for Duration/len(Frames) seconds at FrameRate.
type FrameClip struct {
	Frames    [][]byte
	Size      Resolution
	FrameRate int
	Duration  float64
	Output    string
}

var errEmptyImage = errors.New("generator returned no image data")

// Synthesizer builds a clip from generated images when no stock clip fits.
// It never touches the UsedMediaSet.
type Synthesizer struct {
	generator ImageGenerator
	encoder   FrameEncoder
	outputDir string
	opts      Options
	retry     services.Backoff
	logger    *slog.Logger
}

func NewSynthesizer(generator ImageGenerator, encoder FrameEncoder, outputDir string, opts Options, logger *slog.Logger) *Synthesizer {
	opts = opts.withDefaults()
	return &Synthesizer{
		generator: generator,
		encoder:   encoder,
		outputDir: outputDir,
		opts:      opts,
		retry:     newRetrier(opts),
		logger:    logging.NewComponentLogger(logger, "fallback-synthesizer"),
	}
}

// Synthesize generates one frame per term and encodes them into a clip at
// the orientation's resolution. The boolean is false when no frame could be
// generated or the clip could not be encoded. Errors are returned only when
// ctx is done.
func (s *Synthesizer) Synthesize(ctx context.Context, w QueryWindow, orientation Orientation) (MediaRef, bool, error) {
	logger := logging.WithContext(ctx, s.logger)
	size := s.opts.Target(orientation)

	frames := make([][]byte, 0, len(w.Terms))
	for _, term := range w.Terms {
		var image []byte
		_, err := s.retry.Do(ctx, func(ctx context.Context) error {
			data, genErr := s.generator.GenerateImage(ctx, term, size)
			if genErr != nil {
				return genErr
			}
			if len(data) == 0 {
				return errEmptyImage
			}
			image = data
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return MediaRef{}, false, windowError(w, ctx.Err())
			}
			logging.WarnWithContext(logger, "image generation failed; skipping term", "frame_generation_failed",
				logging.String("term", term),
				logging.String("window", w.String()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "clip built from fewer frames"),
				logging.String(logging.FieldErrorHint, "check the image generation backend"),
			)
			continue
		}
		frames = append(frames, image)
	}

	if len(frames) == 0 {
		return MediaRef{}, false, nil
	}
	if len(frames) < len(w.Terms) {
		partial := &PartialFrameError{Start: w.Start, End: w.End, Requested: len(w.Terms), Produced: len(frames)}
		logging.WarnWithContext(logger, "generated clip is missing frames", "partial_frames",
			logging.Error(partial),
			logging.String(logging.FieldImpact, "clip assembled from available frames"),
		)
	}

	output := filepath.Join(s.outputDir, fmt.Sprintf("window_%.2f_%.2f.mp4", w.Start, w.End))
	err := s.encoder.EncodeFrames(ctx, FrameClip{
		Frames:    frames,
		Size:      size,
		FrameRate: s.opts.FrameRate,
		Duration:  w.Duration(),
		Output:    output,
	})
	if err != nil {
		if ctx.Err() != nil {
			return MediaRef{}, false, windowError(w, ctx.Err())
		}
		logging.WarnWithContext(logger, "frame encoding failed", "frame_encoding_failed",
			logging.String("window", w.String()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "window left for gap repair"),
			logging.String(logging.FieldErrorHint, "check ffmpeg output in the log"),
		)
		return MediaRef{}, false, nil
	}

	logger.Info("generated clip assembled", logging.Args(append(
		logging.DecisionAttrs("clip_selection", "generated", "no unused stock clip"),
		logging.String("window", w.String()),
		logging.Int("frames", len(frames)),
		logging.String("path", output),
	)...)...)
	return MediaRef{URI: output, Source: SourceGenerated}, true, nil
}
