package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"scenecast/internal/clips"
	"scenecast/internal/config"
	"scenecast/internal/logging"
)

// FrameEncoder implements clips.FrameEncoder with ffmpeg's concat demuxer:
// every frame is shown for an equal share of the clip duration.
type FrameEncoder struct {
	ffmpeg string
	codec  string
	preset string
	run    CommandRunner
	logger *slog.Logger
}

func NewFrameEncoder(cfg *config.Config, logger *slog.Logger) *FrameEncoder {
	return &FrameEncoder{
		ffmpeg: cfg.FFmpegBinary(),
		codec:  cfg.Render.VideoCodec,
		preset: cfg.Render.Preset,
		run:    execRunner,
		logger: logging.NewComponentLogger(logger, "frame-encoder"),
	}
}

// WithCommandRunner replaces the ffmpeg runner, for tests.
func (e *FrameEncoder) WithCommandRunner(r CommandRunner) {
	if e != nil && r != nil {
		e.run = r
	}
}

// EncodeFrames writes the frames to a scratch directory next to the output
// and encodes them into clip.Output.
func (e *FrameEncoder) EncodeFrames(ctx context.Context, clip clips.FrameClip) error {
	switch {
	case len(clip.Frames) == 0:
		return errors.New("no frames to encode")
	case clip.Duration <= 0:
		return fmt.Errorf("invalid clip duration %.3f", clip.Duration)
	case strings.TrimSpace(clip.Output) == "":
		return errors.New("output path is required")
	}

	scratch, err := os.MkdirTemp(filepath.Dir(clip.Output), ".frames-")
	if err != nil {
		return fmt.Errorf("create frame dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	hold := clip.Duration / float64(len(clip.Frames))
	var list strings.Builder
	var last string
	for i, frame := range clip.Frames {
		path := filepath.Join(scratch, fmt.Sprintf("frame_%03d%s", i, imageExt(frame)))
		if err := os.WriteFile(path, frame, 0o644); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		list.WriteString(concatLine(path))
		list.WriteString("duration " + seconds(hold) + "\n")
		last = path
	}
	// The concat demuxer ignores the duration of the final entry unless the
	// file is listed again.
	list.WriteString(concatLine(last))

	listPath := filepath.Join(scratch, "frames.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write frame list: %w", err)
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-vf", fillFilter(clip.Size.Width, clip.Size.Height, clip.FrameRate),
		"-t", seconds(clip.Duration),
		"-an", "-c:v", e.codec,
	}
	if e.preset != "" {
		args = append(args, "-preset", e.preset)
	}
	args = append(args, "-r", fmt.Sprint(clip.FrameRate), clip.Output)

	e.logger.Debug("encoding generated frames",
		logging.Int("frames", len(clip.Frames)),
		logging.Float64("seconds", clip.Duration),
		logging.String("output", clip.Output),
	)
	if _, err := e.run(ctx, e.ffmpeg, args...); err != nil {
		_ = os.Remove(clip.Output)
		return fmt.Errorf("ffmpeg frame encode: %w", err)
	}
	if info, err := os.Stat(clip.Output); err != nil || info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced no clip at %s", clip.Output)
	}
	return nil
}

func imageExt(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
