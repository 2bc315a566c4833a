package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"scenecast/internal/clips"
	"scenecast/internal/config"
	"scenecast/internal/fileutil"
	"scenecast/internal/logging"
	"scenecast/internal/media/ffprobe"
	"scenecast/internal/services"
)

const (
	renderDirName = "render"
	mediaDirName  = "media"
	boundsEpsilon = 1e-3
	// durationTolerance is how far the probed output may drift from the
	// timeline before the render is rejected.
	durationTolerance = 0.5
)

// HTTPDoer is the subset of *http.Client used for stock downloads.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Request describes one composition.
type Request struct {
	Timeline     []clips.TimelineEntry
	AudioFile    string
	CaptionsFile string // burned in when set
	Size         clips.Resolution
	WorkDir      string
	Output       string
}

// Result reports what was written.
type Result struct {
	Output   string
	Duration float64
	Segments int
}

// Composer renders timelines with ffmpeg.
type Composer struct {
	cfg         *config.Config
	run         CommandRunner
	probe       ffprobe.Runner
	http        HTTPDoer
	frameRate   int
	concurrency int
	logger      *slog.Logger
}

// ComposerOption customizes a Composer.
type ComposerOption func(*Composer)

// WithCommandRunner replaces the ffmpeg runner.
func WithCommandRunner(r CommandRunner) ComposerOption {
	return func(c *Composer) {
		if r != nil {
			c.run = r
		}
	}
}

// WithProbeRunner replaces the ffprobe runner used to validate output.
func WithProbeRunner(r ffprobe.Runner) ComposerOption {
	return func(c *Composer) {
		if r != nil {
			c.probe = r
		}
	}
}

// WithHTTPClient replaces the client used to download stock clips.
func WithHTTPClient(client HTTPDoer) ComposerOption {
	return func(c *Composer) {
		if client != nil {
			c.http = client
		}
	}
}

func NewComposer(cfg *config.Config, logger *slog.Logger, opts ...ComposerOption) *Composer {
	c := &Composer{
		cfg:         cfg,
		run:         execRunner,
		probe:       ffprobe.ExecRunner,
		http:        &http.Client{Timeout: 5 * time.Minute},
		frameRate:   cfg.Clips.FrameRate,
		concurrency: cfg.Clips.Concurrency,
	}
	if c.frameRate <= 0 {
		c.frameRate = clips.DefaultOptions().FrameRate
	}
	if c.concurrency <= 0 {
		c.concurrency = 1
	}
	for _, opt := range opts {
		opt(c)
	}
	c.SetLogger(logger)
	return c
}

func (c *Composer) SetLogger(logger *slog.Logger) {
	c.logger = logging.NewComponentLogger(logger, "composer")
}

// Compose renders req.Timeline over the narration and publishes the video
// at req.Output.
func (c *Composer) Compose(ctx context.Context, req Request) (Result, error) {
	logger := logging.WithContext(ctx, c.logger)
	if err := checkTimeline(req.Timeline); err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "render", "check timeline", "timeline unusable; rerun footage", err)
	}
	if strings.TrimSpace(req.AudioFile) == "" || strings.TrimSpace(req.Output) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "render", "compose", "audio file and output path are required", nil)
	}
	renderDir := filepath.Join(req.WorkDir, renderDirName)
	if err := os.MkdirAll(filepath.Join(req.WorkDir, mediaDirName), 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "render", "compose", "create media directory", err)
	}
	if err := os.MkdirAll(renderDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "render", "compose", "create render directory", err)
	}

	sources, err := c.fetchSources(ctx, req)
	if err != nil {
		return Result{}, err
	}
	segments, err := c.renderSegments(ctx, req, sources, renderDir)
	if err != nil {
		return Result{}, err
	}

	total := req.Timeline[len(req.Timeline)-1].End
	final := filepath.Join(renderDir, "final.mp4")
	if err := c.mux(ctx, req, segments, renderDir, final, total); err != nil {
		return Result{}, err
	}
	probed, err := c.validate(ctx, final, total)
	if err != nil {
		return Result{}, err
	}
	if err := fileutil.Publish(final, req.Output); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "render", "publish", "copy video to output directory", err)
	}

	logger.Info("video rendered",
		logging.String("output", req.Output),
		logging.Int("segments", len(segments)),
		logging.Float64("duration_seconds", probed),
		logging.Bool("captions_burned", req.CaptionsFile != ""),
		logging.String(logging.FieldEventType, "render_complete"),
	)
	return Result{Output: req.Output, Duration: probed, Segments: len(segments)}, nil
}

// checkTimeline enforces the assembler's contract: ordered, contiguous from
// zero, every entry resolved.
func checkTimeline(timeline []clips.TimelineEntry) error {
	if len(timeline) == 0 {
		return errors.New("timeline is empty")
	}
	if math.Abs(timeline[0].Start) > boundsEpsilon {
		return fmt.Errorf("timeline starts at %.3f", timeline[0].Start)
	}
	for i, entry := range timeline {
		if !entry.Resolved() {
			return fmt.Errorf("entry %d has no media", i)
		}
		if entry.End-entry.Start <= 0 {
			return fmt.Errorf("entry %d has no length", i)
		}
		if i > 0 && math.Abs(entry.Start-timeline[i-1].End) > boundsEpsilon {
			return fmt.Errorf("gap before entry %d", i)
		}
	}
	return nil
}

// fetchSources resolves every entry to a local file, downloading stock clips
// once each.
func (c *Composer) fetchSources(ctx context.Context, req Request) ([]string, error) {
	sources := make([]string, len(req.Timeline))
	downloads := map[string]string{}
	for i, entry := range req.Timeline {
		uri := entry.Media.URI
		if !isRemote(uri) {
			if _, err := os.Stat(uri); err != nil {
				return nil, services.Wrap(services.ErrValidation, "render", "fetch media", "generated clip missing; rerun footage", err)
			}
			sources[i] = uri
			continue
		}
		dest := filepath.Join(req.WorkDir, mediaDirName, mediaFileName(uri))
		sources[i] = dest
		downloads[dest] = uri
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for dest, uri := range downloads {
		g.Go(func() error {
			return c.download(gctx, uri, dest)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

func isRemote(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

// mediaFileName is stable per source clip so a retried render reuses
// earlier downloads.
func mediaFileName(uri string) string {
	sum := sha256.Sum256([]byte(clips.NormalizeMediaID(uri)))
	return "stock-" + hex.EncodeToString(sum[:6]) + ".mp4"
}

func (c *Composer) download(ctx context.Context, uri, dest string) error {
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "render", "download", "invalid clip url", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "render", "download", "clip download failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return services.Wrap(services.ErrExternalTool, "render", "download",
			fmt.Sprintf("clip download returned %d", resp.StatusCode), nil)
	}

	partial := dest + ".part"
	f, err := os.Create(partial)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "render", "download", "create media file", err)
	}
	_, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(partial)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "render", "download", "clip download interrupted", err)
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return services.Wrap(services.ErrConfiguration, "render", "download", "finalize media file", err)
	}
	return nil
}

// renderSegments cuts each source to its entry's exact length at the target
// size. Sources shorter than the entry are looped.
func (c *Composer) renderSegments(ctx context.Context, req Request, sources []string, renderDir string) ([]string, error) {
	segments := make([]string, len(req.Timeline))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, entry := range req.Timeline {
		out := filepath.Join(renderDir, fmt.Sprintf("segment_%03d.mp4", i))
		segments[i] = out
		src := sources[i]
		duration := entry.End - entry.Start
		g.Go(func() error {
			args := []string{
				"-y", "-hide_banner", "-loglevel", "error",
				"-stream_loop", "-1", "-i", src,
				"-t", seconds(duration),
				"-vf", fillFilter(req.Size.Width, req.Size.Height, c.frameRate),
				"-an", "-c:v", c.cfg.Render.VideoCodec,
			}
			if c.cfg.Render.Preset != "" {
				args = append(args, "-preset", c.cfg.Render.Preset)
			}
			args = append(args, out)
			if _, err := c.run(gctx, c.cfg.FFmpegBinary(), args...); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return services.Wrap(services.ErrExternalTool, "render", "render segment",
					fmt.Sprintf("segment %d [%.2f, %.2f)", i, entry.Start, entry.End), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return segments, nil
}

func (c *Composer) mux(ctx context.Context, req Request, segments []string, renderDir, final string, total float64) error {
	var list strings.Builder
	for _, seg := range segments {
		list.WriteString(concatLine(seg))
	}
	listPath := filepath.Join(renderDir, "segments.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "render", "mux", "write segment list", err)
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-i", req.AudioFile,
		"-map", "0:v:0", "-map", "1:a:0",
	}
	if req.CaptionsFile != "" {
		args = append(args, "-vf", subtitlesFilter(req.CaptionsFile, c.cfg.Render.FontSize), "-c:v", c.cfg.Render.VideoCodec)
		if c.cfg.Render.Preset != "" {
			args = append(args, "-preset", c.cfg.Render.Preset)
		}
	} else {
		args = append(args, "-c:v", "copy")
	}
	args = append(args,
		"-c:a", c.cfg.Render.AudioCodec,
		"-t", seconds(total),
		"-movflags", "+faststart",
		final,
	)
	if _, err := c.run(ctx, c.cfg.FFmpegBinary(), args...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "render", "mux", "ffmpeg mux failed", err)
	}
	return nil
}

// subtitlesFilter escapes path for the filtergraph parser.
func subtitlesFilter(path string, fontSize int) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `,`, `\,`).Replace(path)
	filter := "subtitles=filename=" + escaped
	if fontSize > 0 {
		filter += fmt.Sprintf(":force_style=FontSize=%d", fontSize)
	}
	return filter
}

func (c *Composer) validate(ctx context.Context, path string, total float64) (float64, error) {
	result, err := ffprobe.InspectWith(ctx, c.probe, c.cfg.FFprobeBinary(), path)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "render", "validate", "ffprobe could not read the render", err)
	}
	if result.VideoStreamCount() == 0 || result.AudioStreamCount() == 0 {
		return 0, services.Wrap(services.ErrExternalTool, "render", "validate",
			fmt.Sprintf("render has %d video and %d audio streams", result.VideoStreamCount(), result.AudioStreamCount()), nil)
	}
	got := result.DurationSeconds()
	if math.Abs(got-total) > durationTolerance {
		return 0, services.Wrap(services.ErrExternalTool, "render", "validate",
			fmt.Sprintf("render is %.2fs, timeline is %.2fs", got, total), nil)
	}
	return got, nil
}
