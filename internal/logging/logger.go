package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"scenecast/internal/config"
)

// LogFileName is the daemon log inside paths.log_dir.
const LogFileName = "scenecast.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// OutputPaths accepts "stdout", "stderr" or file paths, opened for
	// append. Ignored when Writer is set.
	OutputPaths []string
	// Writer is owned by the caller.
	Writer io.Writer
	// Development adds source locations at every level, not just debug.
	Development bool
}

// New builds a console or JSON logger.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	out := opts.Writer
	if out == nil {
		var err error
		if out, err = openOutputs(opts.OutputPaths); err != nil {
			return nil, err
		}
	}
	withSource := opts.Development || level <= slog.LevelDebug

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		return slog.New(newConsoleHandler(out, level, withSource)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:       level,
			AddSource:   withSource,
			ReplaceAttr: shortJSONKeys,
		})), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig logs to stdout and <log_dir>/scenecast.log in the
// configured format. A non-blank level overrides logging.level.
func NewFromConfig(cfg *config.Config, level string, development bool) (*slog.Logger, error) {
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	return New(Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, LogFileName)},
		Development: development,
	})
}

// parseLevel accepts slog's names (and offsets such as "info+2") plus
// "warning"; anything else is info.
func parseLevel(name string) slog.Level {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// openOutputs opens each distinct output once and joins them; no outputs
// means stdout.
func openOutputs(paths []string) (io.Writer, error) {
	var names []string
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" && !slices.Contains(names, p) {
			names = append(names, p)
		}
	}
	writers := make([]io.Writer, 0, len(names))
	for _, name := range names {
		switch name {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
				return nil, fmt.Errorf("create log dir for %s: %w", name, err)
			}
			f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", name, err)
			}
			writers = append(writers, f)
		}
	}
	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

// shortJSONKeys writes "ts" in UTC seconds, lowercase levels and
// file:line sources.
func shortJSONKeys(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if a.Value.Kind() == slog.KindTime {
			return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339))
		}
		a.Key = "ts"
	case slog.LevelKey:
		a.Value = slog.StringValue(strings.ToLower(a.Value.String()))
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
			a.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return a
}
