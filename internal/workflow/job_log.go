package workflow

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"scenecast/internal/config"
	"scenecast/internal/logging"
	"scenecast/internal/queue"
	"scenecast/internal/textutil"
)

// JobLogger manages one log file per job under <log_dir>/jobs so a single
// video's history can be read without grepping the daemon log.
type JobLogger struct {
	baseDir string
	level   string
	format  string
}

// NewJobLogger creates a job logger rooted at the configured log directory.
func NewJobLogger(cfg *config.Config) *JobLogger {
	j := &JobLogger{level: "info", format: "json"}
	if cfg == nil {
		return j
	}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		j.baseDir = filepath.Join(dir, "jobs")
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" {
		j.level = level
	}
	return j
}

// Path returns the log file for item. Ids keep the name stable across
// retries; the slug only helps humans scanning the directory.
func (j *JobLogger) Path(item *queue.Item) string {
	if j == nil || j.baseDir == "" || item == nil {
		return ""
	}
	return filepath.Join(j.baseDir, fmt.Sprintf("%d-%s.log", item.ID, textutil.Slug(item.Topic)))
}

// Open returns a logger writing JSON lines to the item's log file and to
// fallback. The returned closer releases the file.
func (j *JobLogger) Open(item *queue.Item, fallback *slog.Logger) (*slog.Logger, io.Closer, error) {
	path := j.Path(item)
	if path == "" {
		return fallback, nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fallback, nopCloser{}, fmt.Errorf("ensure job log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fallback, nopCloser{}, fmt.Errorf("open job log: %w", err)
	}
	fileLogger, err := logging.New(logging.Options{Level: j.level, Format: j.format, Writer: file})
	if err != nil {
		file.Close()
		return fallback, nopCloser{}, err
	}
	logger := slog.New(logging.Fanout(fileLogger.Handler(), fallback.Handler()))
	return logger.With(logging.Int64(logging.FieldItemID, item.ID)), file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
