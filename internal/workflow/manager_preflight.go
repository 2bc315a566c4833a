package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"scenecast/internal/logging"
)

var errPreflightFailed = errors.New("preflight checks failed")

// runPreflightChecks validates directories and credentials before an item is
// processed. Only failures are logged at info level or above.
func (m *Manager) runPreflightChecks(ctx context.Context, logger *slog.Logger) error {
	if m.preflight == nil {
		return nil
	}
	results := m.preflight(ctx, m.cfg)

	var failures []string
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue; the item stays queued"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w: %s", errPreflightFailed, strings.Join(failures, "; "))
	}
	return nil
}
