package logging_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"scenecast/internal/logging"
)

func TestFanoutRespectsPerHandlerLevels(t *testing.T) {
	var info, debug bytes.Buffer
	handler := logging.Fanout(
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		nil,
		slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(handler).With(logging.String("component", "render"))

	logger.Debug("probe detail")
	logger.Info("render finished")

	if strings.Contains(info.String(), "probe detail") {
		t.Fatalf("info handler received debug record: %s", info.String())
	}
	if !strings.Contains(info.String(), "render finished") || !strings.Contains(info.String(), `"component":"render"`) {
		t.Fatalf("info handler missing record: %s", info.String())
	}
	if !strings.Contains(debug.String(), "probe detail") || !strings.Contains(debug.String(), "render finished") {
		t.Fatalf("debug handler missing records: %s", debug.String())
	}
}
