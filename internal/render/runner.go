package render

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external binary and returns its combined
// output. Tests swap it out.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	output, err := exec.CommandContext(ctx, binary, args...).CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%w: %s", err, tail(string(output), 2048))
	}
	return output, nil
}

// tail keeps the end of ffmpeg output, where the actual error is.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// fillFilter scales to cover size and crops the overflow.
func fillFilter(width, height, frameRate int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d,format=yuv420p",
		width, height, width, height, frameRate,
	)
}

func seconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// concatLine quotes path for an ffmpeg concat list.
func concatLine(path string) string {
	return "file '" + strings.ReplaceAll(path, "'", `'\''`) + "'\n"
}
