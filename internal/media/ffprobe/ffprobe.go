package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes ffprobe and returns its combined output. Tests swap it out.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// ExecRunner runs the binary with os/exec.
func ExecRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).CombinedOutput()
}

// Result is the subset of `ffprobe -show_format -show_streams` output the
// pipeline checks.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Stream is one elementary stream.
type Stream struct {
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
}

// InspectWith probes path through run (ExecRunner when nil). A blank binary
// means "ffprobe".
func InspectWith(ctx context.Context, run Runner, binary, path string) (Result, error) {
	if path = strings.TrimSpace(path); path == "" {
		return Result{}, errors.New("ffprobe: empty path")
	}
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	var result Result
	if err := json.Unmarshal(out, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: decode output: %w", path, err)
	}
	return result, nil
}

// VideoStreamCount counts video streams.
func (r Result) VideoStreamCount() int { return r.count("video") }

// AudioStreamCount counts audio streams.
func (r Result) AudioStreamCount() int { return r.count("audio") }

func (r Result) count(kind string) int {
	n := 0
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, kind) {
			n++
		}
	}
	return n
}

// DurationSeconds prefers the container duration and falls back to the
// longest stream. It is 0 when nothing reports a duration and NaN when the
// container value is malformed.
func (r Result) DurationSeconds() float64 {
	if strings.TrimSpace(r.Format.Duration) != "" {
		return seconds(r.Format.Duration)
	}
	var longest float64
	for _, s := range r.Streams {
		if d := seconds(s.Duration); d > longest {
			longest = d
		}
	}
	return longest
}

// seconds parses an ffprobe decimal string; NaN compares false with
// everything, so bad stream values never win the max above.
func seconds(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
