package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"scenecast/internal/config"
)

// Requirement is an external binary the pipeline shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement plus whether it was found. Detail explains a
// miss.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Requirements lists the binaries the pipeline shells out to.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Renders generated clips and the final video"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "Measures narration and validates output"},
		{Name: "uvx", Command: cfg.UVXBinary(), Description: "Runs edge-tts and whisperx"},
	}
}

// Check looks the command up on PATH.
func (r Requirement) Check() Status {
	r.Command = strings.TrimSpace(r.Command)
	r.Description = strings.TrimSpace(r.Description)
	s := Status{Requirement: r}
	if r.Command == "" {
		s.Detail = "command not configured"
		return s
	}
	if _, err := exec.LookPath(r.Command); err != nil {
		s.Detail = fmt.Sprintf("binary %q not found", r.Command)
		return s
	}
	s.Available = true
	return s
}

// CheckBinaries runs Check over every requirement, in order.
func CheckBinaries(requirements []Requirement) []Status {
	out := make([]Status, len(requirements))
	for i, r := range requirements {
		out[i] = r.Check()
	}
	return out
}

// FilterLister returns the output of `ffmpeg -hide_banner -filters`.
type FilterLister func(ctx context.Context, ffmpeg string) ([]byte, error)

func listFilters(ctx context.Context, ffmpeg string) ([]byte, error) {
	return exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-filters").CombinedOutput()
}

// CheckSubtitlesFilter reports whether ffmpeg was built with libass, which
// burned-in captions need. A nil lister runs ffmpeg.
func CheckSubtitlesFilter(ctx context.Context, ffmpeg string, lister FilterLister) Status {
	s := Status{Requirement: Requirement{
		Name:        "FFmpeg subtitles filter",
		Command:     ffmpeg,
		Description: "Burns captions into the video (libass)",
		Optional:    true,
	}}
	if lister == nil {
		lister = listFilters
	}
	out, err := lister(ctx, ffmpeg)
	if err != nil {
		s.Detail = fmt.Sprintf("list filters: %v", err)
		return s
	}
	// Each filter line reads " flags name in->out description".
	lines := bufio.NewScanner(bytes.NewReader(out))
	for lines.Scan() {
		if fields := strings.Fields(lines.Text()); len(fields) >= 2 && fields[1] == "subtitles" {
			s.Available = true
			return s
		}
	}
	s.Detail = "ffmpeg built without libass; set render.burn_captions = false"
	return s
}
