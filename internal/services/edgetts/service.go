package edgetts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	// DefaultVoice is used when no voice is configured.
	DefaultVoice = "en-US-GuyNeural"
	// UVXCommand runs edge-tts without a global install.
	UVXCommand = "uvx"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service synthesizes speech with Microsoft Edge's online TTS through the
// edge-tts CLI.
type Service struct {
	uvxBinary     string
	rate          string
	commandRunner CommandRunner
}

// NewService builds a Service. rate is an edge-tts rate such as "+10%";
// empty keeps the voice's default speed.
func NewService(uvxBinary, rate string) *Service {
	if uvxBinary == "" {
		uvxBinary = UVXCommand
	}
	return &Service{uvxBinary: uvxBinary, rate: strings.TrimSpace(rate)}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.commandRunner = runner
}

// Synthesize writes spoken text to dest (MP3).
func (s *Service) Synthesize(ctx context.Context, text, voice, dest string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("edge-tts: text required")
	}
	if dest == "" {
		return errors.New("edge-tts: destination required")
	}
	if voice = strings.TrimSpace(voice); voice == "" {
		voice = DefaultVoice
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("edge-tts: ensure output dir: %w", err)
	}

	args := []string{"edge-tts", "--voice", voice, "--text", text, "--write-media", dest}
	if s.rate != "" {
		args = append(args, "--rate="+s.rate)
	}
	if err := s.run(ctx, s.uvxBinary, args...); err != nil {
		return fmt.Errorf("edge-tts: %w", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("edge-tts: output missing: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("edge-tts: output is empty")
	}
	return nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
