package whisperx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultModel is used when Config.Model is blank.
const DefaultModel = "large-v3-turbo"

const (
	cudaIndex = "https://download.pytorch.org/whl/cu128"
	pypiIndex = "https://pypi.org/simple"
)

// Config selects the model, language and device for alignment.
type Config struct {
	Model string
	// Language is a BCP 47 tag or ISO 639-1 code; blank lets WhisperX detect it.
	Language    string
	CUDAEnabled bool
}

// CommandRunner starts an external command and waits for it.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service aligns narration audio with WhisperX, started through uvx.
type Service struct {
	cfg    Config
	uvx    string
	ffmpeg string
	runner CommandRunner
}

// NewService returns a Service; blank binaries mean "uvx" and "ffmpeg" on PATH.
func NewService(cfg Config, uvxBinary, ffmpegBinary string) *Service {
	s := &Service{cfg: cfg, uvx: uvxBinary, ffmpeg: ffmpegBinary}
	if s.uvx == "" {
		s.uvx = "uvx"
	}
	if s.ffmpeg == "" {
		s.ffmpeg = "ffmpeg"
	}
	if s.cfg.Model == "" {
		s.cfg.Model = DefaultModel
	}
	s.runner = execRunner
	return s
}

// WithCommandRunner replaces process execution, for tests.
func (s *Service) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		s.runner = runner
	}
}

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	// pyannote checkpoints fail to load under torch's weights_only default.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// PrepareAudio writes source to dest as mono 16kHz PCM WAV.
func (s *Service) PrepareAudio(ctx context.Context, source, dest string) error {
	err := s.runner(ctx, s.ffmpeg,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source, "-vn",
		"-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le",
		dest)
	if err != nil {
		return fmt.Errorf("prepare audio: %w", err)
	}
	return nil
}

// Align runs WhisperX on source and returns every spoken word with timings.
// The JSON transcript is written to outputDir (source's directory when
// blank).
func (s *Service) Align(ctx context.Context, source, outputDir string) ([]Word, error) {
	if source == "" {
		return nil, errors.New("align: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}
	if err := s.runner(ctx, s.uvx, s.args(source, outputDir)...); err != nil {
		return nil, fmt.Errorf("whisperx: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	segments, err := LoadSegments(filepath.Join(outputDir, stem+".json"))
	if err != nil {
		return nil, fmt.Errorf("whisperx: %w", err)
	}
	words := TimedWords(segments)
	if len(words) == 0 {
		return nil, errors.New("whisperx: transcript has no words")
	}
	return words, nil
}

// args builds the uvx command line. Sentence segmentation with Silero VAD
// and greedy decoding keep word timings stable across runs.
func (s *Service) args(source, outputDir string) []string {
	device := []string{"--device", "cpu", "--compute_type", "float32"}
	index := []string{"--index-url", pypiIndex}
	if s.cfg.CUDAEnabled {
		device = []string{"--device", "cuda"}
		index = []string{"--index-url", cudaIndex, "--extra-index-url", pypiIndex}
	}

	args := append(index, "whisperx", source)
	flags := [][2]string{
		{"--model", s.cfg.Model},
		{"--batch_size", "4"},
		{"--output_dir", outputDir},
		{"--output_format", "json"},
		{"--segment_resolution", "sentence"},
		{"--chunk_size", "15"},
		{"--vad_method", "silero"},
		{"--vad_onset", "0.08"},
		{"--vad_offset", "0.07"},
		{"--temperature", "0.0"},
	}
	if lang := languageCode(s.cfg.Language); lang != "" {
		flags = append(flags, [2]string{"--language", lang})
	}
	for _, f := range flags {
		args = append(args, f[0], f[1])
	}
	return append(args, device...)
}

// languageCode reduces "en-US" style tags to the two-letter code WhisperX
// accepts; anything else is dropped.
func languageCode(tag string) string {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(tag)), "-")
	if len(base) != 2 {
		return ""
	}
	return base
}
