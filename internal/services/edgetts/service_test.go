package edgetts

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestSynthesizeInvokesEdgeTTS(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "audio", "narration.mp3")
	svc := NewService("", "+5%")
	var gotName string
	var gotArgs []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return os.WriteFile(dest, []byte("mp3"), 0o644)
	})

	if err := svc.Synthesize(context.Background(), " Octopuses have three hearts. ", "", dest); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	want := []string{"edge-tts", "--voice", DefaultVoice, "--text", "Octopuses have three hearts.", "--write-media", dest, "--rate=+5%"}
	if gotName != "uvx" || !slices.Equal(gotArgs, want) {
		t.Fatalf("unexpected invocation %s %v", gotName, gotArgs)
	}
}

func TestSynthesizeRejectsEmptyOutput(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "narration.mp3")
	svc := NewService("uvx", "")
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return os.WriteFile(dest, nil, 0o644)
	})
	if err := svc.Synthesize(context.Background(), "text", "en-GB-SoniaNeural", dest); err == nil {
		t.Fatal("expected error for empty output")
	}
}

func TestSynthesizeRequiresText(t *testing.T) {
	if err := NewService("", "").Synthesize(context.Background(), "  ", "", "out.mp3"); err == nil {
		t.Fatal("expected error for blank text")
	}
}
