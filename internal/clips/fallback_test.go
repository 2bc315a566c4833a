package clips_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"scenecast/internal/clips"
	"scenecast/internal/logging"
)

func TestSynthesizerEncodesOneFramePerTerm(t *testing.T) {
	gen := newFakeGenerator()
	gen.images["mountain"] = []byte("png-1")
	gen.images["sunrise"] = []byte("png-2")
	enc := &fakeEncoder{}
	dir := t.TempDir()
	synth := clips.NewSynthesizer(gen, enc, dir, testOptions(), logging.NewNop())

	ref, ok, err := synth.Synthesize(context.Background(), clips.QueryWindow{Start: 2, End: 6, Terms: []string{"mountain", "sunrise"}}, clips.Landscape)
	if err != nil || !ok {
		t.Fatalf("Synthesize: ok=%v err=%v", ok, err)
	}
	if ref.Source != clips.SourceGenerated {
		t.Fatalf("expected generated source, got %q", ref.Source)
	}
	if want := filepath.Join(dir, "window_2.00_6.00.mp4"); ref.URI != want {
		t.Fatalf("unexpected output %q, want %q", ref.URI, want)
	}
	if len(enc.clips) != 1 {
		t.Fatalf("expected one encode, got %d", len(enc.clips))
	}
	got := enc.clips[0]
	if len(got.Frames) != 2 || string(got.Frames[0]) != "png-1" {
		t.Fatalf("unexpected frames: %q", got.Frames)
	}
	if got.Size != (clips.Resolution{Width: 1920, Height: 1080}) || got.FrameRate != 30 || got.Duration != 4 {
		t.Fatalf("unexpected clip parameters: %+v", got)
	}
}

func TestSynthesizerUsesPortraitSize(t *testing.T) {
	gen := newFakeGenerator()
	gen.images["tower"] = []byte("png")
	enc := &fakeEncoder{}
	synth := clips.NewSynthesizer(gen, enc, t.TempDir(), testOptions(), logging.NewNop())

	if _, ok, err := synth.Synthesize(context.Background(), clips.QueryWindow{Start: 0, End: 1, Terms: []string{"tower"}}, clips.Portrait); err != nil || !ok {
		t.Fatalf("Synthesize: ok=%v err=%v", ok, err)
	}
	if enc.clips[0].Size != (clips.Resolution{Width: 1080, Height: 1920}) {
		t.Fatalf("unexpected size %v", enc.clips[0].Size)
	}
}

func TestSynthesizerKeepsPartialFrames(t *testing.T) {
	gen := newFakeGenerator()
	gen.images["a"] = []byte("png-a")
	gen.errs["b"] = errBoom
	gen.images["c"] = nil // empty output counts as a failure
	enc := &fakeEncoder{}
	synth := clips.NewSynthesizer(gen, enc, t.TempDir(), testOptions(), logging.NewNop())

	_, ok, err := synth.Synthesize(context.Background(), clips.QueryWindow{Start: 0, End: 3, Terms: []string{"a", "b", "c"}}, clips.Landscape)
	if err != nil || !ok {
		t.Fatalf("Synthesize: ok=%v err=%v", ok, err)
	}
	if n := len(enc.clips[0].Frames); n != 1 {
		t.Fatalf("expected 1 frame, got %d", n)
	}
}

func TestSynthesizerMissesWhenNoFrames(t *testing.T) {
	gen := newFakeGenerator()
	gen.errs["void"] = errBoom
	enc := &fakeEncoder{}
	synth := clips.NewSynthesizer(gen, enc, t.TempDir(), testOptions(), logging.NewNop())

	_, ok, err := synth.Synthesize(context.Background(), clips.QueryWindow{Start: 0, End: 3, Terms: []string{"void"}}, clips.Landscape)
	if err != nil {
		t.Fatalf("expected miss without error, got %v", err)
	}
	if ok || len(enc.clips) != 0 {
		t.Fatalf("expected miss with no encode, ok=%v encodes=%d", ok, len(enc.clips))
	}
}

func TestSynthesizerRetriesTransientGeneration(t *testing.T) {
	gen := &flakyGenerator{failFirst: 2}
	synth := clips.NewSynthesizer(gen, &fakeEncoder{}, t.TempDir(), testOptions(), logging.NewNop())

	if _, ok, err := synth.Synthesize(context.Background(), clips.QueryWindow{Start: 0, End: 1, Terms: []string{"x"}}, clips.Landscape); err != nil || !ok {
		t.Fatalf("Synthesize: ok=%v err=%v", ok, err)
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", gen.calls)
	}
}

func TestSynthesizerEncoderFailureIsMiss(t *testing.T) {
	gen := newFakeGenerator()
	gen.images["x"] = []byte("png")
	synth := clips.NewSynthesizer(gen, &fakeEncoder{err: errBoom}, t.TempDir(), testOptions(), logging.NewNop())

	_, ok, err := synth.Synthesize(context.Background(), clips.QueryWindow{Start: 0, End: 1, Terms: []string{"x"}}, clips.Landscape)
	if err != nil || ok {
		t.Fatalf("expected quiet miss, ok=%v err=%v", ok, err)
	}
}

func TestSynthesizerReturnsCancellation(t *testing.T) {
	gen := newFakeGenerator()
	gen.images["x"] = []byte("png")
	synth := clips.NewSynthesizer(gen, &fakeEncoder{}, t.TempDir(), testOptions(), logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := synth.Synthesize(ctx, clips.QueryWindow{Start: 0, End: 1, Terms: []string{"x"}}, clips.Landscape)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type flakyGenerator struct {
	failFirst int
	calls     int
}

func (g *flakyGenerator) GenerateImage(context.Context, string, clips.Resolution) ([]byte, error) {
	g.calls++
	if g.calls <= g.failFirst {
		return nil, errTransient
	}
	return []byte("png"), nil
}
