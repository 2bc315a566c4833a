package clips_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"scenecast/internal/clips"
	"scenecast/internal/logging"
	"scenecast/internal/services"
)

func TestNormalizeWindowsSortsAndKeepsContiguousWindows(t *testing.T) {
	in := []clips.QueryWindow{
		{Start: 5, End: 10, Terms: []string{"dog"}},
		{Start: 0, End: 5, Terms: []string{" cat ", ""}},
	}
	got, err := clips.NormalizeWindows(in, 10, 0)
	if err != nil {
		t.Fatalf("NormalizeWindows: %v", err)
	}
	want := []clips.QueryWindow{
		{Start: 0, End: 5, Terms: []string{"cat"}},
		{Start: 5, End: 10, Terms: []string{"dog"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected windows:\n got %+v\nwant %+v", got, want)
	}
}

func TestNormalizeWindowsMergesSmallGapsWithoutDedup(t *testing.T) {
	in := []clips.QueryWindow{
		{Start: 0, End: 2, Terms: []string{"city", "night"}},
		{Start: 2.05, End: 4, Terms: []string{"city"}},
		{Start: 6, End: 8, Terms: []string{"ocean"}},
	}
	got, err := clips.NormalizeWindows(in, 8, 0.1)
	if err != nil {
		t.Fatalf("NormalizeWindows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 windows, got %+v", got)
	}
	if got[0].Start != 0 || got[0].End != 4 {
		t.Fatalf("unexpected merged bounds: %+v", got[0])
	}
	if !reflect.DeepEqual(got[0].Terms, []string{"city", "night", "city"}) {
		t.Fatalf("expected concatenated terms with duplicates, got %v", got[0].Terms)
	}
}

func TestNormalizeWindowsMergesOverlaps(t *testing.T) {
	in := []clips.QueryWindow{
		{Start: 0, End: 3, Terms: []string{"a"}},
		{Start: 2.5, End: 5, Terms: []string{"b"}},
	}
	got, err := clips.NormalizeWindows(in, 5, 0)
	if err != nil {
		t.Fatalf("NormalizeWindows: %v", err)
	}
	if len(got) != 1 || got[0].End != 5 || len(got[0].Terms) != 2 {
		t.Fatalf("expected one merged window, got %+v", got)
	}
}

func TestNormalizeWindowsRejectsMalformed(t *testing.T) {
	cases := map[string][]clips.QueryWindow{
		"empty":        nil,
		"negative":     {{Start: -1, End: 2, Terms: []string{"a"}}},
		"past end":     {{Start: 0, End: 12, Terms: []string{"a"}}},
		"zero length":  {{Start: 3, End: 3, Terms: []string{"a"}}},
		"reversed":     {{Start: 4, End: 2, Terms: []string{"a"}}},
		"second entry": {{Start: 0, End: 2, Terms: []string{"a"}}, {Start: 2, End: 11, Terms: []string{"b"}}},
	}
	for name, windows := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := clips.NormalizeWindows(windows, 10, 0)
			var malformed *clips.MalformedWindowError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedWindowError, got %v", err)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
		})
	}
}

func TestNormalizeWindowsReportsFailingIndex(t *testing.T) {
	_, err := clips.NormalizeWindows([]clips.QueryWindow{
		{Start: 0, End: 2, Terms: []string{"a"}},
		{Start: 2, End: 11, Terms: []string{"b"}},
	}, 10, 0)
	var malformed *clips.MalformedWindowError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedWindowError, got %v", err)
	}
	if malformed.Index != 1 || malformed.Start != 2 || malformed.End != 11 {
		t.Fatalf("unexpected error context: %+v", malformed)
	}
}

func TestNormalizeWindowsClampsRoundedBounds(t *testing.T) {
	// Captions reach the extractor rounded to hundredths, so 9.996 shows
	// as 10.00 and a window may end there.
	got, err := clips.NormalizeWindows([]clips.QueryWindow{
		{Start: 0, End: 5, Terms: []string{"a"}},
		{Start: 5, End: 10, Terms: []string{"b"}},
	}, 9.996, 0)
	if err != nil {
		t.Fatalf("NormalizeWindows: %v", err)
	}
	if end := got[len(got)-1].End; end != 9.996 {
		t.Fatalf("expected end clamped to 9.996, got %v", end)
	}

	if _, err := clips.NormalizeWindows([]clips.QueryWindow{
		{Start: 0, End: 10.01, Terms: []string{"a"}},
	}, 9.996, 0); err == nil {
		t.Fatal("expected a window past the rounding tolerance to be rejected")
	}
}

type staticExtractor struct {
	windows []clips.QueryWindow
	err     error
}

func (s staticExtractor) ExtractQueryWindows(context.Context, string, []clips.CaptionSegment) ([]clips.QueryWindow, error) {
	return s.windows, s.err
}

func TestBuilderUsesCaptionDurationWhenTotalUnknown(t *testing.T) {
	captions := []clips.CaptionSegment{{Start: 0, End: 4, Text: "hello"}, {Start: 4, End: 9.5, Text: "world"}}
	builder := clips.NewBuilder(staticExtractor{windows: []clips.QueryWindow{
		{Start: 4, End: 9.5, Terms: []string{"world"}},
		{Start: 0, End: 4, Terms: []string{"hello"}},
	}}, testOptions(), logging.NewNop())

	got, err := builder.Build(context.Background(), "hello world", captions, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got) != 2 || got[0].Start != 0 || got[1].End != 9.5 {
		t.Fatalf("unexpected windows: %+v", got)
	}

	if _, err := builder.Build(context.Background(), "hello world", captions, 5); err == nil {
		t.Fatal("expected windows past a shorter total to be rejected")
	}
}

func TestBuilderWrapsExtractorFailure(t *testing.T) {
	builder := clips.NewBuilder(staticExtractor{err: errBoom}, testOptions(), logging.NewNop())
	_, err := builder.Build(context.Background(), "script", []clips.CaptionSegment{{Start: 0, End: 1, Text: "x"}}, 1)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected extractor error, got %v", err)
	}
}
