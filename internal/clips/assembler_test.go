package clips_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"scenecast/internal/clips"
	"scenecast/internal/logging"
	"scenecast/internal/services"
)

func newAssembler(searcher *fakeSearcher, gen *fakeGenerator, dir string, opts clips.Options) *clips.Assembler {
	logger := logging.NewNop()
	return clips.NewAssembler(
		clips.NewResolver(searcher, opts, logger),
		clips.NewSynthesizer(gen, &fakeEncoder{}, dir, opts, logger),
		opts,
		logger,
	)
}

func assertCovers(t *testing.T, entries []clips.TimelineEntry, total float64) {
	t.Helper()
	if len(entries) == 0 {
		t.Fatal("empty timeline")
	}
	if entries[0].Start != 0 {
		t.Fatalf("timeline starts at %v", entries[0].Start)
	}
	for i, e := range entries {
		if e.Media == nil {
			t.Fatalf("entry %d has no media", i)
		}
		if e.End <= e.Start {
			t.Fatalf("entry %d is empty: %+v", i, e)
		}
		if i > 0 && entries[i-1].End != e.Start {
			t.Fatalf("entry %d does not follow entry %d: %+v", i, i-1, entries)
		}
	}
	if last := entries[len(entries)-1].End; math.Abs(last-total) > 1e-9 {
		t.Fatalf("timeline ends at %v, want %v", last, total)
	}
}

func TestAssembleStockThenGenerated(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["cat"] = []clips.CandidateClip{hdClip(1, 15)}
	gen := newFakeGenerator()
	gen.images["dog"] = []byte("png")
	dir := t.TempDir()

	entries, err := newAssembler(searcher, gen, dir, testOptions()).Assemble(context.Background(), []clips.QueryWindow{
		{Start: 0, End: 5, Terms: []string{"cat"}},
		{Start: 5, End: 10, Terms: []string{"dog"}},
	}, 10, clips.Landscape)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Media.Source != clips.SourceStock || entries[0].Media.URI != "https://player.vimeo.com/external/1.hd.mp4?s=abc" {
		t.Fatalf("unexpected first entry %+v", entries[0].Media)
	}
	if entries[1].Media.Source != clips.SourceGenerated || entries[1].Media.URI != filepath.Join(dir, "window_5.00_10.00.mp4") {
		t.Fatalf("unexpected second entry %+v", entries[1].Media)
	}
	assertCovers(t, entries, 10)
}

func TestAssembleAbsorbsUnresolvedWindowIntoPrevious(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["x"] = []clips.CandidateClip{hdClip(1, 15)}
	searcher.results["z"] = []clips.CandidateClip{hdClip(3, 15)}
	gen := newFakeGenerator()
	gen.errs["y"] = errBoom

	entries, err := newAssembler(searcher, gen, t.TempDir(), testOptions()).Assemble(context.Background(), []clips.QueryWindow{
		{Start: 0, End: 5, Terms: []string{"x"}},
		{Start: 5, End: 8, Terms: []string{"y"}},
		{Start: 8, End: 12, Terms: []string{"z"}},
	}, 12, clips.Landscape)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Start != 0 || entries[0].End != 8 || entries[0].Media.URI != "https://player.vimeo.com/external/1.hd.mp4?s=abc" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Start != 8 || entries[1].End != 12 || entries[1].Media.URI != "https://player.vimeo.com/external/3.hd.mp4?s=abc" {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
}

func TestAssembleNeverReusesSourceAcrossVariants(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["beach"] = []clips.CandidateClip{
		clip(1, 1920, 1080, 15, "https://videos.pexels.com/video-files/1/1-hd_1920_1080_25fps.mp4"),
	}
	searcher.results["sea"] = []clips.CandidateClip{
		clip(1, 1920, 1080, 15, "https://videos.pexels.com/video-files/1/1-hd_1920_1080_30fps.mp4"),
		clip(2, 1920, 1080, 20, "https://videos.pexels.com/video-files/2/2-hd_1920_1080_30fps.mp4"),
	}

	entries, err := newAssembler(searcher, newFakeGenerator(), t.TempDir(), testOptions()).Assemble(context.Background(), []clips.QueryWindow{
		{Start: 0, End: 4, Terms: []string{"beach"}},
		{Start: 4, End: 9, Terms: []string{"sea"}},
	}, 9, clips.Landscape)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	first := clips.NormalizeMediaID(entries[0].Media.URI)
	second := clips.NormalizeMediaID(entries[1].Media.URI)
	if first == second {
		t.Fatalf("source %q used twice", first)
	}
	if entries[1].Media.URI != "https://videos.pexels.com/video-files/2/2-hd_1920_1080_30fps.mp4" {
		t.Fatalf("expected next distinct candidate, got %q", entries[1].Media.URI)
	}
}

func TestAssembleReportsNoUsableMedia(t *testing.T) {
	gen := newFakeGenerator()
	gen.errs["a"] = errBoom
	gen.errs["b"] = errBoom

	_, err := newAssembler(newFakeSearcher(), gen, t.TempDir(), testOptions()).Assemble(context.Background(), []clips.QueryWindow{
		{Start: 0, End: 2, Terms: []string{"a"}},
		{Start: 2, End: 5, Terms: []string{"b"}},
	}, 5, clips.Landscape)
	var nu *clips.NoUsableMediaError
	if !errors.As(err, &nu) {
		t.Fatalf("expected NoUsableMediaError, got %v", err)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
	if nu.Windows != 2 || nu.Start != 0 || nu.End != 5 {
		t.Fatalf("unexpected error context %+v", nu)
	}
}

func TestAssembleRejectsEmptyWindows(t *testing.T) {
	_, err := newAssembler(newFakeSearcher(), newFakeGenerator(), t.TempDir(), testOptions()).Assemble(context.Background(), nil, 5, clips.Landscape)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssembleReturnsCancellation(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["a"] = []clips.CandidateClip{hdClip(1, 15)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAssembler(searcher, newFakeGenerator(), t.TempDir(), testOptions()).Assemble(ctx, []clips.QueryWindow{
		{Start: 0, End: 2, Terms: []string{"a"}},
	}, 2, clips.Landscape)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAssemblePrefetchCancellationNamesWindowRange(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["a"] = []clips.CandidateClip{hdClip(1, 15)}
	opts := testOptions()
	opts.Concurrency = 4
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAssembler(searcher, newFakeGenerator(), t.TempDir(), opts).Assemble(ctx, []clips.QueryWindow{
		{Start: 1.5, End: 3, Terms: []string{"a"}},
		{Start: 3, End: 7.25, Terms: []string{"b"}},
	}, 7.25, clips.Landscape)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !strings.Contains(err.Error(), "[1.50-7.25]") {
		t.Fatalf("expected window range in error, got %q", err)
	}
}

func TestAssembleGeneratedOnly(t *testing.T) {
	gen := newFakeGenerator()
	gen.images["a"] = []byte("png")
	gen.images["b"] = []byte("png")
	opts := testOptions()
	logger := logging.NewNop()
	assembler := clips.NewAssembler(nil, clips.NewSynthesizer(gen, &fakeEncoder{}, t.TempDir(), opts, logger), opts, logger)

	entries, err := assembler.Assemble(context.Background(), []clips.QueryWindow{
		{Start: 0.5, End: 2, Terms: []string{"a"}},
		{Start: 2, End: 4, Terms: []string{"b"}},
	}, 4.25, clips.Landscape)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	for _, e := range entries {
		if e.Media.Source != clips.SourceGenerated {
			t.Fatalf("expected generated media only, got %+v", e.Media)
		}
	}
	assertCovers(t, entries, 4.25)
}

func TestAssembleConcurrentMatchesSerial(t *testing.T) {
	windows := []clips.QueryWindow{
		{Start: 0, End: 3, Terms: []string{"river", "lake"}},
		{Start: 3, End: 6, Terms: []string{"river"}},
		{Start: 6, End: 9, Terms: []string{"glacier"}},
		{Start: 9, End: 12, Terms: []string{"lake"}},
		{Start: 12, End: 15, Terms: []string{"volcano"}},
	}
	setup := func() (*fakeSearcher, *fakeGenerator) {
		searcher := newFakeSearcher()
		searcher.results["river"] = []clips.CandidateClip{hdClip(1, 15), hdClip(2, 10)}
		searcher.results["lake"] = []clips.CandidateClip{hdClip(2, 15), hdClip(3, 30)}
		searcher.failures["glacier"] = []error{errTransient}
		searcher.results["glacier"] = []clips.CandidateClip{hdClip(4, 15)}
		gen := newFakeGenerator()
		gen.images["volcano"] = []byte("png")
		return searcher, gen
	}
	dir := t.TempDir()

	serialSearcher, serialGen := setup()
	serial, err := newAssembler(serialSearcher, serialGen, dir, testOptions()).Assemble(context.Background(), windows, 15, clips.Landscape)
	if err != nil {
		t.Fatalf("serial Assemble: %v", err)
	}

	opts := testOptions()
	opts.Concurrency = 4
	parSearcher, parGen := setup()
	parallel, err := newAssembler(parSearcher, parGen, dir, opts).Assemble(context.Background(), windows, 15, clips.Landscape)
	if err != nil {
		t.Fatalf("parallel Assemble: %v", err)
	}
	if !reflect.DeepEqual(serial, parallel) {
		t.Fatalf("parallel timeline differs:\n serial %+v\nparallel %+v", serial, parallel)
	}
	if got := parSearcher.callCount("river"); got != 1 {
		t.Fatalf("expected prefetch to search river once, got %d", got)
	}
	assertCovers(t, parallel, 15)
}

func TestRepairGaps(t *testing.T) {
	media := func(uri string) *clips.MediaRef { return &clips.MediaRef{URI: uri, Source: clips.SourceStock} }
	cases := []struct {
		name    string
		entries []clips.TimelineEntry
		total   float64
		want    []clips.TimelineEntry
	}{
		{
			name: "leading null lowers first start",
			entries: []clips.TimelineEntry{
				{Start: 0, End: 2},
				{Start: 2, End: 5, Media: media("a")},
			},
			total: 5,
			want:  []clips.TimelineEntry{{Start: 0, End: 5, Media: media("a")}},
		},
		{
			name: "trailing null extends last entry",
			entries: []clips.TimelineEntry{
				{Start: 0, End: 3, Media: media("a")},
				{Start: 3, End: 6},
				{Start: 6, End: 7},
			},
			total: 7,
			want:  []clips.TimelineEntry{{Start: 0, End: 7, Media: media("a")}},
		},
		{
			name: "gap stretches preceding entry",
			entries: []clips.TimelineEntry{
				{Start: 1, End: 3, Media: media("a")},
				{Start: 4, End: 6, Media: media("b")},
			},
			total: 8,
			want: []clips.TimelineEntry{
				{Start: 0, End: 4, Media: media("a")},
				{Start: 4, End: 8, Media: media("b")},
			},
		},
		{
			name: "already covered",
			entries: []clips.TimelineEntry{
				{Start: 0, End: 3, Media: media("a")},
				{Start: 3, End: 6, Media: media("b")},
			},
			total: 6,
			want: []clips.TimelineEntry{
				{Start: 0, End: 3, Media: media("a")},
				{Start: 3, End: 6, Media: media("b")},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := clips.RepairGaps(tc.entries, tc.total)
			if err != nil {
				t.Fatalf("RepairGaps: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %+v\nwant %+v", got, tc.want)
			}
		})
	}
}

func TestRepairGapsAllNull(t *testing.T) {
	_, err := clips.RepairGaps([]clips.TimelineEntry{{Start: 1, End: 2}, {Start: 2, End: 4}}, 0)
	var nu *clips.NoUsableMediaError
	if !errors.As(err, &nu) {
		t.Fatalf("expected NoUsableMediaError, got %v", err)
	}
	if nu.Start != 1 || nu.End != 4 {
		t.Fatalf("unexpected bounds %+v", nu)
	}
}
