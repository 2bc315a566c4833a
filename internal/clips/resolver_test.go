package clips_test

import (
	"context"
	"errors"
	"testing"

	"scenecast/internal/clips"
	"scenecast/internal/logging"
)

func TestQualifyFiltersIncompleteAndOffRatioCandidates(t *testing.T) {
	floor := clips.Resolution{Width: 1920, Height: 1080}
	candidates := []clips.CandidateClip{
		hdClip(1, 10),
		clip(2, 1280, 720, 10, "https://example.com/2.mp4"),  // below floor
		clip(3, 2560, 1080, 10, "https://example.com/3.mp4"), // wrong ratio
		{ID: 4, Width: intp(1920), Height: intp(1080)},       // no duration or variants
		{ID: 5, Width: intp(1920), Height: intp(1080), Duration: floatp(8)},
		clip(6, 3840, 2160, 12, "https://example.com/6.mp4"),
	}
	got := clips.Qualify(candidates, clips.Landscape, floor)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 6 {
		t.Fatalf("unexpected qualified set: %+v", got)
	}

	portrait := clips.Qualify([]clips.CandidateClip{
		clip(7, 1080, 1920, 10, "https://example.com/7.mp4"),
		hdClip(8, 10),
	}, clips.Portrait, clips.Resolution{Width: 1080, Height: 1920})
	if len(portrait) != 1 || portrait[0].ID != 7 {
		t.Fatalf("unexpected portrait set: %+v", portrait)
	}
}

func TestRankIsStableByDurationDistance(t *testing.T) {
	ranked := clips.Rank([]clips.CandidateClip{hdClip(1, 30), hdClip(2, 12), hdClip(3, 18), hdClip(4, 15)}, 15)
	want := []int64{4, 2, 3, 1}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Fatalf("position %d: got %d, want %d (full %+v)", i, ranked[i].ID, id, ranked)
		}
	}
}

func TestPickVariantRequiresExactResolution(t *testing.T) {
	c := clips.CandidateClip{
		Width: intp(3840), Height: intp(2160), Duration: floatp(10),
		Variants: []clips.ClipVariant{
			{Link: "https://example.com/a-uhd.mp4", Width: intp(3840), Height: intp(2160)},
			{Link: "https://example.com/a-nosize.mp4"},
			{Link: "https://example.com/a-hd.mp4", Width: intp(1920), Height: intp(1080)},
		},
	}
	link, ok := clips.PickVariant(c, clips.Resolution{Width: 1920, Height: 1080})
	if !ok || link != "https://example.com/a-hd.mp4" {
		t.Fatalf("unexpected variant %q ok=%v", link, ok)
	}
	if _, ok := clips.PickVariant(c, clips.Resolution{Width: 1080, Height: 1920}); ok {
		t.Fatal("expected no portrait variant")
	}
}

func TestResolverPicksClosestUnusedCandidate(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["ocean"] = []clips.CandidateClip{hdClip(1, 40), hdClip(2, 14), hdClip(3, 16)}
	resolver := clips.NewResolver(searcher, testOptions(), logging.NewNop())
	used := clips.NewUsedMediaSet()
	w := clips.QueryWindow{Start: 0, End: 5, Terms: []string{"ocean"}}

	first, ok, err := resolver.Resolve(context.Background(), w, clips.Landscape, used)
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if first.URI != "https://player.vimeo.com/external/2.hd.mp4?s=abc" || first.Source != clips.SourceStock {
		t.Fatalf("unexpected first pick: %+v", first)
	}

	second, ok, err := resolver.Resolve(context.Background(), w, clips.Landscape, used)
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if second.URI != "https://player.vimeo.com/external/3.hd.mp4?s=abc" {
		t.Fatalf("expected next-ranked candidate, got %+v", second)
	}
	if searcher.perPage != 15 {
		t.Fatalf("expected page size 15, got %d", searcher.perPage)
	}
}

func TestResolverRetriesTransientFailures(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.failures["forest"] = []error{errTransient}
	searcher.results["forest"] = []clips.CandidateClip{hdClip(1, 15)}
	resolver := clips.NewResolver(searcher, testOptions(), logging.NewNop())

	_, ok, err := resolver.Resolve(context.Background(), clips.QueryWindow{Start: 0, End: 3, Terms: []string{"forest"}}, clips.Landscape, clips.NewUsedMediaSet())
	if err != nil || !ok {
		t.Fatalf("expected success after retry, ok=%v err=%v", ok, err)
	}
	if got := searcher.callCount("forest"); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestResolverGivesUpAfterMaxAttempts(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.failures["storm"] = []error{errTransient, errTransient, errTransient, errTransient}
	searcher.results["storm"] = []clips.CandidateClip{hdClip(1, 15)}
	searcher.results["rain"] = []clips.CandidateClip{hdClip(2, 15)}
	resolver := clips.NewResolver(searcher, testOptions(), logging.NewNop())

	ref, ok, err := resolver.Resolve(context.Background(), clips.QueryWindow{Start: 0, End: 3, Terms: []string{"storm", "rain"}}, clips.Landscape, clips.NewUsedMediaSet())
	if err != nil || !ok {
		t.Fatalf("expected fallback to second term, ok=%v err=%v", ok, err)
	}
	if got := searcher.callCount("storm"); got != 3 {
		t.Fatalf("expected 3 attempts for storm, got %d", got)
	}
	if ref.URI != "https://player.vimeo.com/external/2.hd.mp4?s=abc" {
		t.Fatalf("unexpected pick %+v", ref)
	}
}

func TestResolverDoesNotRetryPermanentFailures(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.failures["desert"] = []error{errBoom}
	resolver := clips.NewResolver(searcher, testOptions(), logging.NewNop())

	_, ok, err := resolver.Resolve(context.Background(), clips.QueryWindow{Start: 0, End: 3, Terms: []string{"desert"}}, clips.Landscape, clips.NewUsedMediaSet())
	if err != nil {
		t.Fatalf("provider failure should be a miss, got %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
	if got := searcher.callCount("desert"); got != 1 {
		t.Fatalf("expected a single call, got %d", got)
	}
}

func TestResolverReturnsCancellation(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["sky"] = []clips.CandidateClip{hdClip(1, 15)}
	resolver := clips.NewResolver(searcher, testOptions(), logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := resolver.Resolve(ctx, clips.QueryWindow{Start: 0, End: 3, Terms: []string{"sky"}}, clips.Landscape, clips.NewUsedMediaSet())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResolverIsDeterministic(t *testing.T) {
	run := func() string {
		searcher := newFakeSearcher()
		searcher.results["city"] = []clips.CandidateClip{hdClip(5, 20), hdClip(6, 10), hdClip(7, 20)}
		resolver := clips.NewResolver(searcher, testOptions(), logging.NewNop())
		ref, _, _ := resolver.Resolve(context.Background(), clips.QueryWindow{Start: 0, End: 1, Terms: []string{"city"}}, clips.Landscape, clips.NewUsedMediaSet())
		return ref.URI
	}
	first := run()
	for i := 0; i < 5; i++ {
		if got := run(); got != first {
			t.Fatalf("run %d picked %q, first run picked %q", i, got, first)
		}
	}
	if first != "https://player.vimeo.com/external/5.hd.mp4?s=abc" {
		t.Fatalf("expected first of tied candidates, got %q", first)
	}
}
