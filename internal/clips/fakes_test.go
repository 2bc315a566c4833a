package clips_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"scenecast/internal/clips"
	"scenecast/internal/services"
)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

// clip builds a landscape candidate whose variant list holds the given
// links, each tagged with the candidate's own size.
func clip(id int64, width, height int, seconds float64, links ...string) clips.CandidateClip {
	c := clips.CandidateClip{ID: id, Width: intp(width), Height: intp(height), Duration: floatp(seconds)}
	for _, link := range links {
		c.Variants = append(c.Variants, clips.ClipVariant{Link: link, Width: intp(width), Height: intp(height)})
	}
	return c
}

func hdClip(id int64, seconds float64) clips.CandidateClip {
	return clip(id, 1920, 1080, seconds, fmt.Sprintf("https://player.vimeo.com/external/%d.hd.mp4?s=abc", id))
}

func testOptions() clips.Options {
	opts := clips.DefaultOptions()
	opts.RetryBaseDelay = 0
	opts.RetryMaxDelay = 0
	return opts
}

var errTransient = fmt.Errorf("upstream hiccup: %w", services.ErrTransient)

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]clips.CandidateClip
	// failures holds errors returned before results, consumed in order.
	failures map[string][]error
	calls    map[string]int
	perPage  int
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		results:  map[string][]clips.CandidateClip{},
		failures: map[string][]error{},
		calls:    map[string]int{},
	}
}

func (f *fakeSearcher) SearchFootage(ctx context.Context, term string, _ clips.Orientation, perPage int) ([]clips.CandidateClip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[term]++
	f.perPage = perPage
	if queue := f.failures[term]; len(queue) > 0 {
		f.failures[term] = queue[1:]
		return nil, queue[0]
	}
	return f.results[term], nil
}

func (f *fakeSearcher) callCount(term string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[term]
}

type fakeGenerator struct {
	mu     sync.Mutex
	images map[string][]byte
	errs   map[string]error
	calls  map[string]int
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{images: map[string][]byte{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (g *fakeGenerator) GenerateImage(ctx context.Context, prompt string, _ clips.Resolution) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[prompt]++
	if err := g.errs[prompt]; err != nil {
		return nil, err
	}
	return g.images[prompt], nil
}

type fakeEncoder struct {
	mu    sync.Mutex
	clips []clips.FrameClip
	err   error
}

func (e *fakeEncoder) EncodeFrames(_ context.Context, clip clips.FrameClip) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.clips = append(e.clips, clip)
	return nil
}

var errBoom = errors.New("boom")
