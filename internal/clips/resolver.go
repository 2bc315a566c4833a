package clips

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"scenecast/internal/logging"
	"scenecast/internal/services"
)

// FootageSearcher queries a stock footage provider. It returns an empty
// slice, not an error, when nothing matches.
type FootageSearcher interface {
	SearchFootage(ctx context.Context, term string, orientation Orientation, perPage int) ([]CandidateClip, error)
}

// Resolver picks one unused stock clip for a query window.
type Resolver struct {
	searcher FootageSearcher
	opts     Options
	retry    services.Backoff
	logger   *slog.Logger
}

func NewResolver(searcher FootageSearcher, opts Options, logger *slog.Logger) *Resolver {
	opts = opts.withDefaults()
	return &Resolver{
		searcher: searcher,
		opts:     opts,
		retry:    newRetrier(opts),
		logger:   logging.NewComponentLogger(logger, "clip-resolver"),
	}
}

// resolve tries each term of w in order and returns the first qualifying
// clip whose source is not yet in used, claiming it. The boolean is false on
// a miss. Errors are returned only when ctx is done. A nil cache searches
// directly.
func (r *Resolver) resolve(ctx context.Context, w QueryWindow, orientation Orientation, used *UsedMediaSet, cache *searchCache) (MediaRef, bool, error) {
	logger := logging.WithContext(ctx, r.logger)
	target := r.opts.Target(orientation)

	for _, term := range w.Terms {
		candidates, err := cache.lookup(ctx, r, term, orientation)
		if err != nil {
			if ctx.Err() != nil {
				return MediaRef{}, false, windowError(w, ctx.Err())
			}
			logging.WarnWithContext(logger, "footage search failed; trying next term", "provider_miss",
				logging.String("term", term),
				logging.String("window", w.String()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "term skipped for this window"),
				logging.String(logging.FieldErrorHint, "check pexels api key and network access"),
			)
			continue
		}

		ranked := Rank(Qualify(candidates, orientation, target), r.opts.TargetClipSeconds)
		for _, candidate := range ranked {
			link, ok := PickVariant(candidate, target)
			if !ok {
				continue
			}
			if !used.Claim(link) {
				continue
			}
			logger.Info("stock clip selected", logging.Args(append(
				logging.DecisionAttrs("clip_selection", "stock", "closest duration unused candidate"),
				logging.String("term", term),
				logging.String("window", w.String()),
				logging.String("link", link),
				logging.Float64("clip_seconds", *candidate.Duration),
			)...)...)
			return MediaRef{URI: link, Source: SourceStock}, true, nil
		}
		logger.Debug("no unused qualifying candidate",
			logging.String("term", term),
			logging.Int("returned", len(candidates)),
			logging.Int("qualified", len(ranked)),
		)
	}
	return MediaRef{}, false, nil
}

// search runs one provider query with retries.
func (r *Resolver) search(ctx context.Context, term string, orientation Orientation) ([]CandidateClip, error) {
	var out []CandidateClip
	attempts, err := r.retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = r.searcher.SearchFootage(ctx, term, orientation, r.opts.PageSize)
		return callErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ProviderError{Term: term, Attempts: attempts, Err: err}
	}
	return out, nil
}

// Qualify keeps candidates with complete metadata, the exact aspect ratio of
// the orientation and at least the floor resolution.
func Qualify(candidates []CandidateClip, orientation Orientation, floor Resolution) []CandidateClip {
	out := make([]CandidateClip, 0, len(candidates))
	for _, c := range candidates {
		if c.Width == nil || c.Height == nil || c.Duration == nil || len(c.Variants) == 0 {
			continue
		}
		w, h := *c.Width, *c.Height
		if w < floor.Width || h < floor.Height {
			continue
		}
		// Exact integer comparison; 16:9 means w*9 == h*16.
		if orientation == Portrait {
			if h*9 != w*16 {
				continue
			}
		} else if w*9 != h*16 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Rank orders candidates by distance from the target duration. Ties keep the
// provider's order.
func Rank(candidates []CandidateClip, targetSeconds float64) []CandidateClip {
	ranked := append([]CandidateClip(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(*ranked[i].Duration-targetSeconds) < math.Abs(*ranked[j].Duration-targetSeconds)
	})
	return ranked
}

// PickVariant returns the first rendition with exactly the target size.
func PickVariant(c CandidateClip, target Resolution) (string, bool) {
	for _, v := range c.Variants {
		if v.Width == nil || v.Height == nil {
			continue
		}
		if *v.Width != target.Width || *v.Height != target.Height {
			continue
		}
		if link := strings.TrimSpace(v.Link); link != "" {
			return link, true
		}
	}
	return "", false
}

// searchCache holds prefetched search results for one run.
type searchCache struct {
	mu      sync.Mutex
	results map[string]cachedSearch
}

type cachedSearch struct {
	clips []CandidateClip
	err   error
}

func newSearchCache() *searchCache {
	return &searchCache{results: make(map[string]cachedSearch)}
}

func cacheKey(term string, orientation Orientation) string {
	return string(orientation) + "\x00" + strings.ToLower(term)
}

// lookup serves a prefetched result when present and searches otherwise. A
// nil cache always searches.
func (c *searchCache) lookup(ctx context.Context, r *Resolver, term string, orientation Orientation) ([]CandidateClip, error) {
	if c != nil {
		c.mu.Lock()
		hit, ok := c.results[cacheKey(term, orientation)]
		c.mu.Unlock()
		if ok {
			return hit.clips, hit.err
		}
	}
	return r.search(ctx, term, orientation)
}

// prefetch searches every distinct term across windows with bounded
// parallelism. Failures are cached so the serial pass treats them as misses
// without searching again.
func (c *searchCache) prefetch(ctx context.Context, r *Resolver, windows []QueryWindow, orientation Orientation, limit int) error {
	seen := make(map[string]struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, w := range windows {
		for _, term := range w.Terms {
			key := cacheKey(term, orientation)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			g.Go(func() error {
				clips, err := r.search(gctx, term, orientation)
				if err != nil && gctx.Err() != nil {
					return gctx.Err()
				}
				c.mu.Lock()
				c.results[key] = cachedSearch{clips: clips, err: err}
				c.mu.Unlock()
				return nil
			})
		}
	}
	return g.Wait()
}
