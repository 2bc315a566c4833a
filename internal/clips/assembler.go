package clips

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"scenecast/internal/logging"
)

// Assembler drives the resolver and synthesizer over every window and
// repairs the result into a gapless timeline.
type Assembler struct {
	resolver    *Resolver
	synthesizer *Synthesizer
	opts        Options
	logger      *slog.Logger
}

// NewAssembler wires the engine. A nil resolver sends every window to the
// synthesizer; a nil synthesizer leaves stock misses for gap repair.
func NewAssembler(resolver *Resolver, synthesizer *Synthesizer, opts Options, logger *slog.Logger) *Assembler {
	return &Assembler{
		resolver:    resolver,
		synthesizer: synthesizer,
		opts:        opts.withDefaults(),
		logger:      logging.NewComponentLogger(logger, "timeline-assembler"),
	}
}

// Assemble resolves windows (sorted, non-overlapping) into a timeline that
// covers [0, total) with footage on every entry. A non-positive total uses
// the end of the last window.
func (a *Assembler) Assemble(ctx context.Context, windows []QueryWindow, total float64, orientation Orientation) ([]TimelineEntry, error) {
	logger := logging.WithContext(ctx, a.logger)
	if len(windows) == 0 {
		return nil, &MalformedWindowError{Index: -1, Reason: "no windows to assemble"}
	}

	used := NewUsedMediaSet()
	entries := make([]TimelineEntry, len(windows))
	for i, w := range windows {
		entries[i] = TimelineEntry{Start: w.Start, End: w.End}
	}

	if a.resolver != nil {
		var cache *searchCache
		if a.opts.Concurrency > 1 {
			cache = newSearchCache()
			if err := cache.prefetch(ctx, a.resolver, windows, orientation, a.opts.Concurrency); err != nil {
				span := QueryWindow{Start: windows[0].Start, End: windows[len(windows)-1].End}
				return nil, windowError(span, fmt.Errorf("prefetch stock footage: %w", err))
			}
		}
		// Selection stays serial so claims happen in timeline order.
		for i, w := range windows {
			ref, ok, err := a.resolver.resolve(ctx, w, orientation, used, cache)
			if err != nil {
				return nil, err
			}
			if ok {
				entries[i].Media = &ref
			}
		}
	}

	if a.synthesizer != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.opts.Concurrency)
		for i, w := range windows {
			if entries[i].Media != nil {
				continue
			}
			g.Go(func() error {
				ref, ok, err := a.synthesizer.Synthesize(gctx, w, orientation)
				if err != nil {
					return err
				}
				if ok {
					entries[i].Media = &ref
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var stock, generated, missing int
	for _, e := range entries {
		switch {
		case e.Media == nil:
			missing++
		case e.Media.Source == SourceGenerated:
			generated++
		default:
			stock++
		}
	}

	repaired, err := RepairGaps(entries, total)
	if err != nil {
		logging.ErrorWithContext(logger, "no window produced footage", "no_usable_media",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "try a different topic or enable image generation"),
		)
		return nil, err
	}
	if missing > 0 {
		logger.Info("gaps repaired by stretching neighbouring footage", logging.Args(append(
			logging.DecisionAttrs("gap_repair", "stretched", "unresolved windows absorbed"),
			logging.Int("unresolved", missing),
			logging.String(logging.FieldEventType, "gap_repaired"),
		)...)...)
	}
	logger.Info("timeline assembled",
		logging.Int("windows", len(windows)),
		logging.Int("entries", len(repaired)),
		logging.Int("stock", stock),
		logging.Int("generated", generated),
		logging.Int("unresolved", missing),
	)
	return repaired, nil
}

// RepairGaps removes unresolved entries and closes every hole so the result
// covers [0, total) contiguously:
//   - an unresolved run, or a gap between entries, extends the preceding
//     resolved entry forward;
//   - a leading run or gap lowers the first resolved entry's start to 0;
//   - the last resolved entry is extended to total.
//
// Entries must be sorted and non-overlapping. If nothing is resolved it
// returns NoUsableMediaError.
func RepairGaps(entries []TimelineEntry, total float64) ([]TimelineEntry, error) {
	out := make([]TimelineEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Resolved() {
			if n := len(out); n > 0 && e.End > out[n-1].End {
				out[n-1].End = e.End
			}
			continue
		}
		if n := len(out); n == 0 {
			e.Start = 0
		} else {
			prev := &out[n-1]
			if e.Start > prev.End {
				prev.End = e.Start
			}
			e.Start = prev.End
			if e.End <= e.Start {
				continue
			}
		}
		out = append(out, e)
	}

	if len(out) == 0 {
		nu := &NoUsableMediaError{Windows: len(entries), End: total}
		if len(entries) > 0 {
			nu.Start = entries[0].Start
			if total <= 0 {
				nu.End = entries[len(entries)-1].End
			}
		}
		return nil, nu
	}
	if last := &out[len(out)-1]; total > last.End {
		last.End = total
	}
	return out, nil
}
