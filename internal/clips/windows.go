package clips

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"scenecast/internal/logging"
)

// boundsEpsilon is half the 0.01s resolution captions are shown to the
// extractor at; bounds within it of the timeline are clamped, not rejected.
const boundsEpsilon = 0.005

// WindowExtractor turns a script and its caption timing into candidate query
// windows. Its output is untrusted.
type WindowExtractor interface {
	ExtractQueryWindows(ctx context.Context, script string, captions []CaptionSegment) ([]QueryWindow, error)
}

// Builder validates and normalizes extractor output into query windows.
type Builder struct {
	extractor WindowExtractor
	minGap    float64
	logger    *slog.Logger
}

func NewBuilder(extractor WindowExtractor, opts Options, logger *slog.Logger) *Builder {
	return &Builder{
		extractor: extractor,
		minGap:    opts.withDefaults().MinWindowGap,
		logger:    logging.NewComponentLogger(logger, "window-builder"),
	}
}

// Build asks the extractor for windows and normalizes them against total.
// A non-positive total falls back to the end of the last caption.
func (b *Builder) Build(ctx context.Context, script string, captions []CaptionSegment, total float64) ([]QueryWindow, error) {
	if total <= 0 {
		total = TotalDuration(captions)
	}
	raw, err := b.extractor.ExtractQueryWindows(ctx, script, captions)
	if err != nil {
		return nil, fmt.Errorf("extract query windows: %w", err)
	}
	windows, err := NormalizeWindows(raw, total, b.minGap)
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, b.logger).Info("query windows built",
		logging.Int("extracted", len(raw)),
		logging.Int("windows", len(windows)),
		logging.Float64("total_seconds", total),
	)
	return windows, nil
}

// NormalizeWindows rejects windows outside [0, total] or with no length,
// sorts the rest by start and merges neighbours whose gap is below minGap.
// Merged windows keep both term lists in order, duplicates included.
func NormalizeWindows(windows []QueryWindow, total float64, minGap float64) ([]QueryWindow, error) {
	if len(windows) == 0 {
		return nil, &MalformedWindowError{Index: -1, Reason: "extractor returned no windows"}
	}
	if total <= 0 {
		return nil, &MalformedWindowError{Index: -1, Reason: "timeline has no duration"}
	}

	cleaned := make([]QueryWindow, 0, len(windows))
	for i, w := range windows {
		if math.IsNaN(w.Start) || math.IsNaN(w.End) {
			return nil, &MalformedWindowError{Index: i, Start: w.Start, End: w.End, Reason: "bounds are not numbers"}
		}
		if w.Start < -boundsEpsilon || w.End > total+boundsEpsilon {
			return nil, &MalformedWindowError{Index: i, Start: w.Start, End: w.End,
				Reason: fmt.Sprintf("bounds outside [0, %.2f]", total)}
		}
		start := math.Max(w.Start, 0)
		end := math.Min(w.End, total)
		if end <= start {
			return nil, &MalformedWindowError{Index: i, Start: w.Start, End: w.End, Reason: "end is not after start"}
		}
		cleaned = append(cleaned, QueryWindow{Start: start, End: end, Terms: cleanTerms(w.Terms)})
	}

	sort.SliceStable(cleaned, func(i, j int) bool { return cleaned[i].Start < cleaned[j].Start })

	merged := make([]QueryWindow, 0, len(cleaned))
	for _, w := range cleaned {
		if n := len(merged); n > 0 && w.Start-merged[n-1].End < minGap {
			prev := &merged[n-1]
			prev.End = math.Max(prev.End, w.End)
			prev.Terms = append(prev.Terms, w.Terms...)
			continue
		}
		merged = append(merged, w)
	}
	return merged, nil
}

func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
