package captions

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"scenecast/internal/clips"
)

// DefaultMaxChars matches short-form caption styling: a few words at a time.
const DefaultMaxChars = 15

// minSegment keeps degenerate word timings from producing empty captions.
const minSegment = 0.01

// Word is one spoken word with its time range in seconds.
type Word struct {
	Text  string
	Start float64
	End   float64
}

// FromWords groups consecutive words into captions of at most maxChars
// characters including spaces. A word longer than maxChars gets a caption
// of its own. The result is ordered, non-overlapping and every segment has
// End > Start.
func FromWords(words []Word, maxChars int) []clips.CaptionSegment {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	var (
		out     []clips.CaptionSegment
		current clips.CaptionSegment
		width   int
		open    bool
		prevEnd float64
	)
	flush := func() {
		if !open {
			return
		}
		current.Start = math.Max(current.Start, prevEnd)
		if current.End < current.Start+minSegment {
			current.End = current.Start + minSegment
		}
		out = append(out, current)
		prevEnd = current.End
		open = false
	}

	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		n := utf8.RuneCountInString(text)
		if open && width+1+n <= maxChars {
			current.Text += " " + text
			current.End = math.Max(current.End, w.End)
			width += 1 + n
			continue
		}
		flush()
		current = clips.CaptionSegment{Start: w.Start, End: w.End, Text: text}
		width = n
		open = true
	}
	flush()
	return out
}

// WriteSRT writes segments in SubRip format.
func WriteSRT(w io.Writer, segments []clips.CaptionSegment) error {
	bw := bufio.NewWriter(w)
	for i, seg := range segments {
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", i+1, formatTimestamp(seg.Start), formatTimestamp(seg.End), seg.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	total /= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", total/3600, (total/60)%60, total%60, ms)
}

// Text joins caption text, the form the window extractor prompt uses.
func Text(segments []clips.CaptionSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}
