package whisperx

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Word is one aligned word. WhisperX leaves timings off tokens it cannot
// align, such as digits.
type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Score *float64 `json:"score,omitempty"`
}

// Segment is one sentence of the transcript.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

// LoadSegments reads a WhisperX JSON transcript.
func LoadSegments(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var transcript struct {
		Segments []Segment `json:"segments"`
	}
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return transcript.Segments, nil
}

// TimedWords flattens segments and fills in missing timings: an unaligned
// word starts where the previous word ended and ends where the next aligned
// word starts. Blank tokens are dropped; spoken text never is.
func TimedWords(segments []Segment) []Word {
	var spoken []Word
	for _, seg := range segments {
		for _, w := range seg.Words {
			if text := strings.TrimSpace(w.Word); text != "" {
				w.Word = text
				spoken = append(spoken, w)
			}
		}
	}

	var prevEnd float64
	for i := range spoken {
		w := &spoken[i]
		start := prevEnd
		if w.Start != nil {
			start = *w.Start
		}
		end := nextStart(spoken[i+1:], start)
		if w.End != nil {
			end = *w.End
		}
		end = max(end, start)
		w.Start, w.End = &start, &end
		prevEnd = end
	}
	return spoken
}

func nextStart(rest []Word, fallback float64) float64 {
	for _, w := range rest {
		if w.Start != nil {
			return *w.Start
		}
	}
	return fallback
}
