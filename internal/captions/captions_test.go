package captions

import (
	"bytes"
	"testing"

	"scenecast/internal/clips"
)

func TestFromWordsGroupsByLength(t *testing.T) {
	words := []Word{
		{Text: "Honey", Start: 0, End: 0.4},
		{Text: "never", Start: 0.45, End: 0.8},
		{Text: "spoils", Start: 0.85, End: 1.3},
		{Text: "archaeologists", Start: 1.4, End: 2.2},
		{Text: "", Start: 2.2, End: 2.3},
		{Text: "agree", Start: 2.3, End: 2.7},
	}
	got := FromWords(words, 15)
	want := []clips.CaptionSegment{
		{Start: 0, End: 0.8, Text: "Honey never"},
		{Start: 0.85, End: 1.3, Text: "spoils"},
		{Start: 1.4, End: 2.2, Text: "archaeologists"},
		{Start: 2.3, End: 2.7, Text: "agree"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d segments, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segment %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFromWordsCountsCharactersNotBytes(t *testing.T) {
	// "über café" is nine characters but eleven bytes.
	got := FromWords([]Word{
		{Text: "über", Start: 0, End: 0.5},
		{Text: "café", Start: 0.5, End: 1},
		{Text: "naïve", Start: 1, End: 1.5},
	}, 10)
	if len(got) != 2 || got[0].Text != "über café" || got[1].Text != "naïve" {
		t.Fatalf("unexpected grouping: %+v", got)
	}
}

func TestFromWordsRepairsDegenerateTimings(t *testing.T) {
	got := FromWords([]Word{
		{Text: "supercalifragilistic", Start: 1, End: 1},
		{Text: "overlapping", Start: 0.5, End: 2},
	}, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %+v", got)
	}
	for i, seg := range got {
		if seg.End <= seg.Start {
			t.Fatalf("segment %d has no length: %+v", i, seg)
		}
		if i > 0 && seg.Start < got[i-1].End {
			t.Fatalf("segment %d overlaps previous: %+v", i, got)
		}
	}
}

func TestWriteSRT(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSRT(&buf, []clips.CaptionSegment{
		{Start: 0, End: 1.5, Text: "Hello there"},
		{Start: 3661.25, End: 3662, Text: "later"},
	})
	if err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello there\n\n2\n01:01:01,250 --> 01:01:02,000\nlater\n\n"
	if buf.String() != want {
		t.Fatalf("unexpected srt:\n%q\nwant\n%q", buf.String(), want)
	}
}
