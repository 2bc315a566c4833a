package clips

import (
	"fmt"
	"strings"
)

// Orientation selects the target aspect ratio for footage.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
)

// ParseOrientation accepts "landscape" or "portrait" in any case.
func ParseOrientation(value string) (Orientation, error) {
	switch o := Orientation(strings.ToLower(strings.TrimSpace(value))); o {
	case Landscape, Portrait:
		return o, nil
	case "":
		return Landscape, nil
	default:
		return "", fmt.Errorf("unknown orientation %q", value)
	}
}

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// CaptionSegment is one timed caption from the narration.
type CaptionSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TotalDuration returns the end of the last caption, or zero for no captions.
func TotalDuration(captions []CaptionSegment) float64 {
	var total float64
	for _, c := range captions {
		if c.End > total {
			total = c.End
		}
	}
	return total
}

// QueryWindow is a time range paired with the search terms describing what
// should be on screen during it.
type QueryWindow struct {
	Start float64  `json:"start"`
	End   float64  `json:"end"`
	Terms []string `json:"terms"`
}

func (w QueryWindow) Duration() float64 { return w.End - w.Start }

func (w QueryWindow) String() string {
	return fmt.Sprintf("[%.2f-%.2f]", w.Start, w.End)
}

// CandidateClip is one footage option returned by the provider. Dimension,
// duration and variant fields are optional because providers omit them; the
// resolver skips candidates that lack what it needs.
type CandidateClip struct {
	ID       int64
	PageURL  string
	Width    *int
	Height   *int
	Duration *float64
	Variants []ClipVariant
}

// ClipVariant is one downloadable rendition of a candidate.
type ClipVariant struct {
	Link    string
	Quality string
	Width   *int
	Height  *int
}

// MediaSource records where a timeline entry's footage came from.
type MediaSource string

const (
	SourceStock     MediaSource = "stock"
	SourceGenerated MediaSource = "generated"
)

// MediaRef points at footage for one timeline entry: a URL for stock clips,
// a local file path for generated ones.
type MediaRef struct {
	URI    string      `json:"uri"`
	Source MediaSource `json:"source"`
}

// TimelineEntry is one interval of the final video. A nil Media marks a
// window that is still waiting for gap repair.
type TimelineEntry struct {
	Start float64   `json:"start"`
	End   float64   `json:"end"`
	Media *MediaRef `json:"media"`
}

func (e TimelineEntry) Duration() float64 { return e.End - e.Start }

// Resolved reports whether the entry has footage.
func (e TimelineEntry) Resolved() bool { return e.Media != nil && e.Media.URI != "" }
