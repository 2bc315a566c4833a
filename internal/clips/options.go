package clips

import "time"

// Options tunes the clip assignment engine. The zero value is not useful;
// start from DefaultOptions.
type Options struct {
	// PageSize is the number of candidates requested per search term.
	PageSize int
	// TargetClipSeconds is the duration candidates are ranked against.
	TargetClipSeconds float64
	// LandscapeFloor and PortraitFloor are the minimum candidate sizes. The
	// floor is also the exact variant resolution that gets selected.
	LandscapeFloor Resolution
	PortraitFloor  Resolution
	// MaxAttempts bounds provider and generation calls per term.
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// MinWindowGap merges adjacent windows separated by less than this many
	// seconds. Overlapping windows always merge.
	MinWindowGap float64
	FrameRate    int
	// Concurrency above one prefetches searches and synthesizes fallback
	// clips in parallel. Selection itself always runs in window order.
	Concurrency int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		PageSize:          15,
		TargetClipSeconds: 15,
		LandscapeFloor:    Resolution{Width: 1920, Height: 1080},
		PortraitFloor:     Resolution{Width: 1080, Height: 1920},
		MaxAttempts:       3,
		RetryBaseDelay:    500 * time.Millisecond,
		RetryMaxDelay:     5 * time.Second,
		FrameRate:         30,
		Concurrency:       1,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PageSize <= 0 {
		o.PageSize = def.PageSize
	}
	if o.TargetClipSeconds <= 0 {
		o.TargetClipSeconds = def.TargetClipSeconds
	}
	if o.LandscapeFloor.Width <= 0 || o.LandscapeFloor.Height <= 0 {
		o.LandscapeFloor = def.LandscapeFloor
	}
	if o.PortraitFloor.Width <= 0 || o.PortraitFloor.Height <= 0 {
		o.PortraitFloor = def.PortraitFloor
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	if o.RetryBaseDelay < 0 {
		o.RetryBaseDelay = 0
	}
	if o.RetryMaxDelay < o.RetryBaseDelay {
		o.RetryMaxDelay = o.RetryBaseDelay
	}
	if o.MinWindowGap < 0 {
		o.MinWindowGap = 0
	}
	if o.FrameRate <= 0 {
		o.FrameRate = def.FrameRate
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	return o
}

// Target returns the exact resolution selected for an orientation.
func (o Options) Target(orientation Orientation) Resolution {
	if orientation == Portrait {
		return o.PortraitFloor
	}
	return o.LandscapeFloor
}
