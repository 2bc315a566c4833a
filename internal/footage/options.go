package footage

import (
	"time"

	"scenecast/internal/clips"
	"scenecast/internal/config"
)

// OptionsFromConfig maps the [clips] section onto engine options. Zero
// values fall through to clips defaults.
func OptionsFromConfig(cfg *config.Config) clips.Options {
	opts := clips.DefaultOptions()
	if cfg == nil {
		return opts
	}
	c := cfg.Clips
	if c.PageSize > 0 {
		opts.PageSize = c.PageSize
	}
	if c.TargetClipSeconds > 0 {
		opts.TargetClipSeconds = c.TargetClipSeconds
	}
	if c.MinLandscapeWidth > 0 && c.MinLandscapeHeight > 0 {
		opts.LandscapeFloor = clips.Resolution{Width: c.MinLandscapeWidth, Height: c.MinLandscapeHeight}
	}
	if c.MinPortraitWidth > 0 && c.MinPortraitHeight > 0 {
		opts.PortraitFloor = clips.Resolution{Width: c.MinPortraitWidth, Height: c.MinPortraitHeight}
	}
	if c.MaxAttempts > 0 {
		opts.MaxAttempts = c.MaxAttempts
	}
	if c.RetryBaseMillis >= 0 {
		opts.RetryBaseDelay = time.Duration(c.RetryBaseMillis) * time.Millisecond
	}
	if c.RetryMaxMillis >= 0 {
		opts.RetryMaxDelay = time.Duration(c.RetryMaxMillis) * time.Millisecond
	}
	opts.MinWindowGap = c.MinWindowGapSeconds
	if c.FrameRate > 0 {
		opts.FrameRate = c.FrameRate
	}
	if c.Concurrency > 0 {
		opts.Concurrency = c.Concurrency
	}
	return opts
}
