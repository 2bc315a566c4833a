package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable. Credentials are not checked
// here; preflight reports missing keys so `config init` and `status` keep
// working on a fresh install.
func (c *Config) Validate() error {
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateClips(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProviders() error {
	switch c.LLM.Provider {
	case LLMProviderOpenRouter, LLMProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider must be %q or %q", LLMProviderOpenRouter, LLMProviderOpenAI)
	}
	switch c.ImageGen.Backend {
	case ImageBackendSDWebUI, ImageBackendOpenAI:
	default:
		return fmt.Errorf("imagegen.backend must be %q or %q", ImageBackendSDWebUI, ImageBackendOpenAI)
	}
	if c.Render.FontSize <= 0 {
		return errors.New("render.font_size must be positive")
	}
	return nil
}

func (c *Config) validateClips() error {
	cfg := c.Clips
	switch cfg.Source {
	case ClipSourceStock, ClipSourceGenerated:
	default:
		return fmt.Errorf("clips.source must be %q or %q", ClipSourceStock, ClipSourceGenerated)
	}
	switch cfg.Orientation {
	case OrientationLandscape, OrientationPortrait:
	default:
		return fmt.Errorf("clips.orientation must be %q or %q", OrientationLandscape, OrientationPortrait)
	}
	if cfg.PageSize <= 0 || cfg.PageSize > maxPexelsPageSize {
		return fmt.Errorf("clips.page_size must be between 1 and %d", maxPexelsPageSize)
	}
	if cfg.TargetClipSeconds <= 0 {
		return errors.New("clips.target_clip_seconds must be positive")
	}
	if cfg.MinWindowGapSeconds < 0 {
		return errors.New("clips.min_window_gap_seconds must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"clips.min_landscape_width":  cfg.MinLandscapeWidth,
		"clips.min_landscape_height": cfg.MinLandscapeHeight,
		"clips.min_portrait_width":   cfg.MinPortraitWidth,
		"clips.min_portrait_height":  cfg.MinPortraitHeight,
		"clips.max_attempts":         cfg.MaxAttempts,
		"clips.frame_rate":           cfg.FrameRate,
	})
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"render.timeout_seconds":        c.Render.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
