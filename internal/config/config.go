package config

import (
	"fmt"
	"path/filepath"
)

// Paths locates scratch files, finished videos and logs (the queue
// database and daemon lock live in LogDir).
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// LLM contains the language model connection used for scripts and search windows.
type LLM struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pexels contains the stock footage provider settings.
type Pexels struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ImageGen contains the fallback image generation backend settings.
type ImageGen struct {
	Backend        string `toml:"backend"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Steps          int    `toml:"steps"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains narration settings. Voice is passed to edge-tts verbatim.
type TTS struct {
	Voice          string `toml:"voice"`
	Rate           string `toml:"rate"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// WhisperX contains caption timing settings.
type WhisperX struct {
	Model           string `toml:"model"`
	Language        string `toml:"language"`
	CUDAEnabled     bool   `toml:"cuda_enabled"`
	MaxCaptionChars int    `toml:"max_caption_chars"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Clips contains the clip assignment engine knobs.
type Clips struct {
	// Source selects "stock" (provider first, generation on miss) or
	// "generated" (generation for every window).
	Source              string  `toml:"source"`
	Orientation         string  `toml:"orientation"`
	PageSize            int     `toml:"page_size"`
	TargetClipSeconds   float64 `toml:"target_clip_seconds"`
	MinLandscapeWidth   int     `toml:"min_landscape_width"`
	MinLandscapeHeight  int     `toml:"min_landscape_height"`
	MinPortraitWidth    int     `toml:"min_portrait_width"`
	MinPortraitHeight   int     `toml:"min_portrait_height"`
	MaxAttempts         int     `toml:"max_attempts"`
	RetryBaseMillis     int     `toml:"retry_base_ms"`
	RetryMaxMillis      int     `toml:"retry_max_ms"`
	MinWindowGapSeconds float64 `toml:"min_window_gap_seconds"`
	FrameRate           int     `toml:"frame_rate"`
	Concurrency         int     `toml:"concurrency"`
}

// Render contains final composition settings.
type Render struct {
	VideoCodec     string `toml:"video_codec"`
	AudioCodec     string `toml:"audio_codec"`
	Preset         string `toml:"preset"`
	BurnCaptions   bool   `toml:"burn_captions"`
	FontSize       int    `toml:"font_size"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications enables ntfy pushes when NtfyTopic is set.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Failed         bool   `toml:"failed"`
}

// Workflow holds daemon timings, all in seconds.
type Workflow struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
	HeartbeatInterval int `toml:"heartbeat_interval"`
	HeartbeatTimeout  int `toml:"heartbeat_timeout"`
}

// Logging selects "console" or "json" output and the minimum level.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the parsed scenecast.toml. One section per pipeline concern;
// Load fills every unset value from defaults.go.
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Pexels        Pexels        `toml:"pexels"`
	ImageGen      ImageGen      `toml:"imagegen"`
	TTS           TTS           `toml:"tts"`
	WhisperX      WhisperX      `toml:"whisperx"`
	Clips         Clips         `toml:"clips"`
	Render        Render        `toml:"render"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// ItemWorkDir returns the scratch directory for one queue item.
func (c *Config) ItemWorkDir(itemID int64) string {
	return filepath.Join(c.Paths.WorkDir, fmt.Sprintf("item-%d", itemID))
}

// FFmpegBinary, FFprobeBinary and UVXBinary name the external tools. They
// are resolved on PATH.
func (c *Config) FFmpegBinary() string  { return "ffmpeg" }
func (c *Config) FFprobeBinary() string { return "ffprobe" }
func (c *Config) UVXBinary() string     { return "uvx" }

// UsesStockFootage reports whether footage comes from Pexels first.
func (c *Config) UsesStockFootage() bool {
	return c.Clips.Source == ClipSourceStock
}
