package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizePexels()
	c.normalizeImageGen()
	c.normalizeSpeech()
	c.normalizeClips()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = LLMProviderOpenRouter
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)

	switch c.LLM.Provider {
	case LLMProviderOpenAI:
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = lookupEnv("OPENAI_API_KEY")
		}
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultOpenAIBaseURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultOpenAIModel
		}
	default:
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = lookupEnv("OPENROUTER_API_KEY")
		}
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultOpenRouterBaseURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultOpenRouterModel
		}
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizePexels() {
	c.Pexels.APIKey = strings.TrimSpace(c.Pexels.APIKey)
	if c.Pexels.APIKey == "" {
		c.Pexels.APIKey = lookupEnv("PEXELS_KEY", "PEXELS_API_KEY")
	}
	c.Pexels.BaseURL = strings.TrimRight(strings.TrimSpace(c.Pexels.BaseURL), "/")
	if c.Pexels.BaseURL == "" {
		c.Pexels.BaseURL = defaultPexelsBaseURL
	}
	if c.Pexels.TimeoutSeconds <= 0 {
		c.Pexels.TimeoutSeconds = defaultPexelsTimeoutSeconds
	}
}

func (c *Config) normalizeImageGen() {
	c.ImageGen.Backend = strings.ToLower(strings.TrimSpace(c.ImageGen.Backend))
	if c.ImageGen.Backend == "" {
		c.ImageGen.Backend = ImageBackendSDWebUI
	}
	c.ImageGen.BaseURL = strings.TrimRight(strings.TrimSpace(c.ImageGen.BaseURL), "/")
	c.ImageGen.APIKey = strings.TrimSpace(c.ImageGen.APIKey)
	c.ImageGen.Model = strings.TrimSpace(c.ImageGen.Model)
	switch c.ImageGen.Backend {
	case ImageBackendOpenAI:
		if c.ImageGen.APIKey == "" {
			c.ImageGen.APIKey = lookupEnv("OPENAI_API_KEY")
		}
		if c.ImageGen.BaseURL == "" {
			c.ImageGen.BaseURL = defaultOpenAIBaseURL
		}
		if c.ImageGen.Model == "" {
			c.ImageGen.Model = defaultOpenAIImageModel
		}
	default:
		if c.ImageGen.BaseURL == "" {
			c.ImageGen.BaseURL = defaultSDWebUIBaseURL
		}
	}
	if c.ImageGen.Steps <= 0 {
		c.ImageGen.Steps = defaultImageSteps
	}
	if c.ImageGen.TimeoutSeconds <= 0 {
		c.ImageGen.TimeoutSeconds = defaultImageTimeoutSeconds
	}
}

func (c *Config) normalizeSpeech() {
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
	c.TTS.Rate = strings.TrimSpace(c.TTS.Rate)
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}

	c.WhisperX.Model = strings.TrimSpace(c.WhisperX.Model)
	if c.WhisperX.Model == "" {
		c.WhisperX.Model = defaultWhisperXModel
	}
	c.WhisperX.Language = strings.ToLower(strings.TrimSpace(c.WhisperX.Language))
	if c.WhisperX.MaxCaptionChars <= 0 {
		c.WhisperX.MaxCaptionChars = defaultMaxCaptionChars
	}
	if c.WhisperX.TimeoutSeconds <= 0 {
		c.WhisperX.TimeoutSeconds = defaultWhisperXTimeout
	}
}

func (c *Config) normalizeClips() {
	c.Clips.Source = strings.ToLower(strings.TrimSpace(c.Clips.Source))
	if c.Clips.Source == "" {
		c.Clips.Source = ClipSourceStock
	}
	c.Clips.Orientation = strings.ToLower(strings.TrimSpace(c.Clips.Orientation))
	if c.Clips.Orientation == "" {
		c.Clips.Orientation = OrientationLandscape
	}
	if c.Clips.RetryBaseMillis <= 0 {
		c.Clips.RetryBaseMillis = defaultRetryBaseMillis
	}
	if c.Clips.RetryMaxMillis < c.Clips.RetryBaseMillis {
		c.Clips.RetryMaxMillis = c.Clips.RetryBaseMillis
	}
	if c.Clips.Concurrency <= 0 {
		c.Clips.Concurrency = defaultClipConcurrency
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
