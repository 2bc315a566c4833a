package config

// Recognised enum values.
const (
	LLMProviderOpenRouter = "openrouter"
	LLMProviderOpenAI     = "openai"

	ImageBackendSDWebUI = "sdwebui"
	ImageBackendOpenAI  = "openai"

	ClipSourceStock     = "stock"
	ClipSourceGenerated = "generated"

	OrientationLandscape = "landscape"
	OrientationPortrait  = "portrait"
)

const (
	defaultConfigPath            = "~/.config/scenecast/config.toml"
	defaultWorkDir               = "~/.local/share/scenecast/work"
	defaultOutputDir             = "~/Videos/scenecast"
	defaultLogDir                = "~/.local/share/scenecast/logs"
	defaultAPIBind               = "127.0.0.1:7495"
	defaultOpenRouterBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenAIBaseURL         = "https://api.openai.com/v1"
	defaultOpenRouterModel       = "openai/gpt-4o-mini"
	defaultOpenAIModel           = "gpt-4o-mini"
	defaultLLMReferer            = "https://github.com/scenecast/scenecast"
	defaultLLMTitle              = "scenecast"
	defaultLLMTimeoutSeconds     = 90
	defaultPexelsBaseURL         = "https://api.pexels.com"
	defaultPexelsTimeoutSeconds  = 20
	defaultSDWebUIBaseURL        = "http://127.0.0.1:7860"
	defaultOpenAIImageModel      = "dall-e-3"
	defaultImageSteps            = 25
	defaultImageTimeoutSeconds   = 180
	defaultTTSVoice              = "en-US-GuyNeural"
	defaultTTSTimeoutSeconds     = 300
	defaultWhisperXModel         = "large-v3-turbo"
	defaultWhisperXLanguage      = "en"
	defaultMaxCaptionChars       = 15
	defaultWhisperXTimeout       = 900
	defaultPageSize              = 15
	defaultTargetClipSeconds     = 15
	defaultMinLandscapeWidth     = 1920
	defaultMinLandscapeHeight    = 1080
	defaultMinPortraitWidth      = 1080
	defaultMinPortraitHeight     = 1920
	defaultMaxAttempts           = 3
	defaultRetryBaseMillis       = 500
	defaultRetryMaxMillis        = 5000
	defaultFrameRate             = 30
	defaultClipConcurrency       = 1
	defaultVideoCodec            = "libx264"
	defaultAudioCodec            = "aac"
	defaultPreset                = "veryfast"
	defaultFontSize              = 48
	defaultRenderTimeoutSeconds  = 1800
	defaultNotifyRequestTimeout  = 10
	defaultQueuePollInterval     = 5
	defaultHeartbeatInterval     = 15
	defaultHeartbeatTimeout      = 120
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	maxPexelsPageSize            = 80
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		LLM: LLM{
			Provider:       LLMProviderOpenRouter,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Pexels: Pexels{
			BaseURL:        defaultPexelsBaseURL,
			TimeoutSeconds: defaultPexelsTimeoutSeconds,
		},
		ImageGen: ImageGen{
			Backend:        ImageBackendSDWebUI,
			Steps:          defaultImageSteps,
			TimeoutSeconds: defaultImageTimeoutSeconds,
		},
		TTS: TTS{
			Voice:          defaultTTSVoice,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		WhisperX: WhisperX{
			Model:           defaultWhisperXModel,
			Language:        defaultWhisperXLanguage,
			MaxCaptionChars: defaultMaxCaptionChars,
			TimeoutSeconds:  defaultWhisperXTimeout,
		},
		Clips: Clips{
			Source:             ClipSourceStock,
			Orientation:        OrientationLandscape,
			PageSize:           defaultPageSize,
			TargetClipSeconds:  defaultTargetClipSeconds,
			MinLandscapeWidth:  defaultMinLandscapeWidth,
			MinLandscapeHeight: defaultMinLandscapeHeight,
			MinPortraitWidth:   defaultMinPortraitWidth,
			MinPortraitHeight:  defaultMinPortraitHeight,
			MaxAttempts:        defaultMaxAttempts,
			RetryBaseMillis:    defaultRetryBaseMillis,
			RetryMaxMillis:     defaultRetryMaxMillis,
			FrameRate:          defaultFrameRate,
			Concurrency:        defaultClipConcurrency,
		},
		Render: Render{
			VideoCodec:     defaultVideoCodec,
			AudioCodec:     defaultAudioCodec,
			Preset:         defaultPreset,
			BurnCaptions:   true,
			FontSize:       defaultFontSize,
			TimeoutSeconds: defaultRenderTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Failed:         true,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
