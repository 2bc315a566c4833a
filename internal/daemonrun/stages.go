package daemonrun

import (
	"log/slog"
	"strings"

	"scenecast/internal/clips"
	"scenecast/internal/config"
	"scenecast/internal/footage"
	"scenecast/internal/narration"
	"scenecast/internal/queue"
	"scenecast/internal/render"
	"scenecast/internal/scripting"
	"scenecast/internal/services/edgetts"
	"scenecast/internal/services/llm"
	"scenecast/internal/services/openai"
	"scenecast/internal/services/pexels"
	"scenecast/internal/services/sdwebui"
	"scenecast/internal/services/whisperx"
	"scenecast/internal/workflow"
)

// BuildStages wires the four pipeline stages from configuration. Missing
// credentials do not fail construction; the stage health checks and
// preflight report them instead.
func BuildStages(cfg *config.Config, store *queue.Store, logger *slog.Logger) workflow.StageSet {
	completer := llm.FromConfig(cfg)

	speaker := edgetts.NewService(cfg.UVXBinary(), cfg.TTS.Rate)
	aligner := whisperx.NewService(whisperx.Config{
		Model:       cfg.WhisperX.Model,
		Language:    cfg.WhisperX.Language,
		CUDAEnabled: cfg.WhisperX.CUDAEnabled,
	}, cfg.UVXBinary(), cfg.FFmpegBinary())

	return workflow.StageSet{
		Scripter: scripting.NewHandler(scripting.NewGenerator(completer), store, logger),
		Narrator: narration.NewHandler(cfg, speaker, aligner, nil, logger),
		Footage: footage.NewHandler(cfg,
			footage.NewExtractor(completer),
			footageSearcher(cfg),
			imageGenerator(cfg),
			render.NewFrameEncoder(cfg, logger),
			logger,
		),
		Renderer: render.NewHandler(cfg, render.NewComposer(cfg, logger), logger),
	}
}

// footageSearcher returns nil without a Pexels key so items that ask for
// stock footage land in review with a configuration error.
func footageSearcher(cfg *config.Config) clips.FootageSearcher {
	if strings.TrimSpace(cfg.Pexels.APIKey) == "" {
		return nil
	}
	return pexels.NewClient(pexels.Config{
		APIKey:         cfg.Pexels.APIKey,
		BaseURL:        cfg.Pexels.BaseURL,
		TimeoutSeconds: cfg.Pexels.TimeoutSeconds,
	})
}

func imageGenerator(cfg *config.Config) clips.ImageGenerator {
	switch cfg.ImageGen.Backend {
	case config.ImageBackendOpenAI:
		if strings.TrimSpace(cfg.ImageGen.APIKey) == "" {
			return nil
		}
		return openai.NewClient(openai.Config{
			APIKey:         cfg.ImageGen.APIKey,
			BaseURL:        cfg.ImageGen.BaseURL,
			ImageModel:     cfg.ImageGen.Model,
			TimeoutSeconds: cfg.ImageGen.TimeoutSeconds,
		})
	default:
		return sdwebui.NewClient(sdwebui.Config{
			BaseURL:        cfg.ImageGen.BaseURL,
			Steps:          cfg.ImageGen.Steps,
			TimeoutSeconds: cfg.ImageGen.TimeoutSeconds,
		})
	}
}
