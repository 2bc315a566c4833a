package preflight

import (
	"context"
	"strings"

	"scenecast/internal/config"
)

// CheckLLMFromConfig evaluates the configured LLM. OpenRouter is pinged;
// the OpenAI provider only has its key checked because the SDK has no
// lightweight probe that avoids billing.
func CheckLLMFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "LLM"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	settings := cfg.LLM
	if settings.Provider == config.LLMProviderOpenAI {
		return CheckCredential(name, settings.APIKey, "set llm.api_key or OPENAI_API_KEY")
	}
	return CheckLLM(ctx, name, settings)
}

// CheckImageBackendFromConfig evaluates the fallback image generator.
func CheckImageBackendFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Image generation"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	switch strings.TrimSpace(cfg.ImageGen.Backend) {
	case config.ImageBackendOpenAI:
		return CheckCredential(name, cfg.ImageGen.APIKey, "set imagegen.api_key or OPENAI_API_KEY")
	default:
		check := CheckSDWebUI(ctx, cfg.ImageGen.BaseURL)
		check.Name = name
		return check
	}
}

// CheckPexelsFromConfig reports the stock footage credential, or that stock
// footage is disabled.
func CheckPexelsFromConfig(cfg *config.Config) Result {
	const name = "Pexels"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.UsesStockFootage() {
		return Result{Name: name, Passed: true, Detail: "Disabled (generated clips)"}
	}
	return CheckCredential(name, cfg.Pexels.APIKey, "set pexels.api_key or PEXELS_KEY")
}
