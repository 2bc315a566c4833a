package llm

import (
	"context"

	"scenecast/internal/config"
	"scenecast/internal/services/openai"
)

// Completer returns a model's raw JSON reply for a system/user prompt pair.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// SchemaCompleter is a Completer that can also enforce a JSON schema on the
// reply.
type SchemaCompleter interface {
	Completer
	CompleteSchema(ctx context.Context, name, systemPrompt, userPrompt string, schema any) (string, error)
}

// sdkRetries is handed to the openai SDK, which retries 408/429/5xx itself.
const sdkRetries = 3

// FromConfig returns the Completer for llm.provider.
func FromConfig(cfg *config.Config) Completer {
	settings := cfg.LLM
	if settings.Provider == config.LLMProviderOpenAI {
		return openai.NewClient(openai.Config{
			APIKey:         settings.APIKey,
			BaseURL:        settings.BaseURL,
			ChatModel:      settings.Model,
			TimeoutSeconds: settings.TimeoutSeconds,
			MaxRetries:     sdkRetries,
		})
	}
	return NewClient(Config{
		APIKey:         settings.APIKey,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		Referer:        settings.Referer,
		Title:          settings.Title,
		TimeoutSeconds: settings.TimeoutSeconds,
	})
}
