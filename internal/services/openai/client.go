package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"scenecast/internal/clips"
	"scenecast/internal/services"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultChatModel   = "gpt-4o-mini"
	defaultImageModel  = "dall-e-3"
	defaultHTTPTimeout = 90 * time.Second
)

// Config captures the runtime settings for the OpenAI API.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	ImageModel     string
	Referer        string
	Title          string
	TimeoutSeconds int
	// MaxRetries is passed to the SDK; negative leaves the SDK default.
	MaxRetries int
}

// Client wraps the official SDK for JSON chat completions and image
// generation.
type Client struct {
	sdk        sdk.Client
	chatModel  string
	imageModel string
	hasKey     bool
}

func NewClient(cfg Config, opts ...option.RequestOption) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
	}
	if cfg.MaxRetries >= 0 {
		requestOpts = append(requestOpts, option.WithMaxRetries(cfg.MaxRetries))
	}
	if referer := strings.TrimSpace(cfg.Referer); referer != "" {
		requestOpts = append(requestOpts, option.WithHeader("HTTP-Referer", referer))
	}
	if title := strings.TrimSpace(cfg.Title); title != "" {
		requestOpts = append(requestOpts, option.WithHeader("X-Title", title))
	}
	requestOpts = append(requestOpts, opts...)

	c := &Client{
		sdk:        sdk.NewClient(requestOpts...),
		chatModel:  strings.TrimSpace(cfg.ChatModel),
		imageModel: strings.TrimSpace(cfg.ImageModel),
		hasKey:     strings.TrimSpace(cfg.APIKey) != "",
	}
	if c.chatModel == "" {
		c.chatModel = defaultChatModel
	}
	if c.imageModel == "" {
		c.imageModel = defaultImageModel
	}
	return c
}

// GenerateSchema reflects T into a strict JSON schema for structured output.
func GenerateSchema[T any]() any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// CompleteJSON issues a JSON-object chat completion and returns the raw
// content.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, "openai complete", systemPrompt, userPrompt, sdk.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
	})
}

// CompleteSchema issues a chat completion constrained to schema and returns
// the raw content.
func (c *Client) CompleteSchema(ctx context.Context, name, systemPrompt, userPrompt string, schema any) (string, error) {
	if schema == nil {
		return "", errors.New("openai complete: schema required")
	}
	return c.complete(ctx, "openai complete", systemPrompt, userPrompt, sdk.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &sdk.ResponseFormatJSONSchemaParam{
			JSONSchema: sdk.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        name,
				Description: sdk.String("Structured data response"),
				Schema:      schema,
				Strict:      sdk.Bool(true),
			},
		},
	})
}

func (c *Client) complete(ctx context.Context, op, systemPrompt, userPrompt string, format sdk.ChatCompletionNewParamsResponseFormatUnion) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" {
		return "", fmt.Errorf("%s: system prompt required", op)
	}
	if userPrompt == "" {
		return "", fmt.Errorf("%s: user prompt required", op)
	}
	if !c.hasKey {
		return "", services.Wrap(services.ErrConfiguration, "", op, "api key required", nil)
	}

	completion, err := c.sdk.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(systemPrompt),
			sdk.UserMessage(userPrompt),
		},
		Model:          c.chatModel,
		Temperature:    sdk.Float(0),
		ResponseFormat: format,
	})
	if err != nil {
		return "", classify(ctx, op, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices", op)
	}
	choice := completion.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", fmt.Errorf("%s: empty content (finish_reason=%q, refusal=%q)", op, choice.FinishReason, choice.Message.Refusal)
	}
	return content, nil
}

// GenerateImage renders prompt with the images API. The request size is the
// closest supported aspect for size: wide, tall or square.
func (c *Client) GenerateImage(ctx context.Context, prompt string, size clips.Resolution) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, services.Wrap(services.ErrValidation, "footage", "openai image", "prompt required", nil)
	}
	if !c.hasKey {
		return nil, services.Wrap(services.ErrConfiguration, "footage", "openai image", "api key required", nil)
	}
	resp, err := c.sdk.Images.Generate(ctx, sdk.ImageGenerateParams{
		Prompt:         prompt,
		Model:          sdk.ImageModel(c.imageModel),
		N:              sdk.Int(1),
		Size:           imageSize(size),
		ResponseFormat: sdk.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, classify(ctx, "openai image", err)
	}
	if len(resp.Data) == 0 || strings.TrimSpace(resp.Data[0].B64JSON) == "" {
		return nil, errors.New("openai image: no image data returned")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai image: decode: %w", err)
	}
	return data, nil
}

func imageSize(size clips.Resolution) sdk.ImageGenerateParamsSize {
	switch {
	case size.Width > size.Height:
		return sdk.ImageGenerateParamsSize1792x1024
	case size.Height > size.Width:
		return sdk.ImageGenerateParamsSize1024x1792
	default:
		return sdk.ImageGenerateParamsSize1024x1024
	}
}

// classify tags rate limits, server errors and timeouts as transient.
func classify(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized, apiErr.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%s: %w: %w", op, services.ErrConfiguration, err)
		case apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%s: %w: %w", op, services.ErrTransient, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, services.ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
