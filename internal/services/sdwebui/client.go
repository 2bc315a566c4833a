package sdwebui

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"scenecast/internal/clips"
	"scenecast/internal/services"
)

const (
	defaultBaseURL     = "http://127.0.0.1:7860"
	defaultHTTPTimeout = 120 * time.Second
	defaultSteps       = 20
	errorBodyLimit     = 4 << 10
)

// HTTPDoer describes the HTTP client used by the SD WebUI client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config captures the runtime settings for a Stable Diffusion WebUI server.
type Config struct {
	BaseURL        string
	Steps          int
	TimeoutSeconds int
}

// Client calls the AUTOMATIC1111 txt2img endpoint.
type Client struct {
	baseURL string
	steps   int
	client  HTTPDoer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		steps:   cfg.Steps,
		client:  &http.Client{Timeout: timeout},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.steps <= 0 {
		c.steps = defaultSteps
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type txt2imgRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Steps  int    `json:"steps"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

// GenerateImage renders prompt at size and returns the first image's bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string, size clips.Resolution) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, services.Wrap(services.ErrValidation, "footage", "sdwebui txt2img", "prompt required", nil)
	}
	body, err := json.Marshal(txt2imgRequest{Prompt: prompt, Width: size.Width, Height: size.Height, Steps: c.steps})
	if err != nil {
		return nil, fmt.Errorf("encode txt2img request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sdapi/v1/txt2img", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build txt2img request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			// Connection refused usually means the server is still loading a model.
			return nil, fmt.Errorf("txt2img: %w: %w", services.ErrTransient, err)
		}
		return nil, fmt.Errorf("txt2img: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		err := fmt.Errorf("txt2img returned http %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %w", services.ErrTransient, err)
		}
		return nil, err
	}

	var payload txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode txt2img response: %w", err)
	}
	if len(payload.Images) == 0 || strings.TrimSpace(payload.Images[0]) == "" {
		return nil, errors.New("txt2img returned no images")
	}
	return decodeImage(payload.Images[0])
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		if _, rest, ok := strings.Cut(encoded, ","); ok {
			encoded = rest
		}
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode txt2img image: %w", err)
	}
	return data, nil
}
