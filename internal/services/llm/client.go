package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scenecast/internal/services"
)

const (
	openRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	requestTimeout     = 15 * time.Second
	errorBodyLimit     = 4 << 10
)

// Config holds the OpenRouter connection settings from the [llm] section.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client sends JSON-mode chat completions to an OpenAI-compatible endpoint,
// OpenRouter unless BaseURL says otherwise.
type Client struct {
	cfg     Config
	http    *http.Client
	backoff services.Backoff
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAttempts sets how many times a request is sent before giving up.
func WithAttempts(n int) Option {
	return func(c *Client) { c.backoff.Attempts = n }
}

// WithBackoff sets the first retry delay and the delay cap.
func WithBackoff(base, max time.Duration) Option {
	return func(c *Client) {
		c.backoff.Base = base
		c.backoff.Max = max
	}
}

// WithSleep replaces the wait between retries.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.backoff.Sleep = sleep }
}

// NewClient builds a client; blank BaseURL means OpenRouter.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = openRouterEndpoint
	}
	timeout := requestTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		backoff: services.Backoff{
			Attempts: 4,
			Base:     time.Second,
			Max:      10 * time.Second,
		},
	}
	c.backoff.Classify = classifyRetry
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompleteJSON asks the model for a JSON object and returns the reply text
// untouched. Callers decode it with DecodeJSON.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt, userPrompt = strings.TrimSpace(systemPrompt), strings.TrimSpace(userPrompt)
	if systemPrompt == "" || userPrompt == "" {
		return "", services.Wrap(services.ErrValidation, "", "llm complete", "system and user prompts are required", nil)
	}
	return c.complete(ctx, "llm complete", systemPrompt, userPrompt)
}

// HealthCheck sends a one-line prompt to confirm the key and model work.
func (c *Client) HealthCheck(ctx context.Context) error {
	reply, err := c.complete(ctx, "llm health", "Reply with JSON only.", `Return {"ok":true}`)
	if err != nil {
		return err
	}
	var pong struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(reply, &pong); err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	if !pong.OK {
		return fmt.Errorf("llm health: model answered %s", snippet(reply))
	}
	return nil
}

type chatRequest struct {
	Model          string            `json:"model,omitempty"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// statusError is a non-2xx reply.
type statusError struct {
	code       int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.code, e.body)
}

// blankReplyError is a 2xx reply without usable content. Providers produce
// these under load, so they are retried.
type blankReplyError struct {
	finish  string
	refusal string
	body    string
}

func (e *blankReplyError) Error() string {
	return fmt.Sprintf("empty content (finish_reason=%q, refusal=%q, response=%s)", e.finish, e.refusal, e.body)
}

func (c *Client) complete(ctx context.Context, op, systemPrompt, userPrompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "", op, "api key required", nil)
	}
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("%s: encode request: %w", op, err)
	}

	var reply string
	calls, err := c.backoff.Do(ctx, func(ctx context.Context) error {
		var sendErr error
		reply, sendErr = c.send(ctx, body)
		return sendErr
	})
	if err == nil {
		return reply, nil
	}
	var se *statusError
	switch {
	case errors.As(err, &se) && (se.code == http.StatusUnauthorized || se.code == http.StatusForbidden || se.code == http.StatusPaymentRequired):
		return "", fmt.Errorf("%s: %w: %w", op, services.ErrConfiguration, err)
	case ctx.Err() != nil:
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if _, retry := classifyRetry(err); retry {
		return "", fmt.Errorf("%s: gave up after %d attempts: %w: %w", op, calls, services.ErrTransient, err)
	}
	return "", fmt.Errorf("%s: %w", op, err)
}

func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		text := strings.TrimSpace(string(raw))
		if len(text) > errorBodyLimit {
			text = text[:errorBodyLimit]
		}
		return "", &statusError{code: resp.StatusCode, body: text, retryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error: %s", strings.TrimSpace(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", &blankReplyError{body: snippet(string(raw))}
	}
	choice := parsed.Choices[0]
	if content := strings.TrimSpace(choice.Message.Content); content != "" {
		return content, nil
	}
	return "", &blankReplyError{finish: choice.FinishReason, refusal: choice.Message.Refusal, body: snippet(string(raw))}
}

// classifyRetry retries throttling, server errors, blank replies and network
// timeouts. A Retry-After header overrides the computed delay.
func classifyRetry(err error) (time.Duration, bool) {
	var se *statusError
	if errors.As(err, &se) {
		retry := se.code == http.StatusRequestTimeout || se.code == http.StatusTooManyRequests || se.code >= 500
		return se.retryAfter, retry
	}
	var blank *blankReplyError
	if errors.As(err, &blank) {
		return 0, true
	}
	return 0, services.Retryable(err)
}

// retryAfter accepts delta-seconds or an HTTP date.
func retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// DecodeJSON unmarshals a model reply into target. Replies wrapped in a
// Markdown fence or surrounded by prose are trimmed to the outermost JSON
// value first.
func DecodeJSON(reply string, target any) error {
	text := strings.TrimSpace(reply)
	if text == "" {
		return errors.New("decode llm reply: empty payload")
	}
	err := json.Unmarshal([]byte(text), target)
	if err == nil {
		return nil
	}
	inner := outermostJSON(unfence(text))
	if inner == "" || inner == text {
		return fmt.Errorf("decode llm reply: %w (payload: %s)", err, snippet(text))
	}
	if err := json.Unmarshal([]byte(inner), target); err != nil {
		return fmt.Errorf("decode llm reply: %w (extracted payload: %s)", err, snippet(inner))
	}
	return nil
}

// unfence drops a leading ``` or ```json line and the closing fence.
func unfence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 && strings.TrimSpace(text[:nl]) != "" && !strings.ContainsAny(text[:nl], "{[") {
		text = text[nl+1:]
	}
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

// outermostJSON returns the span from the first '{' or '[' to its last
// matching closer, whichever opener comes first.
func outermostJSON(text string) string {
	open := strings.IndexAny(text, "{[")
	if open < 0 {
		return text
	}
	closer := byte('}')
	if text[open] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end <= open {
		return text
	}
	return text[open : end+1]
}

// snippet collapses whitespace and keeps the first 160 runes for error
// messages.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "<empty>"
	}
	if r := []rune(text); len(r) > 160 {
		return string(r[:160]) + "..."
	}
	return text
}
