package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scenecast/internal/clips"
	"scenecast/internal/services"
)

const (
	defaultBaseURL     = "https://api.pexels.com"
	defaultHTTPTimeout = 20 * time.Second
	errorBodyLimit     = 4 << 10
)

// HTTPDoer describes the HTTP client used by the Pexels client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config captures the runtime settings required to search Pexels.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// Client searches the Pexels video API.
type Client struct {
	apiKey  string
	baseURL string
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
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	TotalResults int     `json:"total_results"`
	Videos       []video `json:"videos"`
}

// Any of these fields may be absent; pointers keep absent distinct from zero.
type video struct {
	ID         int64       `json:"id"`
	URL        string      `json:"url"`
	Width      *int        `json:"width"`
	Height     *int        `json:"height"`
	Duration   *float64    `json:"duration"`
	VideoFiles []videoFile `json:"video_files"`
}

type videoFile struct {
	ID       int64   `json:"id"`
	Quality  *string `json:"quality"`
	FileType string  `json:"file_type"`
	Width    *int    `json:"width"`
	Height   *int    `json:"height"`
	Link     string  `json:"link"`
}

// SearchFootage queries /videos/search for term. An empty result set is not
// an error.
func (c *Client) SearchFootage(ctx context.Context, term string, orientation clips.Orientation, perPage int) ([]clips.CandidateClip, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, services.Wrap(services.ErrValidation, "footage", "pexels search", "search term required", nil)
	}
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "footage", "pexels search", "api key required", nil)
	}
	if orientation == "" {
		orientation = clips.Landscape
	}

	query := url.Values{}
	query.Set("query", term)
	query.Set("orientation", string(orientation))
	if perPage > 0 {
		query.Set("per_page", strconv.Itoa(perPage))
	}
	endpoint := c.baseURL + "/videos/search?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build pexels request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("pexels search %q: %w: %w", term, services.ErrTransient, err)
		}
		return nil, fmt.Errorf("pexels search %q: %w", term, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if statusErr.Transient() {
			return nil, fmt.Errorf("pexels search %q: %w: %w", term, services.ErrTransient, statusErr)
		}
		return nil, fmt.Errorf("pexels search %q: %w", term, statusErr)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode pexels response: %w", err)
	}
	return toCandidates(payload.Videos), nil
}

// StatusError reports a non-2xx Pexels response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("pexels returned http %d", e.StatusCode)
	}
	return fmt.Sprintf("pexels returned http %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

func toCandidates(videos []video) []clips.CandidateClip {
	out := make([]clips.CandidateClip, 0, len(videos))
	for _, v := range videos {
		candidate := clips.CandidateClip{
			ID:       v.ID,
			PageURL:  v.URL,
			Width:    v.Width,
			Height:   v.Height,
			Duration: v.Duration,
		}
		for _, f := range v.VideoFiles {
			variant := clips.ClipVariant{Link: f.Link, Width: f.Width, Height: f.Height}
			if f.Quality != nil {
				variant.Quality = *f.Quality
			}
			candidate.Variants = append(candidate.Variants, variant)
		}
		out = append(out, candidate)
	}
	return out
}
