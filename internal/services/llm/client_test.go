package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"scenecast/internal/services"
)

// replyWith serves a chat completion whose first choice carries content.
func replyWith(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestCompleteJSONSendsJSONModeRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Fatalf("authorization header %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "scenecast" {
			t.Fatalf("title header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "demo-model" || req.ResponseFormat["type"] != "json_object" {
			t.Fatalf("unexpected request %+v", req)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "Name three ocean animals." {
			t.Fatalf("unexpected messages %+v", req.Messages)
		}
		replyWith(`{"animals":["whale","squid","eel"]}`)(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: " key ", BaseURL: server.URL, Model: "demo-model", Title: "scenecast"})
	reply, err := client.CompleteJSON(context.Background(), "Reply with JSON.", "Name three ocean animals.")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	var parsed struct {
		Animals []string `json:"animals"`
	}
	if err := DecodeJSON(reply, &parsed); err != nil || len(parsed.Animals) != 3 {
		t.Fatalf("decode reply %q: %v", reply, err)
	}
}

func TestCompleteJSONRequiresKeyAndPrompts(t *testing.T) {
	if _, err := NewClient(Config{}).CompleteJSON(context.Background(), "s", "u"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := NewClient(Config{APIKey: "k"}).CompleteJSON(context.Background(), " ", "u"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	ok := httptest.NewServer(replyWith("```json\n{\"ok\":true}\n```"))
	defer ok.Close()
	if err := NewClient(Config{APIKey: "k", BaseURL: ok.URL}).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	bad := httptest.NewServer(replyWith(`{"ok":false}`))
	defer bad.Close()
	if err := NewClient(Config{APIKey: "k", BaseURL: bad.URL}).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check failure for ok=false")
	}
}

func TestRetryHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		replyWith(`{"ok":true}`)(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL},
		WithBackoff(100*time.Millisecond, 10*time.Second),
		WithSleep(func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}),
	)
	if _, err := client.CompleteJSON(context.Background(), "s", "u"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if calls.Load() != 2 || len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("expected one 2s wait, got calls=%d slept=%v", calls.Load(), slept)
	}
}

func TestRetryOnBlankReplyThenSucceed(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			replyWith("")(w, r)
			return
		}
		replyWith(`{"ok":true}`)(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, WithSleep(noSleep))
	reply, err := client.CompleteJSON(context.Background(), "s", "u")
	if err != nil || reply != `{"ok":true}` || calls.Load() != 3 {
		t.Fatalf("expected success on third call, got %q %v calls=%d", reply, err, calls.Load())
	}
}

func TestBlankReplyErrorCarriesFinishReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"length","message":{"content":""}}]}`))
	}))
	defer server.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: server.URL}, WithAttempts(1)).CompleteJSON(context.Background(), "s", "u")
	if err == nil || !strings.Contains(err.Error(), `finish_reason="length"`) {
		t.Fatalf("expected finish reason in error, got %v", err)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected blank replies to be transient, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
		calls  int32
	}{
		{"unauthorized", http.StatusUnauthorized, services.ErrConfiguration, 1},
		{"server error", http.StatusBadGateway, services.ErrTransient, 2},
		{"bad request", http.StatusBadRequest, nil, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				http.Error(w, "nope", tc.status)
			}))
			defer server.Close()

			_, err := NewClient(Config{APIKey: "k", BaseURL: server.URL}, WithAttempts(2), WithSleep(noSleep)).
				CompleteJSON(context.Background(), "s", "u")
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want == nil && (errors.Is(err, services.ErrTransient) || errors.Is(err, services.ErrConfiguration)) {
				t.Fatalf("expected unmarked error, got %v", err)
			}
			if calls.Load() != tc.calls {
				t.Fatalf("expected %d calls, got %d", tc.calls, calls.Load())
			}
		})
	}
}

func TestRetryAfterParsing(t *testing.T) {
	if got := retryAfter("3"); got != 3*time.Second {
		t.Fatalf("seconds form: %s", got)
	}
	if got := retryAfter("soon"); got != 0 {
		t.Fatalf("garbage form: %s", got)
	}
	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	if got := retryAfter(future); got <= 0 || got > time.Minute {
		t.Fatalf("date form: %s", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		ok    bool
	}{
		{"plain", `{"topic":"octopus","seconds":4.5}`, true},
		{"fenced", "```json\n{\"topic\":\"octopus\",\"seconds\":4.5}\n```", true},
		{"bare fence", "```\n{\"topic\":\"octopus\",\"seconds\":4.5}\n```", true},
		{"prose", `Sure! {"topic":"octopus","seconds":4.5} Hope that helps.`, true},
		{"empty", "   ", false},
		{"garbage", "no json here", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out struct {
				Topic   string  `json:"topic"`
				Seconds float64 `json:"seconds"`
			}
			err := DecodeJSON(tc.reply, &out)
			if tc.ok && (err != nil || out.Topic != "octopus" || out.Seconds != 4.5) {
				t.Fatalf("DecodeJSON(%q) = %+v, %v", tc.reply, out, err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error for %q", tc.reply)
			}
		})
	}
}

func TestDecodeJSONArrayInProse(t *testing.T) {
	var windows [][]any
	if err := DecodeJSON("Here you go:\n[[[0,2],[\"sea\"]]]", &windows); err != nil || len(windows) != 1 {
		t.Fatalf("DecodeJSON: %v %v", windows, err)
	}
}
