package pexels

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"scenecast/internal/clips"
	"scenecast/internal/services"
)

func TestSearchFootageMapsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/search" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "key-123" {
			t.Fatalf("unexpected authorization %q", got)
		}
		q := r.URL.Query()
		if q.Get("query") != "city lights" || q.Get("orientation") != "portrait" || q.Get("per_page") != "15" {
			t.Fatalf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(`{
			"page": 1,
			"videos": [
				{"id": 1, "url": "https://www.pexels.com/video/1/", "width": 1080, "height": 1920, "duration": 12,
				 "video_files": [
					{"id": 10, "quality": "hd", "width": 1080, "height": 1920, "link": "https://videos.pexels.com/1-hd.mp4"},
					{"id": 11, "quality": null, "link": "https://videos.pexels.com/1-x.mp4"}
				 ]},
				{"id": 2, "url": "https://www.pexels.com/video/2/"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key-123", BaseURL: server.URL})
	got, err := client.SearchFootage(context.Background(), "city lights", clips.Portrait, 15)
	if err != nil {
		t.Fatalf("SearchFootage: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	first := got[0]
	if first.Width == nil || *first.Width != 1080 || first.Duration == nil || *first.Duration != 12 {
		t.Fatalf("unexpected first candidate %+v", first)
	}
	if len(first.Variants) != 2 || first.Variants[0].Quality != "hd" || first.Variants[1].Width != nil {
		t.Fatalf("unexpected variants %+v", first.Variants)
	}
	second := got[1]
	if second.Width != nil || second.Height != nil || second.Duration != nil || len(second.Variants) != 0 {
		t.Fatalf("expected absent fields to stay nil, got %+v", second)
	}
}

func TestSearchFootageEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"page":1,"videos":[]}`))
	}))
	defer server.Close()

	got, err := NewClient(Config{APIKey: "k", BaseURL: server.URL}).SearchFootage(context.Background(), "nothing", clips.Landscape, 15)
	if err != nil {
		t.Fatalf("SearchFootage: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestSearchFootageClassifiesStatusErrors(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusRequestTimeout, true},
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(strings.Repeat("x", 10000)))
			}))
			defer server.Close()

			_, err := NewClient(Config{APIKey: "k", BaseURL: server.URL}).SearchFootage(context.Background(), "term", clips.Landscape, 15)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, services.ErrTransient); got != tc.transient {
				t.Fatalf("transient = %v, want %v (%v)", got, tc.transient, err)
			}
			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.StatusCode != tc.status {
				t.Fatalf("expected StatusError with %d, got %v", tc.status, err)
			}
			if len(statusErr.Body) > errorBodyLimit {
				t.Fatalf("body excerpt not truncated: %d bytes", len(statusErr.Body))
			}
		})
	}
}

func TestSearchFootageRequiresKey(t *testing.T) {
	_, err := NewClient(Config{}).SearchFootage(context.Background(), "term", clips.Landscape, 15)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
