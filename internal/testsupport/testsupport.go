// Package testsupport builds throwaway configs, queue stores and files for
// package tests.
package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"scenecast/internal/config"
	"scenecast/internal/queue"
)

// Option edits the generated config before it is returned.
type Option func(*config.Config)

// WithClipSource selects "stock" or "generated" footage.
func WithClipSource(source string) Option {
	return func(cfg *config.Config) { cfg.Clips.Source = source }
}

// NewConfig returns defaults rooted in a fresh temp directory. API keys hold
// placeholders and clip retries wait a millisecond.
func NewConfig(t testing.TB, opts ...Option) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(root, "work")
	cfg.Paths.OutputDir = filepath.Join(root, "output")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.LLM.APIKey = "test"
	cfg.Pexels.APIKey = "test"
	cfg.Clips.RetryBaseMillis, cfg.Clips.RetryMaxMillis = 1, 1
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// MustOpenStore opens the queue for cfg and closes it when the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// NewItem enqueues a pending job for topic with default options.
func NewItem(t testing.TB, store *queue.Store, topic string) *queue.Item {
	t.Helper()
	item, err := store.NewItem(context.Background(), queue.NewItemRequest{Topic: topic})
	if err != nil {
		t.Fatalf("enqueue %q: %v", topic, err)
	}
	return item
}

// WriteFile creates path, with parents, holding content.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
