package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"scenecast/internal/config"
	"scenecast/internal/notifications"
	"scenecast/internal/preflight"
	"scenecast/internal/queue"
	"scenecast/internal/services"
	"scenecast/internal/stage"
	"scenecast/internal/testsupport"
	"scenecast/internal/workflow"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) has(event notifications.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

type fakeStage struct {
	name  string
	err   error
	apply func(*queue.Item)

	mu    sync.Mutex
	calls int
}

func (s *fakeStage) Prepare(context.Context, *queue.Item) error { return nil }

func (s *fakeStage) Execute(_ context.Context, item *queue.Item) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.apply != nil {
		s.apply(item)
	}
	return nil
}

func (s *fakeStage) HealthCheck(context.Context) stage.Health { return stage.Healthy(s.name) }

func (s *fakeStage) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func passingPreflight(context.Context, *config.Config) []preflight.Result {
	return []preflight.Result{{Name: "ok", Passed: true}}
}

func stageSet() (workflow.StageSet, []*fakeStage) {
	scripter := &fakeStage{name: "scripting", apply: func(i *queue.Item) { i.ScriptText = "script" }}
	narrator := &fakeStage{name: "narration", apply: func(i *queue.Item) {
		i.AudioFile = "narration.mp3"
		i.CaptionsJSON = `[]`
		i.DurationSeconds = 12
	}}
	footage := &fakeStage{name: "footage", apply: func(i *queue.Item) { i.TimelineJSON = `[]` }}
	renderer := &fakeStage{name: "render", apply: func(i *queue.Item) { i.OutputFile = "/tmp/out.mp4" }}
	return workflow.StageSet{Scripter: scripter, Narrator: narrator, Footage: footage, Renderer: renderer},
		[]*fakeStage{scripter, narrator, footage, renderer}
}

func TestRunItemDrivesAllStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, "deep sea creatures")
	notifier := &recordingNotifier{}

	mgr := workflow.NewManager(cfg, store, nil, workflow.WithNotifier(notifier), workflow.WithPreflight(passingPreflight))
	set, stages := stageSet()
	mgr.ConfigureStages(set)

	if err := mgr.RunItem(context.Background(), item); err != nil {
		t.Fatalf("RunItem: %v", err)
	}
	stored, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != queue.StatusCompleted || stored.OutputFile != "/tmp/out.mp4" {
		t.Fatalf("unexpected final item: status=%s output=%q", stored.Status, stored.OutputFile)
	}
	for _, s := range stages {
		if s.callCount() != 1 {
			t.Fatalf("stage %s ran %d times", s.name, s.callCount())
		}
	}
	if !notifier.has(notifications.EventJobCompleted) || !notifier.has(notifications.EventQueueCompleted) {
		t.Fatalf("expected completion notifications, got %v", notifier.events)
	}

	logPath := workflow.NewJobLogger(cfg).Path(stored)
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("expected job log at %s: %v", logPath, err)
	}
	if filepath.Dir(logPath) != filepath.Join(cfg.Paths.LogDir, "jobs") {
		t.Fatalf("unexpected job log location %s", logPath)
	}
}

func TestRunItemResumesAfterStoredArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, "deep sea creatures")
	item.ScriptText = "script"
	item.AudioFile = "narration.mp3"
	item.CaptionsJSON = `[]`
	item.Status = queue.StatusNarrated
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	mgr := workflow.NewManager(cfg, store, nil, workflow.WithNotifier(&recordingNotifier{}), workflow.WithPreflight(passingPreflight))
	set, stages := stageSet()
	mgr.ConfigureStages(set)

	if err := mgr.RunItem(context.Background(), item); err != nil {
		t.Fatalf("RunItem: %v", err)
	}
	if stages[0].callCount() != 0 || stages[1].callCount() != 0 {
		t.Fatal("scripting and narration should be skipped on resume")
	}
	if stages[2].callCount() != 1 || stages[3].callCount() != 1 {
		t.Fatal("footage and render should run once")
	}
}

func TestRunItemStopsOnReviewFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, "deep sea creatures")
	notifier := &recordingNotifier{}

	mgr := workflow.NewManager(cfg, store, nil, workflow.WithNotifier(notifier), workflow.WithPreflight(passingPreflight))
	set, stages := stageSet()
	stages[2].err = services.Wrap(services.ErrValidation, "footage", "extract windows", "no usable windows", nil)
	mgr.ConfigureStages(set)

	err := mgr.RunItem(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	stored, getErr := store.GetByID(context.Background(), item.ID)
	if getErr != nil {
		t.Fatalf("GetByID: %v", getErr)
	}
	if stored.Status != queue.StatusReview || !stored.NeedsReview {
		t.Fatalf("expected review, got %s", stored.Status)
	}
	if stored.ScriptText == "" || stored.AudioFile == "" {
		t.Fatal("earlier artifacts should survive the failure")
	}
	if stages[3].callCount() != 0 {
		t.Fatal("render must not run after footage failure")
	}
	if !notifier.has(notifications.EventJobReview) {
		t.Fatalf("expected review notification, got %v", notifier.events)
	}

	if _, err := store.RetryFailed(context.Background(), item.ID); err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	retried, _ := store.GetByID(context.Background(), item.ID)
	if retried.Status != queue.StatusNarrated {
		t.Fatalf("expected retry to resume at narrated, got %s", retried.Status)
	}
}

func TestPreflightFailureLeavesItemQueued(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, "deep sea creatures")

	failing := func(context.Context, *config.Config) []preflight.Result {
		return []preflight.Result{{Name: "LLM API key", Detail: "missing"}}
	}
	mgr := workflow.NewManager(cfg, store, nil, workflow.WithNotifier(&recordingNotifier{}), workflow.WithPreflight(failing))
	set, stages := stageSet()
	mgr.ConfigureStages(set)

	if err := mgr.RunItem(context.Background(), item); err == nil {
		t.Fatal("expected preflight error")
	}
	if stages[0].callCount() != 0 {
		t.Fatal("no stage should run when preflight fails")
	}
	stored, _ := store.GetByID(context.Background(), item.ID)
	if stored.Status != queue.StatusPending {
		t.Fatalf("expected item to stay pending, got %s", stored.Status)
	}
	if summary := mgr.Status(context.Background()); summary.LastError == "" {
		t.Fatal("expected last error recorded")
	}
}

func TestStartProcessesQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	first := testsupport.NewItem(t, store, "volcanoes")
	second := testsupport.NewItem(t, store, "glaciers")

	mgr := workflow.NewManager(cfg, store, nil, workflow.WithNotifier(&recordingNotifier{}), workflow.WithPreflight(passingPreflight))
	set, _ := stageSet()
	mgr.ConfigureStages(set)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		a, _ := store.GetByID(context.Background(), first.ID)
		b, _ := store.GetByID(context.Background(), second.ID)
		if a.Status == queue.StatusCompleted && b.Status == queue.StatusCompleted {
			summary := mgr.Status(context.Background())
			if !summary.Running {
				t.Fatal("expected manager running")
			}
			if len(summary.StageHealth) != 4 {
				t.Fatalf("expected 4 stage health entries, got %d", len(summary.StageHealth))
			}
			mgr.Stop()
			if mgr.Running() {
				t.Fatal("expected manager stopped")
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("queue was not drained in time")
}

func TestStartRequiresStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, nil)
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected error without stages")
	}
}
