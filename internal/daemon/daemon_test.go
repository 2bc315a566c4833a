package daemon_test

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"scenecast/internal/daemon"
	"scenecast/internal/queue"
	"scenecast/internal/stage"
	"scenecast/internal/testsupport"
	"scenecast/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Item) error { return nil }
func (noopStage) Execute(context.Context, *queue.Item) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

func newDaemon(t *testing.T) (*daemon.Daemon, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(workflow.StageSet{Renderer: noopStage{}})
	d, err := daemon.New(cfg, store, nil, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	d, _ := newDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("expected daemon and workflow running, got %+v", status)
	}
	if status.PID == 0 || status.LockFilePath == "" {
		t.Fatalf("expected pid and lock path, got %+v", status)
	}
	if d.APIAddress() == "" {
		t.Fatal("expected api server to be listening")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	build := func() *daemon.Daemon {
		mgr := workflow.NewManager(cfg, store, nil)
		mgr.ConfigureStages(workflow.StageSet{Renderer: noopStage{}})
		d, err := daemon.New(cfg, store, nil, mgr)
		if err != nil {
			t.Fatalf("daemon.New: %v", err)
		}
		t.Cleanup(d.Stop)
		return d
	}
	first, second := build(), build()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected second daemon to fail on the lock")
	}
}

func TestDaemonStopFailsInFlightItems(t *testing.T) {
	d, store := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	item := testsupport.NewItem(t, store, "tides")
	item.Status = queue.StatusNarrating
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	d.Stop()

	got, err := store.GetByID(ctx, item.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusFailed || got.ErrorMessage != queue.DaemonStopReason {
		t.Fatalf("expected failed with stop reason, got %s %q", got.Status, got.ErrorMessage)
	}
}

func TestDaemonStartRequeuesInterruptedItems(t *testing.T) {
	d, store := newDaemon(t)
	ctx := context.Background()

	item := testsupport.NewItem(t, store, "glaciers")
	item.Status = queue.StatusSourcing
	item.ScriptText = "script"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	got, err := store.GetByID(ctx, item.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusNarrated {
		t.Fatalf("expected sourcing to roll back to narrated, got %s", got.Status)
	}
}

func TestDaemonStartFailureReleasesLock(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer taken.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = taken.Addr().String()
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(workflow.StageSet{Renderer: noopStage{}})
	d, err := daemon.New(cfg, store, nil, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail on a taken api port")
	}
	if d.Status(context.Background()).Running || mgr.Status(context.Background()).Running {
		t.Fatal("expected nothing left running after failed start")
	}
	lock := flock.New(filepath.Join(cfg.Paths.LogDir, daemon.LockFileName))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("expected lock to be free after failed start, ok=%v err=%v", ok, err)
	}
	_ = lock.Unlock()
}
