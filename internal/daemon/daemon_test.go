package daemon_test

import (
	"context"
	"testing"
	"time"

	"plexmover/internal/api"
	"plexmover/internal/catalog"
	"plexmover/internal/config"
	"plexmover/internal/copyengine"
	"plexmover/internal/daemon"
	"plexmover/internal/dispatch"
	"plexmover/internal/feeds"
	"plexmover/internal/mover"
	"plexmover/internal/store"
	"plexmover/internal/testsupport"
	"plexmover/internal/workflow"
)

type harness struct {
	cfg    *config.Config
	store  *store.Store
	client *testsupport.FakeTorrents
	engine *copyengine.Engine
	daemon *daemon.Daemon
}

func newHarness(t *testing.T, cfg *config.Config) harness {
	t.Helper()
	if cfg == nil {
		cfg = testsupport.NewConfig(t)
	}
	st := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewFakeTorrents()
	engine := copyengine.New(nil, copyengine.WithGracePeriod(time.Millisecond))
	cat := catalog.NewService(cfg, st, nil, nil, nil)
	mv := mover.New(cfg, client, st, st, engine, nil, nil)
	t.Cleanup(mv.Close)
	fd := feeds.NewService(cfg, st, cat, nil)
	rules, manual := dispatch.RulesFromConfig(cfg)
	mgr := workflow.NewManager(cfg, workflow.Dependencies{
		Store:      st,
		Torrents:   client,
		Copies:     engine,
		Catalog:    cat,
		Dispatcher: dispatch.New(rules, manual, mv.Launch, nil),
		Sweeper:    mv,
		Feeds:      fd,
	}, nil)
	d, err := daemon.New(cfg, daemon.Components{
		Store:    st,
		Workflow: mgr,
		Mover:    mv,
		Copies:   engine,
		Catalog:  cat,
		Feeds:    fd,
	}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return harness{cfg: cfg, store: st, client: client, engine: engine, daemon: d}
}

func TestDaemonStartStop(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !h.daemon.Status().Running {
		t.Fatal("expected daemon to report running")
	}

	// Second start should fail
	if err := h.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	addr := h.daemon.Address()
	if addr == "" {
		t.Fatal("expected a bound api address")
	}
	health, err := api.NewClient(addr, "", time.Second).Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "ok" || !health.Running {
		t.Fatalf("unexpected health %#v", health)
	}

	h.daemon.Stop()
	if h.daemon.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if h.daemon.Address() != "" {
		t.Fatal("expected api listener to be released")
	}
}

func TestSecondInstanceIsLockedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newHarness(t, cfg)
	second := newHarness(t, cfg)
	ctx := context.Background()

	if err := first.daemon.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.daemon.Start(ctx); err == nil {
		t.Fatal("expected the second instance to be locked out")
	}
	first.daemon.Stop()
	if err := second.daemon.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestNewRequiresComponents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, daemon.Components{}, nil); err == nil {
		t.Fatal("expected error for missing components")
	}
}
