package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"plexmover/internal/catalog"
	"plexmover/internal/config"
	"plexmover/internal/copyengine"
	"plexmover/internal/daemon"
	"plexmover/internal/dispatch"
	"plexmover/internal/feeds"
	"plexmover/internal/logging"
	"plexmover/internal/mover"
	"plexmover/internal/store"
	"plexmover/internal/testsupport"
	"plexmover/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	torrents   *testsupport.FakeTorrents
	daemon     *daemon.Daemon
	apiAddr    string
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "plexmover", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	st := testsupport.MustOpenStore(t, cfg)
	torrents := testsupport.NewFakeTorrents()
	logger := logging.NewNop()
	engine := copyengine.New(logger, copyengine.WithGracePeriod(time.Millisecond))
	cat := catalog.NewService(cfg, st, nil, nil, logger)
	mv := mover.New(cfg, torrents, st, st, engine, nil, logger)
	fd := feeds.NewService(cfg, st, cat, logger)
	rules, manual := dispatch.RulesFromConfig(cfg)
	mgr := workflow.NewManager(cfg, workflow.Dependencies{
		Store:      st,
		Torrents:   torrents,
		Copies:     engine,
		Catalog:    cat,
		Dispatcher: dispatch.New(rules, manual, mv.Launch, logger),
		Sweeper:    mv,
		Feeds:      fd,
	}, logger)

	d, err := daemon.New(cfg, daemon.Components{
		Store:    st,
		Workflow: mgr,
		Mover:    mv,
		Copies:   engine,
		Catalog:  cat,
		Feeds:    fd,
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      st,
		torrents:   torrents,
		daemon:     d,
		apiAddr:    d.Address(),
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, apiAddr, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if apiAddr != "" {
		flags = append(flags, "--api", apiAddr)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nsource_dir = %q\nlibrary_dir = %q\nstate_dir = %q\nlog_dir = %q\napi_bind = %q\n\n[tmdb]\napi_key = %q\n",
		cfg.Paths.SourceDir,
		cfg.Paths.LibraryDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.TMDB.APIKey,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
