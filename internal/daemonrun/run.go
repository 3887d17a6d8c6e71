package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"plexmover/internal/catalog"
	"plexmover/internal/config"
	"plexmover/internal/copyengine"
	"plexmover/internal/daemon"
	"plexmover/internal/dispatch"
	"plexmover/internal/feeds"
	"plexmover/internal/logging"
	"plexmover/internal/mover"
	"plexmover/internal/notifications"
	"plexmover/internal/preflight"
	"plexmover/internal/store"
	"plexmover/internal/torrent"
	"plexmover/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the plexmover daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "plexmover.log")
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldSessionID, uuid.NewString()))

	logConfigSnapshot(logger, cfg)
	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open catalog store", logging.Error(err))
		return err
	}

	client := torrent.NewQBittorrent(cfg, logger)
	runPreflight(signalCtx, logger, cfg, client)

	notifier := notifications.NewService(cfg)
	engine := copyengine.New(logger)
	cat := catalog.NewService(cfg, st, catalog.MetadataFromConfig(cfg), notifier, logger)
	mv := mover.New(cfg, client, st, st, engine, notifier, logger)
	rules, manual := dispatch.RulesFromConfig(cfg)
	fetcher := feeds.NewFetcher(time.Duration(cfg.Notifications.RequestTimeout) * time.Second)
	feedSvc := feeds.NewService(cfg, st, cat, logger, feeds.WithSource(fetcher))

	manager := workflow.NewManager(cfg, workflow.Dependencies{
		Store:      st,
		Torrents:   client,
		Copies:     engine,
		Catalog:    cat,
		Dispatcher: dispatch.New(rules, manual, mv.Launch, logger),
		Sweeper:    mv,
		Feeds:      feedSvc,
		Notifier:   notifier,
	}, logger)

	d, err := daemon.New(cfg, daemon.Components{
		Store:    st,
		Workflow: manager,
		Mover:    mv,
		Copies:   engine,
		Catalog:  cat,
		Feeds:    feedSvc,
		Fetcher:  fetcher,
		Notifier: notifier,
	}, logger)
	if err != nil {
		st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("plexmover daemon shutting down")
	return nil
}

// PIDPath returns where the running daemon records its process id.
func PIDPath(cfg *config.Config) string {
	if cfg == nil || strings.TrimSpace(cfg.Paths.StateDir) == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.StateDir, "plexmoverd.pid")
}

func runPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config, client preflight.Loginer) {
	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	for _, result := range preflight.RunAll(checkCtx, cfg, client) {
		if result.Passed {
			logger.Debug("preflight check passed", logging.String("check", result.Name))
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the path or credentials in config.toml"),
			logging.String(logging.FieldImpact, "moves or polling may fail until resolved"),
		)
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	enabledFeeds := 0
	for _, feed := range cfg.Feeds {
		if feed.IsEnabled() {
			enabledFeeds++
		}
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("source_dir", cfg.Paths.SourceDir),
		logging.String("library_dir", cfg.Paths.LibraryDir),
		logging.String("qbittorrent", cfg.QBittorrentURL()),
		logging.Bool("tmdb_key_present", strings.TrimSpace(cfg.TMDB.APIKey) != ""),
		logging.Int("poll_interval_minutes", cfg.Workflow.PollIntervalMinutes),
		logging.Bool("auto_move", cfg.Workflow.EnableScheduler),
		logging.Float64("speed_limit_mbps", cfg.Copy.SpeedLimitMBps),
		logging.Int("feeds_enabled", enabledFeeds),
		logging.Bool("ntfy", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("telegram", strings.TrimSpace(cfg.Notifications.TelegramBotToken) != ""),
	)
}
