package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"plexmover/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.TMDB.APIKey = "test"
	cfgVal.Paths.SourceDir = filepath.Join(base, "downloads")
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Copy.SpeedLimitMBps = 0
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Notifications.TelegramBotToken = ""
	cfgVal.Notifications.TelegramChatID = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := os.MkdirAll(builder.cfg.Paths.SourceDir, 0o755); err != nil {
		t.Fatalf("mkdir source dir: %v", err)
	}
	return builder.cfg
}

// WithTMDBKey sets the TMDB API key on the test config.
func WithTMDBKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.APIKey = key
	}
}

// WithTMDBBaseURL points TMDB calls (API and images) at a test server.
func WithTMDBBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.BaseURL = url
		b.cfg.TMDB.ImageBaseURL = url
	}
}

// WithSpeedLimit sets the aggregate copy bandwidth cap in MB/s.
func WithSpeedLimit(mbps float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Copy.SpeedLimitMBps = mbps
	}
}

// WithFeeds replaces the configured feeds.
func WithFeeds(feeds ...config.Feed) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Feeds = append([]config.Feed(nil), feeds...)
	}
}

// WithAutoCopyManualSearch toggles the manual-search auto-copy flag.
func WithAutoCopyManualSearch(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AutoMatch.AutoCopyManualSearch = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SourceDir)
}
