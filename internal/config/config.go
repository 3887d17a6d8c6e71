package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	SourceDir  string `toml:"source_dir"`
	LibraryDir string `toml:"library_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// QBittorrent contains the torrent client Web UI connection settings.
type QBittorrent struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	ImageBaseURL string `toml:"image_base_url"`
	Language     string `toml:"language"`
}

// Copy contains copy engine settings.
type Copy struct {
	// SpeedLimitMBps is the aggregate cap shared by all concurrent copies.
	// Zero disables throttling.
	SpeedLimitMBps float64 `toml:"speed_limit_mbps"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	PollIntervalMinutes int  `toml:"poll_interval_minutes"`
	EnableScheduler     bool `toml:"enable_scheduler"`
	FeedCheckSeconds    int  `toml:"feed_check_seconds"`
}

// AutoMatch contains the manual-search auto-copy rule.
type AutoMatch struct {
	ManualSearchTag      string `toml:"manual_search_tag"`
	AutoCopyManualSearch bool   `toml:"auto_copy_manual_search"`
}

// Feed describes one RSS source. Label doubles as the torrent tag matched by
// the auto-copy dispatcher, evaluated in file order.
type Feed struct {
	Name            string `toml:"name"`
	URL             string `toml:"url"`
	Label           string `toml:"label"`
	AutoCopy        bool   `toml:"auto_copy"`
	Enabled         *bool  `toml:"enabled"`
	RefreshInterval int    `toml:"refresh_interval"`
}

// IsEnabled reports whether the feed participates in scheduled refreshes.
// Feeds are enabled unless explicitly disabled.
func (f Feed) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// Notifications contains ntfy and Telegram delivery settings.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	TelegramBotToken   string `toml:"telegram_bot_token"`
	TelegramChatID     string `toml:"telegram_chat_id"`
	TelegramAPIBaseURL string `toml:"telegram_api_base_url"`
	RequestTimeout     int    `toml:"request_timeout"`
	OnNewMovie         bool   `toml:"on_new_movie"`
	OnDownloadComplete bool   `toml:"on_download_complete"`
	OnMove             bool   `toml:"on_move"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for plexmover.
//
// Configuration sections by subsystem:
//   - Paths: source/library directories, state and logs, API bind address
//   - QBittorrent: torrent client connection
//   - TMDB: metadata enrichment for new catalog entries
//   - Copy: aggregate copy throughput cap
//   - Workflow: poll cadence and the auto-move sweep toggle
//   - AutoMatch: manual-search tag rule
//   - Feeds: RSS sources and their auto-copy labels
//   - Notifications: ntfy and Telegram settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	QBittorrent   QBittorrent   `toml:"qbittorrent"`
	TMDB          TMDB          `toml:"tmdb"`
	Copy          Copy          `toml:"copy"`
	Workflow      Workflow      `toml:"workflow"`
	AutoMatch     AutoMatch     `toml:"auto_match"`
	Feeds         []Feed        `toml:"feeds"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("plexmover.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.PosterDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// DatabasePath returns the SQLite catalog location inside the state directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "plexmover.db")
}

// PosterDir returns the directory that caches downloaded poster and backdrop images.
func (c *Config) PosterDir() string {
	return filepath.Join(c.Paths.StateDir, "posters")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "plexmoverd.lock")
}

// QBittorrentURL returns the Web UI base URL. Hosts without a scheme are
// treated as plain http.
func (c *Config) QBittorrentURL() string {
	host := strings.TrimRight(strings.TrimSpace(c.QBittorrent.Host), "/")
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	if c.QBittorrent.Port > 0 && !hasPort(host) {
		host += ":" + strconv.Itoa(c.QBittorrent.Port)
	}
	return host
}

func hasPort(url string) bool {
	rest := url[strings.Index(url, "://")+3:]
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		rest = rest[:slash]
	}
	if strings.HasPrefix(rest, "[") {
		return strings.Contains(rest, "]:")
	}
	return strings.Contains(rest, ":")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
