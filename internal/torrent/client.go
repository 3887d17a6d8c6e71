package torrent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	qbt "github.com/autobrr/go-qbittorrent"

	"plexmover/internal/config"
	"plexmover/internal/logging"
	"plexmover/internal/services"
)

// Client lists torrents from the download client.
type Client interface {
	ListItems(ctx context.Context) ([]Item, error)
	// GetItem returns nil when the hash is unknown to the client.
	GetItem(ctx context.Context, hash string) (*Item, error)
}

// webAPI is the subset of the qBittorrent client used here.
type webAPI interface {
	LoginCtx(ctx context.Context) error
	GetTorrentsCtx(ctx context.Context, o qbt.TorrentFilterOptions) ([]qbt.Torrent, error)
}

// QBittorrent implements Client against the qBittorrent Web UI.
type QBittorrent struct {
	api    webAPI
	logger *slog.Logger

	mu       sync.Mutex
	loggedIn bool
}

// NewQBittorrent builds a client from the [qbittorrent] config section.
func NewQBittorrent(cfg *config.Config, logger *slog.Logger) *QBittorrent {
	api := qbt.NewClient(qbt.Config{
		Host:     cfg.QBittorrentURL(),
		Username: cfg.QBittorrent.Username,
		Password: cfg.QBittorrent.Password,
		Timeout:  cfg.QBittorrent.TimeoutSeconds,
	})
	return newWithAPI(api, logger)
}

func newWithAPI(api webAPI, logger *slog.Logger) *QBittorrent {
	return &QBittorrent{api: api, logger: logging.NewComponentLogger(logger, "qbittorrent")}
}

// Login authenticates against the Web UI.
func (c *QBittorrent) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *QBittorrent) loginLocked(ctx context.Context) error {
	if err := c.api.LoginCtx(ctx); err != nil {
		c.loggedIn = false
		return services.Wrap(services.ErrExternalTool, "qbittorrent", "login", "authentication failed", err)
	}
	c.loggedIn = true
	return nil
}

// ListItems returns every torrent known to the client.
func (c *QBittorrent) ListItems(ctx context.Context) ([]Item, error) {
	torrents, err := c.torrents(ctx, qbt.TorrentFilterOptions{})
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(torrents))
	for _, t := range torrents {
		items = append(items, FromQBT(t))
	}
	return items, nil
}

// GetItem returns the torrent with hash, or nil when absent.
func (c *QBittorrent) GetItem(ctx context.Context, hash string) (*Item, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, nil
	}
	torrents, err := c.torrents(ctx, qbt.TorrentFilterOptions{Hashes: []string{hash}})
	if err != nil {
		return nil, err
	}
	for _, t := range torrents {
		if strings.EqualFold(t.Hash, hash) {
			item := FromQBT(t)
			return &item, nil
		}
	}
	return nil, nil
}

func (c *QBittorrent) torrents(ctx context.Context, opts qbt.TorrentFilterOptions) ([]qbt.Torrent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loggedIn {
		if err := c.loginLocked(ctx); err != nil {
			return nil, err
		}
	}
	torrents, err := c.api.GetTorrentsCtx(ctx, opts)
	if err == nil {
		return torrents, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.logger.Debug("torrent list failed; re-authenticating", logging.Error(err))
	if loginErr := c.loginLocked(ctx); loginErr != nil {
		return nil, loginErr
	}
	torrents, err = c.api.GetTorrentsCtx(ctx, opts)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "qbittorrent", "list torrents", fmt.Sprintf("%d hash filter(s)", len(opts.Hashes)), err)
	}
	return torrents, nil
}
