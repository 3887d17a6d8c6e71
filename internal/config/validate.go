package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateQBittorrent(); err != nil {
		return err
	}
	if err := c.validateCopy(); err != nil {
		return err
	}
	if err := c.validateFeeds(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		return errors.New("paths.source_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Paths.SourceDir == c.Paths.LibraryDir {
		return errors.New("paths.source_dir and paths.library_dir must differ")
	}
	return nil
}

func (c *Config) validateQBittorrent() error {
	if c.QBittorrent.Port < 0 || c.QBittorrent.Port > 65535 {
		return fmt.Errorf("qbittorrent.port %d out of range", c.QBittorrent.Port)
	}
	return nil
}

func (c *Config) validateCopy() error {
	if c.Copy.SpeedLimitMBps < 0 {
		return errors.New("copy.speed_limit_mbps must be >= 0 (0 disables throttling)")
	}
	return nil
}

func (c *Config) validateFeeds() error {
	seen := make(map[string]struct{}, len(c.Feeds))
	for i, feed := range c.Feeds {
		if feed.URL == "" {
			return fmt.Errorf("feeds[%d].url must be set", i)
		}
		if _, dup := seen[feed.Name]; dup {
			return fmt.Errorf("feeds[%d].name %q is duplicated", i, feed.Name)
		}
		seen[feed.Name] = struct{}{}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	hasToken := c.Notifications.TelegramBotToken != ""
	hasChat := c.Notifications.TelegramChatID != ""
	if hasToken != hasChat {
		return errors.New("notifications.telegram_bot_token and notifications.telegram_chat_id must be set together")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
