// Package config loads, normalizes, and validates plexmover configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and TELEGRAM_BOT_TOKEN. The Config type centralizes every knob
// the daemon and CLI need: staging and library directories, qBittorrent
// credentials, copy throttling, feed rules, and notification targets.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
