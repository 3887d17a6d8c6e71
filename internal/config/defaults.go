package config

const (
	defaultConfigPath           = "~/.config/plexmover/config.toml"
	defaultSourceDir            = "~/downloads/complete"
	defaultLibraryDir           = "~/library/movies"
	defaultStateDir             = "~/.local/share/plexmover"
	defaultLogDir               = "~/.local/share/plexmover/logs"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultQBHost               = "localhost"
	defaultQBPort               = 8080
	defaultQBUser               = "admin"
	defaultQBPass               = "adminpass"
	defaultQBTimeoutSeconds     = 15
	defaultTMDBBaseURL          = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL     = "https://image.tmdb.org/t/p"
	defaultTMDBLanguage         = "es-ES"
	defaultSpeedLimitMBps       = 10
	defaultPollIntervalMinutes  = 5
	defaultFeedCheckSeconds     = 10
	defaultFeedRefreshInterval  = 300
	defaultManualSearchTag      = "manual-search-autocopy"
	defaultTelegramAPIBaseURL   = "https://api.telegram.org"
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir:  defaultSourceDir,
			LibraryDir: defaultLibraryDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		QBittorrent: QBittorrent{
			Host:           defaultQBHost,
			Port:           defaultQBPort,
			Username:       defaultQBUser,
			Password:       defaultQBPass,
			TimeoutSeconds: defaultQBTimeoutSeconds,
		},
		TMDB: TMDB{
			BaseURL:      defaultTMDBBaseURL,
			ImageBaseURL: defaultTMDBImageBaseURL,
			Language:     defaultTMDBLanguage,
		},
		Copy: Copy{
			SpeedLimitMBps: defaultSpeedLimitMBps,
		},
		Workflow: Workflow{
			PollIntervalMinutes: defaultPollIntervalMinutes,
			FeedCheckSeconds:    defaultFeedCheckSeconds,
		},
		AutoMatch: AutoMatch{
			ManualSearchTag: defaultManualSearchTag,
		},
		Notifications: Notifications{
			TelegramAPIBaseURL: defaultTelegramAPIBaseURL,
			RequestTimeout:     defaultNotifyRequestTimeout,
			OnNewMovie:         true,
			OnDownloadComplete: true,
			OnMove:             true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
