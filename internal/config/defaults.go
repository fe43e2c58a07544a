package config

const (
	defaultStateDir         = "~/.local/share/snag"
	defaultDownloadDir      = "~/Downloads/snag"
	defaultFallbackDir      = "~/Downloads/snag"
	defaultMaxPerRun        = 5
	defaultReapAfterMinutes = 120
	defaultDownloadTimeout  = 1800
	defaultPreviewSeconds   = 4.0
	defaultPreviewFPS       = 12
	defaultPreviewWidth     = 480
	defaultPreviewMaxBytes  = 7_864_320 // Discord attachment comfort zone
	defaultPreviewTimeout   = 300
	defaultDiscordUsername  = "snag"
	defaultDiscordTimeout   = 30
	defaultPollInterval     = 60
	defaultCleanAfterHours  = 48
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:    defaultStateDir,
			DownloadDir: defaultDownloadDir,
			FallbackDir: defaultFallbackDir,
		},
		Queue: Queue{
			MaxPerRun:        defaultMaxPerRun,
			ReapAfterMinutes: defaultReapAfterMinutes,
		},
		Download: Download{
			TimeoutSeconds: defaultDownloadTimeout,
			ArchiveEnabled: true,
		},
		Preview: Preview{
			Enabled:        true,
			Seconds:        defaultPreviewSeconds,
			FPS:            defaultPreviewFPS,
			Width:          defaultPreviewWidth,
			MaxBytes:       defaultPreviewMaxBytes,
			TimeoutSeconds: defaultPreviewTimeout,
		},
		Discord: Discord{
			Username:       defaultDiscordUsername,
			RequestTimeout: defaultDiscordTimeout,
		},
		History: History{
			Enabled: true,
		},
		Watch: Watch{
			PollIntervalSeconds: defaultPollInterval,
		},
		Staging: Staging{
			CleanAfterHours: defaultCleanAfterHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
