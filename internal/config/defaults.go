package config

const (
	defaultProjectsDir           = "~/.local/share/clapper/projects"
	defaultLogDir                = "~/.local/share/clapper/logs"
	defaultLogRetentionDays      = 60
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultElevenLabsBaseURL     = "https://api.elevenlabs.io"
	defaultElevenLabsModelID     = "eleven_multilingual_v2"
	defaultElevenLabsTimeout     = 30
	defaultHeyGenAPIBaseURL      = "https://api.heygen.com"
	defaultHeyGenUploadBaseURL   = "https://upload.heygen.com"
	defaultHeyGenTimeout         = 60
	defaultHeyGenPollInterval    = 10
	defaultHeyGenPollMaxAttempts = 100
	defaultHeyGenVideoWidth      = 1280
	defaultHeyGenVideoHeight     = 720
	defaultAvatarStyle           = "normal"
	defaultSpeechSpeed           = 1.0
	defaultRenderFitPolicy       = "pad"
	defaultRenderMovieFilename   = "final_movie.mp4"
	defaultRenderSlideBackground = "white"
	defaultRenderOverlaySeconds  = 3
	defaultNotifyRequestTimeout  = 10
	defaultLedgerEnabled         = true
	defaultLedgerFilename        = "ledger.db"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectsDir: defaultProjectsDir,
			LogDir:      defaultLogDir,
		},
		ElevenLabs: ElevenLabs{
			BaseURL:        defaultElevenLabsBaseURL,
			ModelID:        defaultElevenLabsModelID,
			RequestTimeout: defaultElevenLabsTimeout,
		},
		HeyGen: HeyGen{
			APIBaseURL:      defaultHeyGenAPIBaseURL,
			UploadBaseURL:   defaultHeyGenUploadBaseURL,
			RequestTimeout:  defaultHeyGenTimeout,
			PollInterval:    defaultHeyGenPollInterval,
			PollMaxAttempts: defaultHeyGenPollMaxAttempts,
			VideoWidth:      defaultHeyGenVideoWidth,
			VideoHeight:     defaultHeyGenVideoHeight,
		},
		Render: Render{
			FitPolicy:       defaultRenderFitPolicy,
			MovieFilename:   defaultRenderMovieFilename,
			SlideBackground: defaultRenderSlideBackground,
			OverlaySeconds:  defaultRenderOverlaySeconds,
		},
		Ledger: Ledger{
			Enabled: defaultLedgerEnabled,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyRequestTimeout,
			RenderStarted:   true,
			SceneRendered:   true,
			RenderCompleted: true,
			Errors:          true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
