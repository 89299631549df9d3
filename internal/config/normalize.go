package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeElevenLabs()
	c.normalizeHeyGen()
	c.normalizeRender()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeActors()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ProjectsDir, err = expandPath(c.Paths.ProjectsDir); err != nil {
		return fmt.Errorf("paths.projects_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeElevenLabs() {
	c.ElevenLabs.APIKey = strings.TrimSpace(c.ElevenLabs.APIKey)
	if value, ok := os.LookupEnv("ELEVENLABS_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.ElevenLabs.APIKey = strings.TrimSpace(value)
	}
	c.ElevenLabs.BaseURL = strings.TrimSpace(c.ElevenLabs.BaseURL)
	if c.ElevenLabs.BaseURL == "" {
		c.ElevenLabs.BaseURL = defaultElevenLabsBaseURL
	}
	c.ElevenLabs.ModelID = strings.TrimSpace(c.ElevenLabs.ModelID)
	if c.ElevenLabs.ModelID == "" {
		c.ElevenLabs.ModelID = defaultElevenLabsModelID
	}
	if c.ElevenLabs.RequestTimeout <= 0 {
		c.ElevenLabs.RequestTimeout = defaultElevenLabsTimeout
	}
}

func (c *Config) normalizeHeyGen() {
	c.HeyGen.APIKey = strings.TrimSpace(c.HeyGen.APIKey)
	if value, ok := os.LookupEnv("HEYGEN_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.HeyGen.APIKey = strings.TrimSpace(value)
	}
	c.HeyGen.APIBaseURL = strings.TrimSpace(c.HeyGen.APIBaseURL)
	if c.HeyGen.APIBaseURL == "" {
		c.HeyGen.APIBaseURL = defaultHeyGenAPIBaseURL
	}
	c.HeyGen.UploadBaseURL = strings.TrimSpace(c.HeyGen.UploadBaseURL)
	if c.HeyGen.UploadBaseURL == "" {
		c.HeyGen.UploadBaseURL = defaultHeyGenUploadBaseURL
	}
	if c.HeyGen.RequestTimeout <= 0 {
		c.HeyGen.RequestTimeout = defaultHeyGenTimeout
	}
	if c.HeyGen.PollInterval <= 0 {
		c.HeyGen.PollInterval = defaultHeyGenPollInterval
	}
	if c.HeyGen.PollMaxAttempts <= 0 {
		c.HeyGen.PollMaxAttempts = defaultHeyGenPollMaxAttempts
	}
	if c.HeyGen.VideoWidth <= 0 {
		c.HeyGen.VideoWidth = defaultHeyGenVideoWidth
	}
	if c.HeyGen.VideoHeight <= 0 {
		c.HeyGen.VideoHeight = defaultHeyGenVideoHeight
	}
}

func (c *Config) normalizeRender() {
	c.Render.FitPolicy = strings.ToLower(strings.TrimSpace(c.Render.FitPolicy))
	if c.Render.FitPolicy == "" {
		c.Render.FitPolicy = defaultRenderFitPolicy
	}
	c.Render.MovieFilename = strings.TrimSpace(c.Render.MovieFilename)
	if c.Render.MovieFilename == "" {
		c.Render.MovieFilename = defaultRenderMovieFilename
	}
	c.Render.SlideBackground = strings.TrimSpace(c.Render.SlideBackground)
	if c.Render.SlideBackground == "" {
		c.Render.SlideBackground = defaultRenderSlideBackground
	}
	if c.Render.OverlaySeconds < 0 {
		c.Render.OverlaySeconds = defaultRenderOverlaySeconds
	}
}

func (c *Config) normalizeLedger() error {
	var err error
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = filepath.Join(c.Paths.LogDir, defaultLedgerFilename)
	}
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if value, ok := os.LookupEnv("NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(value)
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeActors() {
	for i := range c.Actors {
		actor := &c.Actors[i]
		actor.Name = strings.TrimSpace(actor.Name)
		actor.AudioProvider = strings.ToLower(strings.TrimSpace(actor.AudioProvider))
		actor.VideoProvider = strings.ToLower(strings.TrimSpace(actor.VideoProvider))
		actor.VoiceID = strings.TrimSpace(actor.VoiceID)
		actor.SpeechModel = strings.TrimSpace(actor.SpeechModel)
		actor.AvatarID = strings.TrimSpace(actor.AvatarID)
		actor.AvatarStyle = strings.TrimSpace(actor.AvatarStyle)
		if actor.AvatarStyle == "" {
			actor.AvatarStyle = defaultAvatarStyle
		}
		if actor.Speed == 0 {
			actor.Speed = defaultSpeechSpeed
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
