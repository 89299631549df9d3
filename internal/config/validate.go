package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateActors(); err != nil {
		return err
	}
	if err := c.validateElevenLabs(); err != nil {
		return err
	}
	if err := c.validateHeyGen(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateActors() error {
	seen := make(map[string]struct{}, len(c.Actors))
	for i, actor := range c.Actors {
		if strings.TrimSpace(actor.Name) == "" {
			return fmt.Errorf("actor[%d].name must be set", i)
		}
		if _, dup := seen[actor.Name]; dup {
			return fmt.Errorf("actor %q is declared more than once", actor.Name)
		}
		seen[actor.Name] = struct{}{}
		switch actor.AudioProvider {
		case "", "heygen", "elevenlabs":
		default:
			return fmt.Errorf("actor %q: audio_provider must be \"heygen\" or \"elevenlabs\", got %q", actor.Name, actor.AudioProvider)
		}
		switch actor.VideoProvider {
		case "", "heygen":
		default:
			return fmt.Errorf("actor %q: video_provider must be \"heygen\", got %q", actor.Name, actor.VideoProvider)
		}
		if actor.Speed <= 0 {
			return fmt.Errorf("actor %q: speed must be positive", actor.Name)
		}
	}
	return nil
}

// RequiresElevenLabs reports whether any configured actor synthesizes speech
// through ElevenLabs.
func (c *Config) RequiresElevenLabs() bool {
	for _, actor := range c.Actors {
		if actor.AudioProvider == "elevenlabs" {
			return true
		}
	}
	return false
}

// RequiresHeyGen reports whether any configured actor renders video through
// HeyGen. Every castable actor does today, so this is true whenever a cast
// is configured.
func (c *Config) RequiresHeyGen() bool {
	return len(c.Actors) > 0
}

func (c *Config) validateElevenLabs() error {
	if c.RequiresElevenLabs() && c.ElevenLabs.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/clapper/config.toml"
		}
		return fmt.Errorf("elevenlabs.api_key is required when an actor uses audio_provider = \"elevenlabs\". Set ELEVENLABS_API_KEY env var or edit %s (create with 'clapper config init')", defaultPath)
	}
	if err := ensurePositiveMap(map[string]int{
		"elevenlabs.request_timeout": c.ElevenLabs.RequestTimeout,
	}); err != nil {
		return err
	}
	if strings.TrimSpace(c.ElevenLabs.BaseURL) == "" {
		return errors.New("elevenlabs.base_url must be set")
	}
	return nil
}

func (c *Config) validateHeyGen() error {
	if c.RequiresHeyGen() && c.HeyGen.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/clapper/config.toml"
		}
		return fmt.Errorf("heygen.api_key is required when actors are configured. Set HEYGEN_API_KEY env var or edit %s (create with 'clapper config init')", defaultPath)
	}
	if err := ensurePositiveMap(map[string]int{
		"heygen.request_timeout":   c.HeyGen.RequestTimeout,
		"heygen.poll_interval":     c.HeyGen.PollInterval,
		"heygen.poll_max_attempts": c.HeyGen.PollMaxAttempts,
		"heygen.video_width":       c.HeyGen.VideoWidth,
		"heygen.video_height":      c.HeyGen.VideoHeight,
	}); err != nil {
		return err
	}
	if strings.TrimSpace(c.HeyGen.APIBaseURL) == "" {
		return errors.New("heygen.api_base_url must be set")
	}
	if strings.TrimSpace(c.HeyGen.UploadBaseURL) == "" {
		return errors.New("heygen.upload_base_url must be set")
	}
	return nil
}

func (c *Config) validateRender() error {
	switch c.Render.FitPolicy {
	case "pad", "stretch":
	default:
		return fmt.Errorf("render.fit_policy must be \"pad\" or \"stretch\", got %q", c.Render.FitPolicy)
	}
	if strings.TrimSpace(c.Render.MovieFilename) == "" {
		return errors.New("render.movie_filename must be set")
	}
	if strings.ContainsAny(c.Render.MovieFilename, "/\\") {
		return errors.New("render.movie_filename must be a bare filename")
	}
	if c.Render.OverlaySeconds < 0 {
		return errors.New("render.overlay_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLedger() error {
	if c.Ledger.Enabled && strings.TrimSpace(c.Ledger.Path) == "" {
		return errors.New("ledger.path must be set when ledger.enabled is true")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
