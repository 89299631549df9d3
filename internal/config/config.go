package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ProjectsDir string `toml:"projects_dir"`
	LogDir      string `toml:"log_dir"`
}

// ElevenLabs contains configuration for the ElevenLabs speech synthesis API.
type ElevenLabs struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ModelID        string `toml:"model_id"`
	RequestTimeout int    `toml:"request_timeout"`
}

// HeyGen contains configuration for the HeyGen avatar video API.
type HeyGen struct {
	APIKey          string `toml:"api_key"`
	APIBaseURL      string `toml:"api_base_url"`
	UploadBaseURL   string `toml:"upload_base_url"`
	RequestTimeout  int    `toml:"request_timeout"`
	PollInterval    int    `toml:"poll_interval"`
	PollMaxAttempts int    `toml:"poll_max_attempts"`
	VideoWidth      int    `toml:"video_width"`
	VideoHeight     int    `toml:"video_height"`
}

// Render contains configuration for scene and movie composition.
type Render struct {
	FitPolicy       string  `toml:"fit_policy"`
	MovieFilename   string  `toml:"movie_filename"`
	SlideBackground string  `toml:"slide_background"`
	OverlaySeconds  float64 `toml:"overlay_seconds"`
}

// Actor describes one castable voice/avatar entry as written in the config
// file. The actors package turns these raw rows into validated profiles.
type Actor struct {
	Name          string  `toml:"name"`
	AudioProvider string  `toml:"audio_provider"`
	VideoProvider string  `toml:"video_provider"`
	VoiceID       string  `toml:"voice_id"`
	SpeechModel   string  `toml:"speech_model"`
	AvatarID      string  `toml:"avatar_id"`
	AvatarStyle   string  `toml:"avatar_style"`
	Speed         float64 `toml:"speed"`
}

// Ledger contains configuration for the render history database.
type Ledger struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic       string `toml:"ntfy_topic"`
	RequestTimeout  int    `toml:"request_timeout"`
	RenderStarted   bool   `toml:"render_started"`
	SceneRendered   bool   `toml:"scene_rendered"`
	RenderCompleted bool   `toml:"render_completed"`
	Errors          bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	RetentionDays  int               `toml:"retention_days"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for Clapper.
//
// Configuration sections by subsystem:
//   - Paths: project workspace and log directories
//   - ElevenLabs: external speech synthesis
//   - HeyGen: avatar video generation and asset upload
//   - Render: ffmpeg composition policies and output naming
//   - Actors: the cast available to scripts ([[actor]] tables)
//   - Ledger: render session history database
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, retention, and per-stage overrides
type Config struct {
	Paths         Paths         `toml:"paths"`
	ElevenLabs    ElevenLabs    `toml:"elevenlabs"`
	HeyGen        HeyGen        `toml:"heygen"`
	Render        Render        `toml:"render"`
	Actors        []Actor       `toml:"actor"`
	Ledger        Ledger        `toml:"ledger"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clapper/config.toml")
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

	defaultPath, err := expandPath("~/.config/clapper/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clapper.toml")
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

// EnsureDirectories creates the directories a render run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ProjectsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for composition.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media validation.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// ActorNames returns the configured actor names in declaration order.
func (c *Config) ActorNames() []string {
	names := make([]string, 0, len(c.Actors))
	for _, actor := range c.Actors {
		names = append(names, actor.Name)
	}
	return names
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
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
