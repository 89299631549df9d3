package actors

import (
	"fmt"
	"strings"

	"clapper/internal/config"
	"clapper/internal/services"
)

// SpeechMode says where a profile's speech audio comes from.
type SpeechMode string

const (
	// SpeechNative sends the paragraph text to HeyGen and lets the avatar's
	// configured voice speak it. No standalone audio artifact exists.
	SpeechNative SpeechMode = "native"
	// SpeechExternal synthesizes the paragraph with ElevenLabs, uploads the
	// audio as a HeyGen asset, and lip-syncs the avatar to it.
	SpeechExternal SpeechMode = "external"
)

// Profile is one validated actor. VoiceID names a HeyGen voice in native
// mode and an ElevenLabs voice in external mode; SpeechModel is set only in
// external mode.
type Profile struct {
	Name        string
	Mode        SpeechMode
	VoiceID     string
	SpeechModel string
	AvatarID    string
	AvatarStyle string
	Speed       float64
}

// External reports whether the profile routes speech through ElevenLabs.
func (p Profile) External() bool {
	return p.Mode == SpeechExternal
}

// Set holds the validated profiles keyed by actor name. Lookups are
// case-insensitive so script markup casing never hides a profile; digests
// and cache entry names still use the script's raw spelling.
type Set struct {
	byName map[string]Profile
	names  []string
}

// NewSet validates every configured actor row eagerly and returns the
// resulting profile set. Any malformed row fails the whole set so a bad
// profile surfaces at startup instead of mid-render.
func NewSet(cfg *config.Config) (*Set, error) {
	set := &Set{
		byName: make(map[string]Profile, len(cfg.Actors)),
		names:  make([]string, 0, len(cfg.Actors)),
	}
	for index, row := range cfg.Actors {
		profile, err := newProfile(row, cfg.ElevenLabs.ModelID)
		if err != nil {
			return nil, wrapRowError(index, row.Name, err)
		}
		key := strings.ToLower(profile.Name)
		if _, exists := set.byName[key]; exists {
			return nil, fmt.Errorf("%w: actor %q: configured more than once", services.ErrConfiguration, profile.Name)
		}
		set.byName[key] = profile
		set.names = append(set.names, profile.Name)
	}
	return set, nil
}

func wrapRowError(index int, name string, err error) error {
	if name = strings.TrimSpace(name); name == "" {
		return fmt.Errorf("%w: actor %d: %w", services.ErrConfiguration, index+1, err)
	}
	return fmt.Errorf("%w: actor %q: %w", services.ErrConfiguration, name, err)
}

func newProfile(row config.Actor, defaultSpeechModel string) (Profile, error) {
	name := strings.TrimSpace(row.Name)
	if name == "" {
		return Profile{}, fmt.Errorf("name is required")
	}

	profile := Profile{
		Name:        name,
		VoiceID:     strings.TrimSpace(row.VoiceID),
		SpeechModel: strings.TrimSpace(row.SpeechModel),
		AvatarID:    strings.TrimSpace(row.AvatarID),
		AvatarStyle: strings.TrimSpace(row.AvatarStyle),
		Speed:       row.Speed,
	}
	if profile.AvatarStyle == "" {
		profile.AvatarStyle = "normal"
	}
	if profile.Speed == 0 {
		profile.Speed = 1.0
	}
	if profile.Speed < 0 {
		return Profile{}, fmt.Errorf("speed must be positive")
	}
	if profile.AvatarID == "" {
		return Profile{}, fmt.Errorf("avatar_id is required")
	}

	switch strings.ToLower(strings.TrimSpace(row.VideoProvider)) {
	case "", "heygen":
	default:
		return Profile{}, fmt.Errorf("video_provider %q is not supported (use \"heygen\")", row.VideoProvider)
	}

	switch strings.ToLower(strings.TrimSpace(row.AudioProvider)) {
	case "", "heygen":
		profile.Mode = SpeechNative
		if profile.VoiceID == "" {
			return Profile{}, fmt.Errorf("voice_id is required for heygen speech")
		}
		if profile.SpeechModel != "" {
			return Profile{}, fmt.Errorf("speech_model only applies when audio_provider is \"elevenlabs\"")
		}
	case "elevenlabs":
		profile.Mode = SpeechExternal
		if profile.VoiceID == "" {
			return Profile{}, fmt.Errorf("voice_id is required for elevenlabs speech")
		}
		if profile.SpeechModel == "" {
			profile.SpeechModel = strings.TrimSpace(defaultSpeechModel)
		}
		if profile.SpeechModel == "" {
			return Profile{}, fmt.Errorf("speech_model is required for elevenlabs speech")
		}
	default:
		return Profile{}, fmt.Errorf("audio_provider %q is not supported (use \"heygen\" or \"elevenlabs\")", row.AudioProvider)
	}

	return profile, nil
}

// Lookup returns the profile for an actor name, matching case-insensitively.
// The second return is false when the script references an actor that was
// never configured.
func (s *Set) Lookup(name string) (Profile, bool) {
	profile, ok := s.byName[strings.ToLower(name)]
	return profile, ok
}

// Names returns the actor names in configuration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of configured profiles.
func (s *Set) Len() int {
	return len(s.names)
}

// Profiles returns the profiles in configuration order.
func (s *Set) Profiles() []Profile {
	out := make([]Profile, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.byName[strings.ToLower(name)])
	}
	return out
}
