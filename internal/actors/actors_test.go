package actors

import (
	"errors"
	"strings"
	"testing"

	"clapper/internal/config"
	"clapper/internal/services"
)

func TestNewSetBuildsProfiles(t *testing.T) {
	cfg := config.Default()
	cfg.Actors = []config.Actor{
		{Name: "narrator", VoiceID: "hg-voice-1", AvatarID: "avatar-1"},
		{
			Name:          "actor1",
			AudioProvider: "elevenlabs",
			VideoProvider: "heygen",
			VoiceID:       "el-voice-2",
			AvatarID:      "avatar-2",
			AvatarStyle:   "closeUp",
			Speed:         1.2,
		},
	}

	set, err := NewSet(&cfg)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("Len = %d, want 2", set.Len())
	}
	if names := set.Names(); len(names) != 2 || names[0] != "narrator" || names[1] != "actor1" {
		t.Errorf("Names = %v, want configuration order", names)
	}

	narrator, ok := set.Lookup("narrator")
	if !ok {
		t.Fatal("narrator profile missing")
	}
	if narrator.Mode != SpeechNative {
		t.Errorf("narrator mode = %q, want %q", narrator.Mode, SpeechNative)
	}
	if narrator.External() {
		t.Error("narrator.External() = true, want false")
	}
	if narrator.AvatarStyle != "normal" {
		t.Errorf("narrator avatar style = %q, want default normal", narrator.AvatarStyle)
	}
	if narrator.Speed != 1.0 {
		t.Errorf("narrator speed = %v, want default 1.0", narrator.Speed)
	}
	if narrator.SpeechModel != "" {
		t.Errorf("narrator speech model = %q, want empty for native speech", narrator.SpeechModel)
	}

	external, ok := set.Lookup("actor1")
	if !ok {
		t.Fatal("actor1 profile missing")
	}
	if !external.External() {
		t.Error("actor1.External() = false, want true")
	}
	if external.SpeechModel != cfg.ElevenLabs.ModelID {
		t.Errorf("actor1 speech model = %q, want default %q", external.SpeechModel, cfg.ElevenLabs.ModelID)
	}
	if external.AvatarStyle != "closeUp" {
		t.Errorf("actor1 avatar style = %q, want closeUp", external.AvatarStyle)
	}
	if external.Speed != 1.2 {
		t.Errorf("actor1 speed = %v, want 1.2", external.Speed)
	}

	if _, ok := set.Lookup("Narrator"); !ok {
		t.Error("Lookup should match actor names case-insensitively")
	}
	if _, ok := set.Lookup("ghost"); ok {
		t.Error("Lookup(ghost) found a profile that was never configured")
	}
}

func TestNewSetRejectsMalformedRows(t *testing.T) {
	valid := config.Actor{Name: "narrator", VoiceID: "v1", AvatarID: "a1"}

	cases := []struct {
		name    string
		actors  []config.Actor
		wantMsg string
	}{
		{
			name:    "missing name",
			actors:  []config.Actor{{VoiceID: "v1", AvatarID: "a1"}},
			wantMsg: "name is required",
		},
		{
			name:    "missing avatar",
			actors:  []config.Actor{{Name: "narrator", VoiceID: "v1"}},
			wantMsg: "avatar_id is required",
		},
		{
			name:    "native without voice",
			actors:  []config.Actor{{Name: "narrator", AvatarID: "a1"}},
			wantMsg: "voice_id is required for heygen speech",
		},
		{
			name: "external without voice",
			actors: []config.Actor{
				{Name: "narrator", AudioProvider: "elevenlabs", AvatarID: "a1"},
			},
			wantMsg: "voice_id is required for elevenlabs speech",
		},
		{
			name: "speech model on native profile",
			actors: []config.Actor{
				{Name: "narrator", VoiceID: "v1", AvatarID: "a1", SpeechModel: "eleven_turbo_v2"},
			},
			wantMsg: "speech_model only applies",
		},
		{
			name: "unknown audio provider",
			actors: []config.Actor{
				{Name: "narrator", AudioProvider: "polly", VoiceID: "v1", AvatarID: "a1"},
			},
			wantMsg: `audio_provider "polly"`,
		},
		{
			name: "unknown video provider",
			actors: []config.Actor{
				{Name: "narrator", VideoProvider: "runway", VoiceID: "v1", AvatarID: "a1"},
			},
			wantMsg: `video_provider "runway"`,
		},
		{
			name: "negative speed",
			actors: []config.Actor{
				{Name: "narrator", VoiceID: "v1", AvatarID: "a1", Speed: -0.5},
			},
			wantMsg: "speed must be positive",
		},
		{
			name:    "duplicate name",
			actors:  []config.Actor{valid, valid},
			wantMsg: "configured more than once",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Actors = tc.actors
			_, err := NewSet(&cfg)
			if err == nil {
				t.Fatal("NewSet accepted a malformed row")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Errorf("error is not ErrConfiguration: %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tc.wantMsg)
			}
		})
	}
}

func TestNewSetExternalSpeechModelFallback(t *testing.T) {
	cfg := config.Default()
	cfg.ElevenLabs.ModelID = ""
	cfg.Actors = []config.Actor{
		{Name: "narrator", AudioProvider: "elevenlabs", VoiceID: "v1", AvatarID: "a1"},
	}
	_, err := NewSet(&cfg)
	if err == nil {
		t.Fatal("NewSet accepted external speech with no model anywhere")
	}
	if !strings.Contains(err.Error(), "speech_model is required") {
		t.Errorf("error %q does not mention the missing speech model", err)
	}

	cfg.Actors[0].SpeechModel = "eleven_turbo_v2"
	set, err := NewSet(&cfg)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	profile, _ := set.Lookup("narrator")
	if profile.SpeechModel != "eleven_turbo_v2" {
		t.Errorf("speech model = %q, want explicit row value", profile.SpeechModel)
	}
}

func TestNewSetEmpty(t *testing.T) {
	cfg := config.Default()
	set, err := NewSet(&cfg)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("Len = %d, want 0", set.Len())
	}
	if _, ok := set.Lookup("narrator"); ok {
		t.Error("empty set resolved a profile")
	}
}
