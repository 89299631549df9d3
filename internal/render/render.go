package render

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"log/slog"

	"clapper/internal/actors"
	"clapper/internal/jobpoll"
	"clapper/internal/ledger"
	"clapper/internal/logging"
	"clapper/internal/media/ffmpeg"
	"clapper/internal/rendercache"
	"clapper/internal/script"
	"clapper/internal/services/elevenlabs"
	"clapper/internal/services/heygen"
)

// Mode selects how scenes are rendered.
type Mode string

const (
	// ModeAvatar composes per-paragraph avatar clips into the scene video.
	ModeAvatar Mode = "avatar"
	// ModeSlides renders each scene as a title slide over the scene audio.
	ModeSlides Mode = "slides"
)

// ParseMode validates a mode flag value.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ModeAvatar):
		return ModeAvatar, nil
	case string(ModeSlides):
		return ModeSlides, nil
	default:
		return "", fmt.Errorf("unknown render mode %q (use %q or %q)", value, ModeAvatar, ModeSlides)
	}
}

// Options carries the render parameters that shape artifacts. They feed the
// producer stamps, so changing any of them re-renders affected tiers instead
// of trusting stale cache entries.
type Options struct {
	Mode            Mode
	FitPolicy       string
	Width           int
	Height          int
	OverlaySeconds  float64
	SlideBackground string
	FFprobeBinary   string
}

func (o Options) normalized() Options {
	if o.Mode == "" {
		o.Mode = ModeAvatar
	}
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	if strings.TrimSpace(o.FitPolicy) == "" {
		o.FitPolicy = "pad"
	}
	if o.OverlaySeconds <= 0 {
		o.OverlaySeconds = 3
	}
	if strings.TrimSpace(o.SlideBackground) == "" {
		o.SlideBackground = "white"
	}
	if strings.TrimSpace(o.FFprobeBinary) == "" {
		o.FFprobeBinary = "ffprobe"
	}
	return o
}

func (o Options) canvas() string {
	return strconv.Itoa(o.Width) + "x" + strconv.Itoa(o.Height)
}

// speechProducer stamps paragraph audio with the parameters that shape it:
// provider voice, model, and speed.
func speechProducer(profile actors.Profile) rendercache.Producer {
	return rendercache.Producer{
		Name:  "elevenlabs",
		Stamp: fmt.Sprintf("%s/%s@%s", profile.VoiceID, profile.SpeechModel, formatSpeed(profile.Speed)),
	}
}

// clipProducer stamps paragraph video with avatar, style, speed, voice
// routing, and the canvas requested from the provider.
func clipProducer(profile actors.Profile, opts Options) rendercache.Producer {
	voice := "text:" + profile.VoiceID
	if profile.External() {
		voice = "audio:" + profile.VoiceID + "/" + profile.SpeechModel
	}
	return rendercache.Producer{
		Name: "heygen",
		Stamp: fmt.Sprintf("%s/%s@%s %s %s",
			profile.AvatarID, profile.AvatarStyle, formatSpeed(profile.Speed), voice, opts.canvas()),
	}
}

// sceneAudioProducer stamps the concatenated narration with the set of
// constituent paragraph digests, so a different surviving-paragraph mix never
// reads as a hit.
func sceneAudioProducer(paragraphs []script.Paragraph) rendercache.Producer {
	sum := md5.New()
	for _, paragraph := range paragraphs {
		io.WriteString(sum, paragraph.Digest())
	}
	return rendercache.Producer{
		Name:  "audio-concat",
		Stamp: hex.EncodeToString(sum.Sum(nil)),
	}
}

// sceneFinalProducer distinguishes avatar composition from slide rendering,
// so switching modes re-renders the scene instead of trusting the other
// mode's artifact.
func sceneFinalProducer(opts Options) rendercache.Producer {
	if opts.Mode == ModeSlides {
		return rendercache.Producer{
			Name:  "slide",
			Stamp: fmt.Sprintf("%s %s", opts.SlideBackground, opts.canvas()),
		}
	}
	return rendercache.Producer{
		Name:  "compositor",
		Stamp: fmt.Sprintf("%s %s overlay@%s", opts.FitPolicy, opts.canvas(), formatSpeed(opts.OverlaySeconds)),
	}
}

func formatSpeed(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// JobSink receives one record per provider interaction. The ledger store
// satisfies it; a nil sink disables recording.
type JobSink interface {
	RecordJob(ctx context.Context, job ledger.Job) error
}

// Deps bundles the collaborators the renderers share.
type Deps struct {
	Cache      *rendercache.Store
	Actors     *actors.Set
	Speech     elevenlabs.Synthesizer
	Video      heygen.Service
	Compositor *ffmpeg.Compositor
	Poller     *jobpoll.Poller
	Logger     *slog.Logger
	Jobs       JobSink
}

// SceneResult reports one scene's outcome.
type SceneResult struct {
	Path              string
	Cached            bool
	ParagraphsDropped int
}

func jobStatus(err error) string {
	if err == nil {
		return ledger.JobSucceeded
	}
	return ledger.JobFailed
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// recordJob writes a ledger entry, tolerating a nil sink. Recording never
// blocks rendering: a failed write is logged and dropped.
func recordJob(ctx context.Context, sink JobSink, logger *slog.Logger, job ledger.Job) {
	if sink == nil {
		return
	}
	if err := sink.RecordJob(ctx, job); err != nil && logger != nil {
		logger.Warn("provider job not recorded",
			logging.String(logging.FieldEventType, "ledger_write_failed"),
			logging.String(logging.FieldProvider, job.Provider),
			logging.Error(err))
	}
}
