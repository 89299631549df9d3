package render

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"log/slog"

	"clapper/internal/actors"
	"clapper/internal/ledger"
	"clapper/internal/logging"
	"clapper/internal/media/ffmpeg"
	"clapper/internal/media/ffprobe"
	"clapper/internal/rendercache"
	"clapper/internal/script"
	"clapper/internal/services"
	"clapper/internal/services/elevenlabs"
)

// AudioRenderer materializes the speech tiers: per-paragraph audio and the
// concatenated scene narration. Every synthesis call is gated by the cache.
type AudioRenderer struct {
	cache      *rendercache.Store
	speech     elevenlabs.Synthesizer
	compositor *ffmpeg.Compositor
	actors     *actors.Set
	logger     *slog.Logger
	jobs       JobSink
	opts       Options
}

// NewAudioRenderer constructs the audio renderer.
func NewAudioRenderer(deps Deps, opts Options) *AudioRenderer {
	return &AudioRenderer{
		cache:      deps.Cache,
		speech:     deps.Speech,
		compositor: deps.Compositor,
		actors:     deps.Actors,
		logger:     logging.NewComponentLogger(deps.Logger, "audio-renderer"),
		jobs:       deps.Jobs,
		opts:       opts.normalized(),
	}
}

// EnsureParagraphAudio returns a trusted paragraph-audio artifact, hitting
// the provider only on a cache miss. Failures carry skip-paragraph
// dispositions: a bad paragraph costs itself, not the scene.
func (a *AudioRenderer) EnsureParagraphAudio(ctx context.Context, scene *script.Scene, paragraph script.Paragraph, profile actors.Profile) (string, error) {
	entry := a.cache.ParagraphAudio(scene, paragraph)
	producer := speechProducer(profile)
	if a.cache.Present(entry, producer) {
		a.logger.Debug("paragraph audio cache hit",
			logging.String(logging.FieldTier, string(entry.Tier)),
			logging.String(logging.FieldActor, paragraph.Actor))
		return entry.Path, nil
	}

	start := time.Now()
	payload, err := a.speech.Synthesize(ctx, elevenlabs.Request{
		Text:    paragraph.Text,
		VoiceID: profile.VoiceID,
		ModelID: profile.SpeechModel,
		Speed:   profile.Speed,
	})
	a.record(ctx, ledger.Job{
		Provider:        ledger.ProviderElevenLabs,
		Kind:            ledger.KindSpeech,
		SceneDigest:     scene.Digest(),
		ParagraphDigest: paragraph.Digest(),
		Actor:           paragraph.Actor,
		Status:          jobStatus(err),
		Duration:        time.Since(start),
		ErrorMessage:    errMessage(err),
	})
	if err != nil {
		return "", err
	}

	staged := a.cache.StagingPath(entry)
	if err := os.WriteFile(staged, payload, 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "speech", "stage audio", entry.Path, err)
	}
	if _, err := ffprobe.VerifyAudio(ctx, a.opts.FFprobeBinary, staged); err != nil {
		_ = os.Remove(staged)
		return "", services.Wrap(services.ErrProviderJobFailed, "elevenlabs", "validate audio",
			fmt.Sprintf("actor %s", paragraph.Actor), err)
	}
	if err := a.cache.Publish(entry, staged, producer); err != nil {
		_ = os.Remove(staged)
		return "", services.Wrap(services.ErrComposition, "cache", "publish paragraph audio", "", err)
	}
	return entry.Path, nil
}

// EnsureSceneAudio returns a trusted scene_audio_complete artifact plus the
// number of paragraphs dropped along the way. The presence check is derived:
// the concatenated file counts only when every constituent paragraph audio
// is itself trusted.
func (a *AudioRenderer) EnsureSceneAudio(ctx context.Context, scene *script.Scene) (string, int, error) {
	type member struct {
		index     int
		paragraph script.Paragraph
		profile   actors.Profile
	}

	members := make([]member, 0, len(scene.Paragraphs))
	cast := make([]script.Paragraph, 0, len(scene.Paragraphs))
	producers := make(map[string]rendercache.Producer, len(scene.Paragraphs))
	dropped := 0
	for i, paragraph := range scene.Paragraphs {
		pctx := services.WithParagraph(ctx, i+1)
		profile, ok := a.actors.Lookup(paragraph.Actor)
		if !ok {
			dropped++
			logging.WarnWithContext(logging.WithContext(pctx, a.logger),
				"actor has no profile; dropping paragraph", "unknown_actor",
				logging.String(logging.FieldActor, paragraph.Actor),
				logging.String(logging.FieldImpact, "paragraph missing from scene audio"),
				logging.String(logging.FieldErrorHint, "add an [[actor]] entry to the config"))
			continue
		}
		if !profile.External() {
			// Native-voice speech exists only inside HeyGen clips; there is
			// no standalone audio artifact to concatenate.
			dropped++
			logging.WarnWithContext(logging.WithContext(pctx, a.logger),
				"actor has no standalone voice; dropping paragraph", "native_voice_audio",
				logging.String(logging.FieldActor, paragraph.Actor),
				logging.String(logging.FieldImpact, "paragraph missing from scene audio"),
				logging.String(logging.FieldErrorHint, "set audio_provider = \"elevenlabs\" for this actor"))
			continue
		}
		members = append(members, member{index: i, paragraph: paragraph, profile: profile})
		cast = append(cast, paragraph)
		producers[strings.ToLower(paragraph.Actor)] = speechProducer(profile)
	}
	if len(members) == 0 {
		return "", dropped, services.Wrap(services.ErrSceneEmpty, "speech", "scene audio",
			fmt.Sprintf("no castable paragraphs among %d", len(scene.Paragraphs)), nil)
	}

	entry := a.cache.SceneAudio(scene)
	if dropped == 0 {
		complete := sceneAudioProducer(cast)
		if a.cache.SceneAudioPresent(scene, complete, producers) {
			a.logger.Debug("scene audio cache hit",
				logging.String(logging.FieldTier, string(entry.Tier)))
			return entry.Path, 0, nil
		}
	}

	if _, err := a.cache.EnsureSceneDir(scene); err != nil {
		return "", dropped, services.Wrap(services.ErrTransient, "speech", "scene audio", "", err)
	}

	inputs := make([]string, 0, len(members))
	included := make([]script.Paragraph, 0, len(members))
	for _, m := range members {
		pctx := services.WithParagraph(ctx, m.index+1)
		path, err := a.EnsureParagraphAudio(pctx, scene, m.paragraph, m.profile)
		if err != nil {
			if services.FailureDisposition(err) != services.DispositionSkipParagraph {
				return "", dropped, err
			}
			dropped++
			logging.WarnWithContext(logging.WithContext(pctx, a.logger),
				"paragraph audio failed; dropping paragraph", "paragraph_audio_failed",
				logging.String(logging.FieldActor, m.paragraph.Actor),
				logging.Error(err),
				logging.String(logging.FieldImpact, "paragraph missing from scene audio"))
			continue
		}
		inputs = append(inputs, path)
		included = append(included, m.paragraph)
	}
	if len(inputs) == 0 {
		return "", dropped, services.Wrap(services.ErrSceneEmpty, "speech", "scene audio",
			"every paragraph dropped", nil)
	}

	// The stamp encodes the surviving paragraph set; a re-render with a
	// different mix never trusts this artifact.
	complete := sceneAudioProducer(included)
	if a.cache.Present(entry, complete) {
		return entry.Path, dropped, nil
	}

	staged := a.cache.StagingPath(entry)
	if err := a.compositor.ConcatenateAudio(ctx, inputs, staged); err != nil {
		return "", dropped, err
	}
	if _, err := ffprobe.VerifyAudio(ctx, a.opts.FFprobeBinary, staged); err != nil {
		_ = os.Remove(staged)
		return "", dropped, services.Wrap(services.ErrComposition, "speech", "validate scene audio", "", err)
	}
	if err := a.cache.Publish(entry, staged, complete); err != nil {
		_ = os.Remove(staged)
		return "", dropped, services.Wrap(services.ErrComposition, "cache", "publish scene audio", "", err)
	}
	a.logger.Info("scene audio assembled",
		logging.String(logging.FieldEventType, "scene_audio_complete"),
		logging.Int("paragraphs", len(inputs)),
		logging.Int("dropped", dropped))
	return entry.Path, dropped, nil
}

func (a *AudioRenderer) record(ctx context.Context, job ledger.Job) {
	recordJob(ctx, a.jobs, a.logger, job)
}
