package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"log/slog"

	"clapper/internal/actors"
	"clapper/internal/jobpoll"
	"clapper/internal/ledger"
	"clapper/internal/logging"
	"clapper/internal/media/ffmpeg"
	"clapper/internal/media/ffprobe"
	"clapper/internal/rendercache"
	"clapper/internal/script"
	"clapper/internal/services"
	"clapper/internal/services/heygen"
)

// SceneRenderer produces one trusted scene-final artifact per scene in
// avatar mode: a cache-gated avatar clip per paragraph, concatenated and
// optionally title-overlaid. Paragraph failures cost the paragraph; the
// scene renders with the survivors.
type SceneRenderer struct {
	cache      *rendercache.Store
	actors     *actors.Set
	video      heygen.Service
	compositor *ffmpeg.Compositor
	poller     *jobpoll.Poller
	audio      *AudioRenderer
	logger     *slog.Logger
	jobs       JobSink
	opts       Options
}

// NewSceneRenderer constructs the avatar-mode scene renderer.
func NewSceneRenderer(deps Deps, opts Options) *SceneRenderer {
	return &SceneRenderer{
		cache:      deps.Cache,
		actors:     deps.Actors,
		video:      deps.Video,
		compositor: deps.Compositor,
		poller:     deps.Poller,
		audio:      NewAudioRenderer(deps, opts),
		logger:     logging.NewComponentLogger(deps.Logger, "scene-renderer"),
		jobs:       deps.Jobs,
		opts:       opts.normalized(),
	}
}

// RenderScene returns the scene-final artifact path, rendering it if the
// cache holds no trusted entry. The scene-final check runs before any
// paragraph work, so a fully cached scene costs zero provider calls.
func (r *SceneRenderer) RenderScene(ctx context.Context, scene *script.Scene) (SceneResult, error) {
	final := r.cache.SceneFinal(scene)
	producer := sceneFinalProducer(r.opts)
	if r.cache.Present(final, producer) {
		r.logger.Info("scene final cache hit",
			logging.Args(logging.DecisionAttrs("cache", "hit", "trusted scene-final manifest")...)...)
		return SceneResult{Path: final.Path, Cached: true}, nil
	}

	if _, err := r.cache.EnsureSceneDir(scene); err != nil {
		return SceneResult{}, services.Wrap(services.ErrTransient, "scene", "prepare cache dir", "", err)
	}

	clips := make([]string, 0, len(scene.Paragraphs))
	dropped := 0
	for i, paragraph := range scene.Paragraphs {
		pctx := services.WithParagraph(ctx, i+1)
		clip, err := r.ensureParagraphClip(pctx, scene, paragraph)
		if err != nil {
			if services.FailureDisposition(err) != services.DispositionSkipParagraph {
				return SceneResult{}, err
			}
			dropped++
			logging.WarnWithContext(logging.WithContext(pctx, r.logger),
				"paragraph dropped", "paragraph_dropped",
				logging.String(logging.FieldActor, paragraph.Actor),
				logging.Error(err),
				logging.String(logging.FieldImpact, "scene renders without this paragraph"))
			continue
		}
		clips = append(clips, clip)
	}
	if len(clips) == 0 {
		return SceneResult{}, services.Wrap(services.ErrSceneEmpty, "scene", "assemble",
			fmt.Sprintf("all %d paragraphs dropped", len(scene.Paragraphs)), nil)
	}

	staged := r.cache.StagingPath(final)
	if title := overlayTitle(scene); title != "" {
		plain := staged + ".concat.mp4"
		if err := r.compositor.Concatenate(ctx, clips, plain); err != nil {
			return SceneResult{}, err
		}
		err := r.compositor.OverlayTitle(ctx, plain, title, r.opts.OverlaySeconds, staged)
		_ = os.Remove(plain)
		if err != nil {
			return SceneResult{}, err
		}
	} else if err := r.compositor.Concatenate(ctx, clips, staged); err != nil {
		return SceneResult{}, err
	}

	if _, err := ffprobe.VerifyVideo(ctx, r.opts.FFprobeBinary, staged); err != nil {
		_ = os.Remove(staged)
		return SceneResult{}, services.Wrap(services.ErrComposition, "scene", "validate composition", "", err)
	}
	if err := r.cache.Publish(final, staged, producer); err != nil {
		_ = os.Remove(staged)
		return SceneResult{}, services.Wrap(services.ErrComposition, "cache", "publish scene final", "", err)
	}
	r.logger.Info("scene rendered",
		logging.String(logging.FieldEventType, "scene_rendered"),
		logging.Int("clips", len(clips)),
		logging.Int("dropped", dropped))
	return SceneResult{Path: final.Path, Cached: false, ParagraphsDropped: dropped}, nil
}

// ensureParagraphClip returns a trusted paragraph-video artifact. The video
// tier is checked before any audio work, so a cached clip skips speech
// synthesis entirely even for externally voiced actors.
func (r *SceneRenderer) ensureParagraphClip(ctx context.Context, scene *script.Scene, paragraph script.Paragraph) (string, error) {
	profile, ok := r.actors.Lookup(paragraph.Actor)
	if !ok {
		return "", services.Wrap(services.ErrUnknownActor, "scene", "cast",
			fmt.Sprintf("actor %q has no profile", paragraph.Actor), nil)
	}

	entry := r.cache.ParagraphVideo(scene, paragraph)
	producer := clipProducer(profile, r.opts)
	if r.cache.Present(entry, producer) {
		r.logger.Debug("paragraph video cache hit",
			logging.String(logging.FieldTier, string(entry.Tier)),
			logging.String(logging.FieldActor, paragraph.Actor))
		return entry.Path, nil
	}

	voice := heygen.VoiceSettings{VoiceID: profile.VoiceID, InputText: paragraph.Text, Speed: profile.Speed}
	if profile.External() {
		audioPath, err := r.audio.EnsureParagraphAudio(ctx, scene, paragraph, profile)
		if err != nil {
			return "", err
		}
		assetStart := time.Now()
		assetID, err := r.video.UploadAudioAsset(ctx, audioPath)
		r.record(ctx, ledger.Job{
			Provider:        ledger.ProviderHeyGen,
			Kind:            ledger.KindAssetUpload,
			SceneDigest:     scene.Digest(),
			ParagraphDigest: paragraph.Digest(),
			Actor:           paragraph.Actor,
			Reference:       assetID,
			Status:          jobStatus(err),
			Duration:        time.Since(assetStart),
			ErrorMessage:    errMessage(err),
		})
		if err != nil {
			return "", err
		}
		voice = heygen.VoiceSettings{AudioAssetID: assetID, Speed: profile.Speed}
	}

	start := time.Now()
	videoID, err := r.video.GenerateVideo(ctx, heygen.GenerateRequest{
		AvatarID:    profile.AvatarID,
		AvatarStyle: profile.AvatarStyle,
		Voice:       voice,
		Width:       r.opts.Width,
		Height:      r.opts.Height,
	})
	if err != nil {
		r.record(ctx, ledger.Job{
			Provider:        ledger.ProviderHeyGen,
			Kind:            ledger.KindAvatarVideo,
			SceneDigest:     scene.Digest(),
			ParagraphDigest: paragraph.Digest(),
			Actor:           paragraph.Actor,
			Status:          ledger.JobFailed,
			Duration:        time.Since(start),
			ErrorMessage:    err.Error(),
		})
		return "", err
	}

	snapshot, pollErr := r.poller.Await(ctx, videoID, heygen.PollFunc(r.video, videoID))
	r.record(ctx, ledger.Job{
		Provider:        ledger.ProviderHeyGen,
		Kind:            ledger.KindAvatarVideo,
		SceneDigest:     scene.Digest(),
		ParagraphDigest: paragraph.Digest(),
		Actor:           paragraph.Actor,
		Reference:       videoID,
		Status:          pollOutcome(pollErr),
		Attempts:        snapshot.Attempts,
		Duration:        time.Since(start),
		ErrorMessage:    errMessage(pollErr),
	})
	if pollErr != nil {
		return "", pollErr
	}

	staged := r.cache.StagingPath(entry)
	if err := r.video.Download(ctx, snapshot.ResultLocator, staged); err != nil {
		return "", err
	}
	if _, err := ffprobe.VerifyVideo(ctx, r.opts.FFprobeBinary, staged); err != nil {
		_ = os.Remove(staged)
		return "", services.Wrap(services.ErrProviderJobFailed, "heygen", "validate clip",
			fmt.Sprintf("actor %s", paragraph.Actor), err)
	}
	if err := r.cache.Publish(entry, staged, producer); err != nil {
		_ = os.Remove(staged)
		return "", services.Wrap(services.ErrComposition, "cache", "publish paragraph video", "", err)
	}
	return entry.Path, nil
}

func (r *SceneRenderer) record(ctx context.Context, job ledger.Job) {
	recordJob(ctx, r.jobs, r.logger, job)
}

// overlayTitle returns the scene's display title, or "" when the scene has
// no overlay or the overlay declares none.
func overlayTitle(scene *script.Scene) string {
	if scene.Overlay == nil {
		return ""
	}
	return strings.TrimSpace(scene.Overlay.Title())
}

func pollOutcome(err error) string {
	switch {
	case err == nil:
		return ledger.JobSucceeded
	case errors.Is(err, services.ErrProviderJobTimeout):
		return ledger.JobTimeout
	default:
		return ledger.JobFailed
	}
}
