package render

import (
	"context"
	"os"

	"log/slog"

	"clapper/internal/logging"
	"clapper/internal/media/ffmpeg"
	"clapper/internal/media/ffprobe"
	"clapper/internal/rendercache"
	"clapper/internal/script"
	"clapper/internal/services"
)

// SlideRenderer produces scene-final artifacts without avatar video: a solid
// background with the scene title over the complete scene narration. It
// publishes the same tier as the avatar path under a distinct producer, so
// switching modes re-renders instead of trusting the other mode's artifact.
type SlideRenderer struct {
	cache      *rendercache.Store
	compositor *ffmpeg.Compositor
	audio      *AudioRenderer
	logger     *slog.Logger
	opts       Options
}

// NewSlideRenderer constructs the slides-mode renderer.
func NewSlideRenderer(deps Deps, opts Options) *SlideRenderer {
	opts.Mode = ModeSlides
	opts = opts.normalized()
	return &SlideRenderer{
		cache:      deps.Cache,
		compositor: deps.Compositor,
		audio:      NewAudioRenderer(deps, opts),
		logger:     logging.NewComponentLogger(deps.Logger, "slide-renderer"),
		opts:       opts,
	}
}

// RenderScene returns the scene-final slide artifact, rendering it when the
// cache holds no trusted entry.
func (r *SlideRenderer) RenderScene(ctx context.Context, scene *script.Scene) (SceneResult, error) {
	final := r.cache.SceneFinal(scene)
	producer := sceneFinalProducer(r.opts)
	if r.cache.Present(final, producer) {
		r.logger.Info("scene final cache hit",
			logging.Args(logging.DecisionAttrs("cache", "hit", "trusted scene-final manifest")...)...)
		return SceneResult{Path: final.Path, Cached: true}, nil
	}

	if _, err := r.cache.EnsureSceneDir(scene); err != nil {
		return SceneResult{}, services.Wrap(services.ErrTransient, "slide", "prepare cache dir", "", err)
	}

	audioPath, dropped, err := r.audio.EnsureSceneAudio(ctx, scene)
	if err != nil {
		return SceneResult{}, err
	}

	title := overlayTitle(scene)
	if title == "" {
		title = "Scene " + scene.Digest()[:8]
	}

	staged := r.cache.StagingPath(final)
	if err := r.compositor.RenderSlide(ctx, ffmpeg.SlideSpec{
		Background: r.opts.SlideBackground,
		Title:      title,
		AudioPath:  audioPath,
	}, staged); err != nil {
		return SceneResult{}, err
	}
	if _, err := ffprobe.VerifyVideo(ctx, r.opts.FFprobeBinary, staged); err != nil {
		_ = os.Remove(staged)
		return SceneResult{}, services.Wrap(services.ErrComposition, "slide", "validate slide", "", err)
	}
	if err := r.cache.Publish(final, staged, producer); err != nil {
		_ = os.Remove(staged)
		return SceneResult{}, services.Wrap(services.ErrComposition, "cache", "publish scene final", "", err)
	}
	r.logger.Info("scene slide rendered",
		logging.String(logging.FieldEventType, "scene_rendered"),
		logging.Int("dropped", dropped))
	return SceneResult{Path: final.Path, Cached: false, ParagraphsDropped: dropped}, nil
}
