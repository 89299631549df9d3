package render

import (
	"context"
	"os"
	"path/filepath"

	"log/slog"

	"clapper/internal/fileutil"
	"clapper/internal/logging"
	"clapper/internal/media/ffmpeg"
	"clapper/internal/media/ffprobe"
	"clapper/internal/services"
)

// MovieAssembler concatenates scene-final artifacts into the project movie.
type MovieAssembler struct {
	compositor *ffmpeg.Compositor
	logger     *slog.Logger
	opts       Options
}

// NewMovieAssembler constructs the movie assembler.
func NewMovieAssembler(deps Deps, opts Options) *MovieAssembler {
	return &MovieAssembler{
		compositor: deps.Compositor,
		logger:     logging.NewComponentLogger(deps.Logger, "movie-assembler"),
		opts:       opts.normalized(),
	}
}

// Assemble concatenates the given scene artifacts in order into moviePath.
// Paths whose artifact is missing are skipped with a warning so one failed
// scene costs itself, not the movie. Zero playable scenes is fatal. The
// movie is composed into a staged sibling and exported with a hash-verified
// copy, so the published file is bit-identical to what the compositor wrote.
func (m *MovieAssembler) Assemble(ctx context.Context, scenePaths []string, moviePath string) error {
	playable := make([]string, 0, len(scenePaths))
	for _, path := range scenePaths {
		if _, err := os.Stat(path); err != nil {
			logging.WarnWithContext(m.logger,
				"scene artifact missing; leaving it out of the movie", "scene_missing",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "movie plays without this scene"))
			continue
		}
		playable = append(playable, path)
	}
	if len(playable) == 0 {
		return services.Wrap(services.ErrComposition, "assemble", "movie",
			"no renderable scenes", nil)
	}

	staged := filepath.Join(filepath.Dir(moviePath), "."+filepath.Base(moviePath)+".part")
	if err := m.compositor.Concatenate(ctx, playable, staged); err != nil {
		return err
	}
	if _, err := ffprobe.VerifyVideo(ctx, m.opts.FFprobeBinary, staged); err != nil {
		_ = os.Remove(staged)
		return services.Wrap(services.ErrComposition, "assemble", "validate movie", "", err)
	}
	if err := fileutil.CopyFileVerified(staged, moviePath); err != nil {
		_ = os.Remove(staged)
		return services.Wrap(services.ErrComposition, "assemble", "place movie", moviePath, err)
	}
	_ = os.Remove(staged)
	m.logger.Info("movie assembled",
		logging.String(logging.FieldEventType, "movie_assembled"),
		logging.Int("scenes", len(playable)),
		logging.String("path", moviePath))
	return nil
}
