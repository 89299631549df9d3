package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clapper/internal/actors"
	"clapper/internal/config"
	"clapper/internal/jobpoll"
	"clapper/internal/ledger"
	"clapper/internal/logging"
	"clapper/internal/media/ffmpeg"
	"clapper/internal/notifications"
	"clapper/internal/preflight"
	"clapper/internal/project"
	"clapper/internal/render"
	"clapper/internal/rendercache"
	"clapper/internal/script"
	"clapper/internal/services"
	"clapper/internal/services/elevenlabs"
	"clapper/internal/services/heygen"
	"clapper/internal/textutil"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "render <project>",
		Short: "Render a project's script into its final movie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			mode, err := render.ParseMode(modeFlag)
			if err != nil {
				return err
			}

			proj, err := project.Resolve(cfg.Paths.ProjectsDir, args[0])
			if err != nil {
				return err
			}
			if err := proj.RequireScript(); err != nil {
				return err
			}
			if err := proj.Lock(); err != nil {
				if errors.Is(err, project.ErrLocked) {
					return fmt.Errorf("project %s is already being rendered (lock: %s)", proj.Name(), proj.LockPath())
				}
				return err
			}
			defer proj.Unlock()

			if err := runPreflightGate(cmd, cfg); err != nil {
				return err
			}

			logger, journal, err := renderLogger(cfg, uuid.NewString())
			if err != nil {
				return err
			}
			if journal != nil {
				defer journal.Close()
			}

			doc, err := script.NewParser(logger).ParseFile(proj.ScriptPath())
			if err != nil {
				return err
			}

			deps, err := buildRenderDeps(cfg, proj, logger)
			if err != nil {
				return err
			}

			sessions := openLedger(cfg, logger)
			if sessions != nil {
				defer sessions.Close()
			}

			opts := render.Options{
				Mode:            mode,
				FitPolicy:       cfg.Render.FitPolicy,
				Width:           cfg.HeyGen.VideoWidth,
				Height:          cfg.HeyGen.VideoHeight,
				OverlaySeconds:  cfg.Render.OverlaySeconds,
				SlideBackground: cfg.Render.SlideBackground,
				FFprobeBinary:   cfg.FFprobeBinary(),
			}

			movieName := textutil.SanitizeFileName(outputFlag)
			if movieName == "" {
				movieName = cfg.Render.MovieFilename
			}
			moviePath := proj.MoviePath(movieName)

			runner := render.NewRunner(deps, opts, sessions, notifications.NewService(cfg))
			summary, runErr := runner.Run(cmd.Context(), proj.Name(), doc, moviePath)
			if runErr != nil {
				return runErr
			}
			printRenderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "avatar", "Render mode: avatar or slides")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Movie filename within the project directory")
	return cmd
}

// runPreflightGate fails the render before any provider work when the
// environment is broken. Every result is printed on failure so the operator
// sees what passed alongside what did not.
func runPreflightGate(cmd *cobra.Command, cfg *config.Config) error {
	results := preflight.RunAll(cmd.Context(), cfg)
	if !preflight.Failed(results) {
		return nil
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return errors.New("preflight checks failed")
}

// renderLogger builds the run logger, prunes expired logs, and opens the
// per-run session journal. A journal failure degrades to console-only
// logging rather than blocking the render.
func renderLogger(cfg *config.Config, runID string) (*slog.Logger, *logging.SessionLog, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{
			Dir:     cfg.Paths.LogDir,
			Pattern: "clapper*.log",
			Exclude: []string{filepath.Join(cfg.Paths.LogDir, "clapper.log")},
		},
		logging.RetentionTarget{
			Dir:     filepath.Join(cfg.Paths.LogDir, "sessions"),
			Pattern: logging.SessionLogPattern,
		},
	)
	journal, err := logging.NewSessionLog(cfg.Paths.LogDir, runID)
	if err != nil {
		logging.WarnWithContext(logger, "session journal unavailable", "session_log_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run proceeds with console logging only"))
		return logger, nil, nil
	}
	return journal.Attach(logger), journal, nil
}

// buildRenderDeps wires the full collaborator graph once per run. Provider
// clients are constructed only when the cast routes work to them.
func buildRenderDeps(cfg *config.Config, proj *project.Project, logger *slog.Logger) (render.Deps, error) {
	cast, err := actors.NewSet(cfg)
	if err != nil {
		return render.Deps{}, err
	}
	if cast.Len() == 0 {
		return render.Deps{}, services.Wrap(services.ErrConfiguration, "render", "cast",
			"no actors configured; add [[actor]] entries to the config", nil)
	}

	deps := render.Deps{
		Cache:  rendercache.NewStore(proj.Dir(), logger),
		Actors: cast,
		Compositor: ffmpeg.NewCompositor(ffmpeg.Options{
			Binary:    cfg.FFmpegBinary(),
			Width:     cfg.HeyGen.VideoWidth,
			Height:    cfg.HeyGen.VideoHeight,
			FitPolicy: cfg.Render.FitPolicy,
		}, logger),
		Poller: jobpoll.New(
			time.Duration(cfg.HeyGen.PollInterval)*time.Second,
			cfg.HeyGen.PollMaxAttempts,
			logger,
		),
		Logger: logger,
	}

	if cfg.RequiresElevenLabs() {
		speech, err := elevenlabs.New(cfg.ElevenLabs.APIKey, cfg.ElevenLabs.BaseURL,
			elevenlabs.WithTimeout(time.Duration(cfg.ElevenLabs.RequestTimeout)*time.Second))
		if err != nil {
			return render.Deps{}, services.Wrap(services.ErrConfiguration, "render", "speech client", err.Error(), nil)
		}
		deps.Speech = speech
	}

	video, err := heygen.New(cfg.HeyGen.APIKey, cfg.HeyGen.APIBaseURL, cfg.HeyGen.UploadBaseURL,
		heygen.WithTimeout(time.Duration(cfg.HeyGen.RequestTimeout)*time.Second))
	if err != nil {
		return render.Deps{}, services.Wrap(services.ErrConfiguration, "render", "video client", err.Error(), nil)
	}
	deps.Video = video
	return deps, nil
}

// openLedger opens the render history store. History is ambient: an
// unavailable ledger degrades the run to historyless instead of failing it.
func openLedger(cfg *config.Config, logger *slog.Logger) *ledger.Store {
	if !cfg.Ledger.Enabled {
		return nil
	}
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		logging.WarnWithContext(logger, "render history unavailable", "ledger_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run proceeds without session history"))
		return nil
	}
	return store
}

func printRenderSummary(out io.Writer, summary render.Summary) {
	fmt.Fprintf(out, "Movie: %s\n", summary.MoviePath)
	fmt.Fprintf(out, "Scenes: %d rendered, %d cached, %d failed\n",
		summary.ScenesRendered, summary.ScenesCached, summary.ScenesFailed)
	if summary.ParagraphsDropped > 0 {
		fmt.Fprintf(out, "Paragraphs dropped: %d\n", summary.ParagraphsDropped)
	}
	fmt.Fprintf(out, "Duration: %s\n", summary.Duration.Round(time.Millisecond))
	if summary.SessionID != "" {
		fmt.Fprintf(out, "Session: %s\n", summary.SessionID)
	}
	if summary.ScenesFailed > 0 {
		fmt.Fprintf(out, "Warning: %d scene(s) failed; the movie was assembled from the survivors\n", summary.ScenesFailed)
	}
}
