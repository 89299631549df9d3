package render

import (
	"context"
	"strconv"
	"time"

	"log/slog"

	"clapper/internal/ledger"
	"clapper/internal/logging"
	"clapper/internal/notifications"
	"clapper/internal/script"
	"clapper/internal/services"
)

// Renderer produces one scene-final artifact per scene. SceneRenderer and
// SlideRenderer both satisfy it.
type Renderer interface {
	RenderScene(ctx context.Context, scene *script.Scene) (SceneResult, error)
}

// Runner drives a full render: every scene in document order, then movie
// assembly, with the outcome recorded in the session ledger and announced
// via notifications. Scene failures cost the scene; only environmental
// failures abort the run.
type Runner struct {
	deps     Deps
	opts     Options
	sessions *ledger.Store
	notifier notifications.Service
	logger   *slog.Logger
}

// NewRunner constructs a runner. sessions may be nil to disable history;
// notifier may be nil to disable notifications.
func NewRunner(deps Deps, opts Options, sessions *ledger.Store, notifier notifications.Service) *Runner {
	return &Runner{
		deps:     deps,
		opts:     opts.normalized(),
		sessions: sessions,
		notifier: notifier,
		logger:   logging.NewComponentLogger(deps.Logger, "runner"),
	}
}

// Summary reports one run's outcome.
type Summary struct {
	SessionID         string
	MoviePath         string
	ScenesTotal       int
	ScenesRendered    int
	ScenesCached      int
	ScenesFailed      int
	ParagraphsDropped int
	Duration          time.Duration
}

func (s Summary) totals() ledger.SessionTotals {
	return ledger.SessionTotals{
		ScenesRendered:    s.ScenesRendered,
		ScenesCached:      s.ScenesCached,
		ScenesFailed:      s.ScenesFailed,
		ParagraphsDropped: s.ParagraphsDropped,
	}
}

// sessionSink stamps recorded jobs with the running session's id.
type sessionSink struct {
	store   *ledger.Store
	session string
}

func (s *sessionSink) RecordJob(ctx context.Context, job ledger.Job) error {
	job.SessionID = s.session
	return s.store.RecordJob(ctx, job)
}

// Run renders doc into moviePath. Scenes that fail are skipped; the movie
// assembles from the survivors. The returned summary is valid even when err
// is non-nil.
func (r *Runner) Run(ctx context.Context, project string, doc *script.Document, moviePath string) (Summary, error) {
	start := time.Now()
	summary := Summary{MoviePath: moviePath, ScenesTotal: len(doc.Scenes)}
	if len(doc.Scenes) == 0 {
		return summary, services.Wrap(services.ErrValidation, "render", "run", "script has no scenes", nil)
	}

	deps := r.deps
	if r.sessions != nil {
		session, err := r.sessions.StartSession(ctx, project, doc.Digest(), string(r.opts.Mode), len(doc.Scenes))
		if err != nil {
			logging.WarnWithContext(r.logger, "render history unavailable", "ledger_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run proceeds without session history"))
		} else {
			summary.SessionID = session.ID
			deps.Jobs = &sessionSink{store: r.sessions, session: session.ID}
		}
	}
	renderer := r.sceneRenderer(deps)

	r.logger.Info("render started",
		logging.String(logging.FieldEventType, "render_started"),
		logging.String("project", project),
		logging.String("mode", string(r.opts.Mode)),
		logging.Int("scenes", len(doc.Scenes)))
	r.publish(ctx, notifications.EventRenderStarted, notifications.Payload{
		"project": project,
		"scenes":  strconv.Itoa(len(doc.Scenes)),
	})

	scenePaths := make([]string, 0, len(doc.Scenes))
	for i, scene := range doc.Scenes {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			r.finish(ctx, summary, ledger.SessionFailed, err.Error())
			return summary, err
		}
		sctx := services.WithScene(ctx, scene.Digest())
		result, err := renderer.RenderScene(sctx, scene)
		if err != nil {
			summary.ScenesFailed++
			if services.FailureDisposition(err) == services.DispositionAbort {
				summary.Duration = time.Since(start)
				r.finish(ctx, summary, ledger.SessionFailed, err.Error())
				r.publishError(ctx, project, err)
				return summary, err
			}
			logging.ErrorWithContext(logging.WithContext(sctx, r.logger),
				"scene failed", "scene_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remaining scenes continue; re-run to retry"))
			continue
		}
		summary.ParagraphsDropped += result.ParagraphsDropped
		if result.Cached {
			summary.ScenesCached++
		} else {
			summary.ScenesRendered++
		}
		scenePaths = append(scenePaths, result.Path)
		r.publish(ctx, notifications.EventSceneRendered, notifications.Payload{
			"project":  project,
			"position": strconv.Itoa(i + 1),
			"total":    strconv.Itoa(len(doc.Scenes)),
			"cached":   strconv.FormatBool(result.Cached),
		})
	}

	movie := NewMovieAssembler(deps, r.opts)
	if err := movie.Assemble(ctx, scenePaths, moviePath); err != nil {
		summary.Duration = time.Since(start)
		r.finish(ctx, summary, ledger.SessionFailed, err.Error())
		r.publishError(ctx, project, err)
		return summary, err
	}

	summary.Duration = time.Since(start)
	r.finish(ctx, summary, ledger.SessionCompleted, "")
	r.logger.Info("render completed",
		logging.String(logging.FieldEventType, "render_completed"),
		logging.String("movie", moviePath),
		logging.Int("rendered", summary.ScenesRendered),
		logging.Int("cached", summary.ScenesCached),
		logging.Int("failed", summary.ScenesFailed),
		logging.Int("paragraphs_dropped", summary.ParagraphsDropped),
		logging.Duration("duration", summary.Duration))
	r.publish(ctx, notifications.EventRenderCompleted, notifications.Payload{
		"project":  project,
		"movie":    moviePath,
		"scenes":   strconv.Itoa(summary.ScenesRendered + summary.ScenesCached),
		"failed":   strconv.Itoa(summary.ScenesFailed),
		"duration": summary.Duration.Round(time.Second).String(),
	})
	return summary, nil
}

func (r *Runner) sceneRenderer(deps Deps) Renderer {
	if r.opts.Mode == ModeSlides {
		return NewSlideRenderer(deps, r.opts)
	}
	return NewSceneRenderer(deps, r.opts)
}

// finish closes the ledger session. Finalization still runs when the
// context was canceled, so aborted runs leave a failed session rather than
// a running one.
func (r *Runner) finish(ctx context.Context, summary Summary, status ledger.SessionStatus, errorMessage string) {
	if r.sessions == nil || summary.SessionID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := r.sessions.FinishSession(ctx, summary.SessionID, status, summary.totals(), errorMessage); err != nil {
		r.logger.Warn("session not finalized",
			logging.String(logging.FieldEventType, "ledger_write_failed"),
			logging.String("session_id", summary.SessionID),
			logging.Error(err))
	}
}

func (r *Runner) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		r.logger.Warn("notification not delivered",
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String("notification", string(event)),
			logging.Error(err))
	}
}

func (r *Runner) publishError(ctx context.Context, project string, runErr error) {
	r.publish(context.WithoutCancel(ctx), notifications.EventError, notifications.Payload{
		"context": "render " + project,
		"error":   runErr.Error(),
	})
}
