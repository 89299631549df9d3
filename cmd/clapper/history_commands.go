package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"clapper/internal/ledger"
	"clapper/internal/textutil"
)

const historyStampLayout = "2006-01-02 15:04"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show render session history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, notice, err := historyStore(ctx)
			if err != nil {
				return err
			}
			if store == nil {
				fmt.Fprintln(cmd.OutOrStdout(), notice)
				return nil
			}
			defer store.Close()

			sessions, err := store.RecentSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, sessionRows(sessions))
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No render sessions recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(sessions))
			for _, session := range sessions {
				rows = append(rows, []string{
					shortDigest(session.ID),
					session.Project,
					session.Mode,
					string(session.Status),
					fmt.Sprintf("%d/%d/%d", session.ScenesRendered, session.ScenesCached, session.ScenesFailed),
					strconv.Itoa(session.ParagraphsDropped),
					session.StartedAt.Local().Format(historyStampLayout),
					sessionDuration(session),
				})
			}
			table := renderTable(
				[]string{"Session", "Project", "Mode", "Status", "R/C/F", "Dropped", "Started", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}

	historyCmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of sessions to show")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit sessions as JSON")

	historyCmd.AddCommand(newHistoryJobsCommand(ctx))
	return historyCmd
}

func newHistoryJobsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "jobs [session-id]",
		Short: "Show recorded provider jobs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, notice, err := historyStore(ctx)
			if err != nil {
				return err
			}
			if store == nil {
				fmt.Fprintln(cmd.OutOrStdout(), notice)
				return nil
			}
			defer store.Close()

			var jobs []*ledger.Job
			if len(args) == 1 {
				jobs, err = store.SessionJobs(cmd.Context(), args[0])
			} else {
				jobs, err = store.RecentJobs(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, jobRows(jobs))
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No provider jobs recorded")
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				detail := textutil.Ternary(job.ErrorMessage != "", job.ErrorMessage, job.Reference)
				rows = append(rows, []string{
					job.CreatedAt.Local().Format(historyStampLayout),
					job.Provider,
					job.Kind,
					job.Actor,
					job.Status,
					job.Duration.Round(time.Millisecond).String(),
					textutil.Truncate(detail, 48),
				})
			}
			table := renderTable(
				[]string{"Time", "Provider", "Kind", "Actor", "Status", "Duration", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit jobs as JSON")
	return cmd
}

// historyStore opens the render history database read-style. A nil store with
// a notice means history has nothing to show; the caller prints the notice.
func historyStore(ctx *commandContext) (*ledger.Store, string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	if !cfg.Ledger.Enabled {
		return nil, "Render history is disabled (set ledger.enabled = true in config.toml)", nil
	}
	if _, err := os.Stat(cfg.Ledger.Path); errors.Is(err, fs.ErrNotExist) {
		return nil, "No render sessions recorded yet", nil
	}
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, "", err
	}
	return store, "", nil
}

type sessionRow struct {
	ID                string `json:"id"`
	Project           string `json:"project"`
	ScriptDigest      string `json:"script_digest"`
	Mode              string `json:"mode"`
	Status            string `json:"status"`
	ScenesTotal       int    `json:"scenes_total"`
	ScenesRendered    int    `json:"scenes_rendered"`
	ScenesCached      int    `json:"scenes_cached"`
	ScenesFailed      int    `json:"scenes_failed"`
	ParagraphsDropped int    `json:"paragraphs_dropped"`
	Error             string `json:"error,omitempty"`
	StartedAt         string `json:"started_at"`
	FinishedAt        string `json:"finished_at,omitempty"`
}

func sessionRows(sessions []*ledger.Session) []sessionRow {
	rows := make([]sessionRow, 0, len(sessions))
	for _, session := range sessions {
		row := sessionRow{
			ID:                session.ID,
			Project:           session.Project,
			ScriptDigest:      session.ScriptDigest,
			Mode:              session.Mode,
			Status:            string(session.Status),
			ScenesTotal:       session.ScenesTotal,
			ScenesRendered:    session.ScenesRendered,
			ScenesCached:      session.ScenesCached,
			ScenesFailed:      session.ScenesFailed,
			ParagraphsDropped: session.ParagraphsDropped,
			Error:             session.ErrorMessage,
			StartedAt:         session.StartedAt.UTC().Format(time.RFC3339),
		}
		if session.FinishedAt != nil {
			row.FinishedAt = session.FinishedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return rows
}

type jobRow struct {
	SessionID       string `json:"session_id"`
	Provider        string `json:"provider"`
	Kind            string `json:"kind"`
	SceneDigest     string `json:"scene_digest,omitempty"`
	ParagraphDigest string `json:"paragraph_digest,omitempty"`
	Actor           string `json:"actor,omitempty"`
	Reference       string `json:"reference,omitempty"`
	Status          string `json:"status"`
	Attempts        int    `json:"attempts,omitempty"`
	DurationMillis  int64  `json:"duration_ms"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func jobRows(jobs []*ledger.Job) []jobRow {
	rows := make([]jobRow, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, jobRow{
			SessionID:       job.SessionID,
			Provider:        job.Provider,
			Kind:            job.Kind,
			SceneDigest:     job.SceneDigest,
			ParagraphDigest: job.ParagraphDigest,
			Actor:           job.Actor,
			Reference:       job.Reference,
			Status:          job.Status,
			Attempts:        job.Attempts,
			DurationMillis:  job.Duration.Milliseconds(),
			Error:           job.ErrorMessage,
			CreatedAt:       job.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

func sessionDuration(session *ledger.Session) string {
	if session.FinishedAt == nil {
		return "-"
	}
	return session.FinishedAt.Sub(session.StartedAt).Round(time.Second).String()
}
