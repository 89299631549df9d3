package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clapper/internal/actors"
	"clapper/internal/config"
	"clapper/internal/preflight"
	"clapper/internal/textutil"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, dependency, and provider status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, configStatusLine(ctx, colorize))
			fmt.Fprintln(stdout, directoryStatusLine("Projects directory", cfg.Paths.ProjectsDir, colorize))
			if cfg.Paths.LogDir != "" {
				fmt.Fprintln(stdout, directoryStatusLine("Log directory", cfg.Paths.LogDir, colorize))
			}
			fmt.Fprintln(stdout, castStatusLine(cfg, colorize))
			fmt.Fprintln(stdout, runtimeStatusLine(preflight.CheckLedgerFromConfig(cfg), colorize))
			fmt.Fprintln(stdout, runtimeStatusLine(preflight.CheckNtfyFromConfig(cfg), colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, status := range preflight.CheckRenderTools(cfg) {
				if status.Available {
					fmt.Fprintln(stdout, renderStatusLine(status.Name, statusOK, fmt.Sprintf("Ready (command: %s)", status.Command), colorize))
					continue
				}
				fmt.Fprintln(stdout, renderStatusLine(status.Name, statusError, status.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Providers", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if cfg.RequiresElevenLabs() {
				fmt.Fprintln(stdout, providerStatusLine(preflight.CheckElevenLabs(cmd.Context(), cfg), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("ElevenLabs", statusInfo, "Not used by the configured cast", colorize))
			}
			if cfg.RequiresHeyGen() {
				fmt.Fprintln(stdout, providerStatusLine(preflight.CheckHeyGen(cmd.Context(), cfg), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("HeyGen", statusInfo, "Not used by the configured cast", colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Recent Sessions", colorize) {
				fmt.Fprintln(stdout, line)
			}
			return printRecentSessions(ctx, cmd)
		},
	}
}

func configStatusLine(ctx *commandContext, colorize bool) string {
	path, exists := ctx.configSource()
	if exists {
		return renderStatusLine("Config", statusOK, path, colorize)
	}
	return renderStatusLine("Config", statusInfo, fmt.Sprintf("Defaults (no file at %s)", path), colorize)
}

func castStatusLine(cfg *config.Config, colorize bool) string {
	cast, err := actors.NewSet(cfg)
	if err != nil {
		return renderStatusLine("Cast", statusError, err.Error(), colorize)
	}
	if cast.Len() == 0 {
		return renderStatusLine("Cast", statusWarn, "No actors configured", colorize)
	}
	names := textutil.Truncate(strings.Join(cast.Names(), ", "), 60)
	return renderStatusLine("Cast", statusOK, fmt.Sprintf("%d actor(s): %s", cast.Len(), names), colorize)
}

func directoryStatusLine(label, path string, colorize bool) string {
	result := preflight.CheckDirectoryAccess(label, path)
	if result.Passed {
		return renderStatusLine(label, statusOK, result.Detail, colorize)
	}
	return renderStatusLine(label, statusError, result.Detail, colorize)
}

// runtimeStatusLine renders optional-service checks. "Disabled" is an
// intentional state, not a failure, so it surfaces as a warning only.
func runtimeStatusLine(result preflight.Result, colorize bool) string {
	if result.Passed {
		if result.Detail == "Disabled" {
			return renderStatusLine(result.Name, statusWarn, result.Detail, colorize)
		}
		return renderStatusLine(result.Name, statusOK, result.Detail, colorize)
	}
	return renderStatusLine(result.Name, statusWarn, result.Detail, colorize)
}

func providerStatusLine(result preflight.Result, colorize bool) string {
	if result.Passed {
		return renderStatusLine(result.Name, statusOK, result.Detail, colorize)
	}
	return renderStatusLine(result.Name, statusError, result.Detail, colorize)
}

func printRecentSessions(ctx *commandContext, cmd *cobra.Command) error {
	stdout := cmd.OutOrStdout()
	store, notice, err := historyStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintln(stdout, notice)
		return nil
	}
	defer store.Close()

	sessions, err := store.RecentSessions(cmd.Context(), 5)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(stdout, "No render sessions recorded yet")
		return nil
	}
	rows := make([][]string, 0, len(sessions))
	for _, session := range sessions {
		rows = append(rows, []string{
			shortDigest(session.ID),
			session.Project,
			string(session.Status),
			session.StartedAt.Local().Format(historyStampLayout),
		})
	}
	table := renderTable(
		[]string{"Session", "Project", "Status", "Started"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	)
	fmt.Fprint(stdout, table)
	return nil
}
