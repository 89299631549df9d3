package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"clapper/internal/logging"
	"clapper/internal/media/ffprobe"
	"clapper/internal/project"
	"clapper/internal/rendercache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage a project's render cache",
	}

	cacheCmd.AddCommand(newCacheStatusCommand(ctx))
	cacheCmd.AddCommand(newCacheVerifyCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func projectCache(ctx *commandContext, name string) (*project.Project, *rendercache.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	proj, err := project.Resolve(cfg.Paths.ProjectsDir, name)
	if err != nil {
		return nil, nil, err
	}
	return proj, rendercache.NewStore(proj.Dir(), logging.NewNop()), nil
}

func newCacheStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <project>",
		Short: "Show cached artifacts per scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := projectCache(ctx, args[0])
			if err != nil {
				return err
			}
			summaries, err := store.Inventory()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "Cache is empty")
				return nil
			}

			const stampLayout = "2006-01-02 15:04"
			var totalArtifacts int
			var totalBytes int64
			var missingManifests int
			rows := make([][]string, 0, len(summaries))
			for _, summary := range summaries {
				var updated time.Time
				for _, artifact := range summary.Artifacts {
					if artifact.ModifiedAt.After(updated) {
						updated = artifact.ModifiedAt
					}
					if !artifact.HasManifest {
						missingManifests++
					}
				}
				updatedText := "unknown"
				if !updated.IsZero() {
					updatedText = updated.Local().Format(stampLayout)
				}
				rows = append(rows, []string{
					shortDigest(summary.Digest),
					strconv.Itoa(len(summary.Artifacts)),
					humanBytes(summary.SizeBytes),
					updatedText,
				})
				totalArtifacts += len(summary.Artifacts)
				totalBytes += summary.SizeBytes
			}

			table := renderTable(
				[]string{"Scene", "Artifacts", "Size", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			)
			fmt.Fprintln(out, table)
			fmt.Fprintf(out, "%d scene(s), %d artifact(s), %s\n", len(summaries), totalArtifacts, humanBytes(totalBytes))
			if missingManifests > 0 {
				fmt.Fprintf(out, "Warning: %d artifact(s) without a manifest will be re-rendered (run 'clapper cache verify')\n", missingManifests)
			}
			return nil
		},
	}
}

func newCacheVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <project>",
		Short: "Probe every cached artifact for playability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := projectCache(ctx, args[0])
			if err != nil {
				return err
			}
			cfg := ctx.configValue()
			summaries, err := store.Inventory()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "Cache is empty")
				return nil
			}

			var checked, problems int
			for _, summary := range summaries {
				for _, artifact := range summary.Artifacts {
					if artifact.Tier == "" {
						continue
					}
					checked++
					if !artifact.HasManifest {
						problems++
						fmt.Fprintf(out, "BROKEN %s/%s: missing manifest\n", shortDigest(summary.Digest), artifact.Name)
						continue
					}
					if err := probeArtifact(cmd, cfg.FFprobeBinary(), artifact); err != nil {
						problems++
						fmt.Fprintf(out, "BROKEN %s/%s: %v\n", shortDigest(summary.Digest), artifact.Name, err)
					}
				}
			}

			if problems > 0 {
				fmt.Fprintf(out, "Verified %d artifact(s), %d broken\n", checked, problems)
				return fmt.Errorf("cache verification found %d problem(s)", problems)
			}
			fmt.Fprintf(out, "Verified %d artifact(s), all playable\n", checked)
			return nil
		},
	}
}

func probeArtifact(cmd *cobra.Command, binary string, artifact rendercache.ArtifactSummary) error {
	switch artifact.Tier {
	case rendercache.TierParagraphAudio, rendercache.TierSceneAudioComplete:
		_, err := ffprobe.VerifyAudio(cmd.Context(), binary, artifact.Path)
		return err
	default:
		_, err := ffprobe.VerifyVideo(cmd.Context(), binary, artifact.Path)
		return err
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var sceneDigest string

	cmd := &cobra.Command{
		Use:   "clear <project>",
		Short: "Delete cached artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := projectCache(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if sceneDigest != "" {
				if err := store.RemoveScene(sceneDigest); err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared scene %s\n", sceneDigest)
				return nil
			}
			removed, err := store.Clear()
			if err != nil {
				return err
			}
			if removed == 0 {
				fmt.Fprintln(out, "Cache is already empty")
				return nil
			}
			fmt.Fprintf(out, "Cleared %d scene(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().StringVar(&sceneDigest, "scene", "", "Clear only the scene with this digest")
	return cmd
}

func humanBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%d B", v)
	}
	div := int64(unit)
	exp := 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	value := float64(v) / float64(div)
	return fmt.Sprintf("%.1f %ciB", value, "KMGTPEZY"[exp])
}
