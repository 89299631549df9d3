package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clapper/internal/logging"
	"clapper/internal/project"
	"clapper/internal/rendercache"
	"clapper/internal/script"
	"clapper/internal/textutil"
)

type inspectScene struct {
	Position        int      `json:"position"`
	Digest          string   `json:"digest"`
	Title           string   `json:"title,omitempty"`
	Paragraphs      int      `json:"paragraphs"`
	Actors          []string `json:"actors"`
	CachedArtifacts int      `json:"cached_artifacts"`
}

type inspectReport struct {
	Project    string         `json:"project"`
	ScriptPath string         `json:"script_path"`
	Digest     string         `json:"digest"`
	Paragraphs int            `json:"paragraphs"`
	Actors     []string       `json:"actors"`
	Scenes     []inspectScene `json:"scenes"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "inspect <project>",
		Short: "Parse a project's script and show its scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
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

			doc, err := script.NewParser(logging.NewNop()).ParseFile(proj.ScriptPath())
			if err != nil {
				return err
			}
			report := buildInspectReport(proj, doc)

			if jsonOutput {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project: %s\n", report.Project)
			fmt.Fprintf(out, "Script digest: %s\n", report.Digest)
			fmt.Fprintf(out, "Scenes: %d  Paragraphs: %d  Actors: %s\n",
				len(report.Scenes), report.Paragraphs, joinOrNone(report.Actors))

			rows := make([][]string, 0, len(report.Scenes))
			for _, scene := range report.Scenes {
				rows = append(rows, []string{
					strconv.Itoa(scene.Position),
					shortDigest(scene.Digest),
					textutil.Truncate(scene.Title, 32),
					strconv.Itoa(scene.Paragraphs),
					strings.Join(scene.Actors, ", "),
					strconv.Itoa(scene.CachedArtifacts),
				})
			}
			table := renderTable(
				[]string{"#", "Scene", "Title", "Paragraphs", "Actors", "Cached"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report as JSON")
	return cmd
}

func buildInspectReport(proj *project.Project, doc *script.Document) inspectReport {
	report := inspectReport{
		Project:    proj.Name(),
		ScriptPath: proj.ScriptPath(),
		Digest:     doc.Digest(),
		Paragraphs: doc.ParagraphCount(),
		Actors:     doc.Actors(),
		Scenes:     make([]inspectScene, 0, len(doc.Scenes)),
	}

	cached := cachedArtifactCounts(proj)
	for i, scene := range doc.Scenes {
		digest := scene.Digest()
		entry := inspectScene{
			Position:        i + 1,
			Digest:          digest,
			Paragraphs:      len(scene.Paragraphs),
			Actors:          sceneActors(scene),
			CachedArtifacts: cached[digest],
		}
		if scene.Overlay != nil {
			entry.Title = scene.Overlay.Title()
		}
		report.Scenes = append(report.Scenes, entry)
	}
	return report
}

// cachedArtifactCounts maps scene digest to how many artifacts its cache
// directory holds. Inventory trouble degrades to zero counts; inspect never
// fails because the cache is unreadable.
func cachedArtifactCounts(proj *project.Project) map[string]int {
	store := rendercache.NewStore(proj.Dir(), logging.NewNop())
	summaries, err := store.Inventory()
	if err != nil {
		return nil
	}
	counts := make(map[string]int, len(summaries))
	for _, summary := range summaries {
		counts[summary.Digest] = len(summary.Artifacts)
	}
	return counts
}

func sceneActors(scene *script.Scene) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, paragraph := range scene.Paragraphs {
		if _, ok := seen[paragraph.Actor]; ok {
			continue
		}
		seen[paragraph.Actor] = struct{}{}
		names = append(names, paragraph.Actor)
	}
	return names
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}
