package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clapper/internal/actors"
)

type actorRow struct {
	Name        string  `json:"name"`
	Speech      string  `json:"speech"`
	VoiceID     string  `json:"voice_id"`
	SpeechModel string  `json:"speech_model,omitempty"`
	AvatarID    string  `json:"avatar_id"`
	AvatarStyle string  `json:"avatar_style"`
	Speed       float64 `json:"speed"`
}

func newActorsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "actors",
		Short: "Show the configured cast",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cast, err := actors.NewSet(cfg)
			if err != nil {
				return err
			}

			profiles := cast.Profiles()
			entries := make([]actorRow, 0, len(profiles))
			for _, profile := range profiles {
				entries = append(entries, actorRow{
					Name:        profile.Name,
					Speech:      string(profile.Mode),
					VoiceID:     profile.VoiceID,
					SpeechModel: profile.SpeechModel,
					AvatarID:    profile.AvatarID,
					AvatarStyle: profile.AvatarStyle,
					Speed:       profile.Speed,
				})
			}

			if jsonOutput {
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No actors configured (add [[actor]] entries to the config)")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.Name,
					entry.Speech,
					entry.VoiceID,
					entry.SpeechModel,
					entry.AvatarID,
					entry.AvatarStyle,
					strconv.FormatFloat(entry.Speed, 'f', -1, 64),
				})
			}
			table := renderTable(
				[]string{"Actor", "Speech", "Voice", "Model", "Avatar", "Style", "Speed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the cast as JSON")
	return cmd
}
