package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scenecast/internal/clips"
	"scenecast/internal/config"
	"scenecast/internal/queue"
	"scenecast/internal/stage"
)

func newTimelineCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "timeline <id>",
		Short: "Show the clip timeline assigned to a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				item, err := store.GetByID(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("job %d not found", ids[0])
				}
				if item.TimelineJSON == "" {
					return fmt.Errorf("job %d has no timeline yet (status %s)", item.ID, item.Status)
				}
				timeline, err := stage.DecodeArtifact[[]clips.TimelineEntry](item.TimelineJSON, "timeline", "footage")
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, timeline)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"#", "Start", "End", "Source", "Media"},
					buildTimelineRows(timeline),
					[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func buildTimelineRows(timeline []clips.TimelineEntry) [][]string {
	rows := make([][]string, 0, len(timeline))
	for i, entry := range timeline {
		source, uri := "-", "(unresolved)"
		if entry.Resolved() {
			source, uri = string(entry.Media.Source), entry.Media.URI
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%.2f", entry.Start),
			fmt.Sprintf("%.2f", entry.End),
			source,
			uri,
		})
	}
	return rows
}
