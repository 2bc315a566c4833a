package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scenecast/internal/api"
	"scenecast/internal/config"
	"scenecast/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{Use: "queue", Short: "Inspect and manage the job queue"}
	for _, sub := range []func(*commandContext) *cobra.Command{
		newQueueAddCommand, newQueueListCommand, newQueueShowCommand, newQueueRetryCommand,
		newQueueRemoveCommand, newQueueClearCommand, newQueueHealthCommand,
	} {
		cmd.AddCommand(sub(ctx))
	}
	return cmd
}

type jobFlags struct {
	voice       string
	orientation string
	source      string
}

func (f *jobFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.voice, "voice", "", "edge-tts voice (defaults to tts.voice)")
	cmd.Flags().StringVar(&f.orientation, "orientation", "", "landscape or portrait (defaults to clips.orientation)")
	cmd.Flags().StringVar(&f.source, "source", "", "stock or generated (defaults to clips.source)")
}

func (f *jobFlags) request(topic string) api.SubmitJobRequest {
	return api.SubmitJobRequest{
		Topic:       topic,
		Voice:       f.voice,
		Orientation: f.orientation,
		ClipSource:  f.source,
	}
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var flags jobFlags
	cmd := &cobra.Command{
		Use:   "add <topic>",
		Short: "Queue a video for the daemon",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				item, err := api.NewQueueService(store).Submit(cmd.Context(), flags.request(strings.Join(args, " ")))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d: %s\n", item.ID, item.Topic)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFilters)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				items, err := api.NewQueueService(store).List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				items = api.SortQueueItemsNewestFirst(items)
				if asJSON {
					return writeJSON(cmd, api.QueueListResponse{Items: items})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Topic", "Status", "Progress", "Created"},
					buildQueueListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFilters, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job with its script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				item, err := api.NewQueueService(store).Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("job %d not found", ids[0])
				}
				if asJSON {
					return writeJSON(cmd, api.QueueItemResponse{Item: *item})
				}
				printJobDetail(cmd, *item)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Retry failed or review jobs from their last finished stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				svc := api.NewQueueService(store)
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := svc.Retry(cmd.Context(), nil)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d jobs\n", updated)
					return nil
				}
				result, err := api.RetryItemsByID(cmd.Context(), svc, ids)
				if err != nil {
					return err
				}
				for _, entry := range result.Items {
					switch entry.Outcome {
					case api.RetryItemUpdated:
						fmt.Fprintf(out, "Job %d resumes at %s\n", entry.ID, entry.NewStatus)
					case api.RetryItemNotFound:
						fmt.Fprintf(out, "Job %d not found\n", entry.ID)
					default:
						fmt.Fprintf(out, "Job %d is not failed or in review\n", entry.ID)
					}
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id...>",
		Short: "Remove jobs that are not being processed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				result, err := api.RemoveItemsByID(cmd.Context(), api.NewQueueService(store), ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, entry := range result.Items {
					switch entry.Outcome {
					case api.RemoveItemRemoved:
						fmt.Fprintf(out, "Removed job %d\n", entry.ID)
					case api.RemoveItemInProgress:
						fmt.Fprintf(out, "Job %d is being processed; not removed\n", entry.ID)
					default:
						fmt.Fprintf(out, "Job %d not found\n", entry.ID)
					}
				}
				return nil
			})
		},
	}
}

// clearModes maps each clear flag to its store call and report label.
var clearModes = []struct {
	flag, usage, label string
	run                func(*queue.Store, context.Context) (int64, error)
}{
	{"completed", "Remove completed jobs", "completed", (*queue.Store).ClearCompleted},
	{"failed", "Remove failed and review jobs", "failed and review", (*queue.Store).ClearFailed},
	{"all", "Remove every job", "queue", (*queue.Store).Clear},
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	chosen := make([]bool, len(clearModes))
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode := slices.Index(chosen, true)
			if mode < 0 {
				return errors.New("specify one of --completed, --failed or --all")
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				removed, err := clearModes[mode].run(store, cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s jobs\n", removed, clearModes[mode].label)
				return nil
			})
		},
	}
	names := make([]string, len(clearModes))
	for i, m := range clearModes {
		cmd.Flags().BoolVar(&chosen[i], m.flag, false, m.usage)
		names[i] = m.flag
	}
	cmd.MarkFlagsMutuallyExclusive(names...)
	cmd.MarkFlagsOneRequired(names...)
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				db, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", db.DBPath)
				fmt.Fprintf(out, "Schema version: %s\n", db.SchemaVersion)
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(db.IntegrityCheck))
				if len(db.MissingColumns) > 0 {
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(db.MissingColumns, ", "))
				}
				if db.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", db.Error)
				}
				fmt.Fprintf(out, "Total: %d\nPending: %d\nProcessing: %d\nFailed: %d\nReview: %d\nCompleted: %d\n",
					summary.Total, summary.Pending, summary.Processing, summary.Failed, summary.Review, summary.Completed)
				return nil
			})
		},
	}
}

func buildQueueListRows(items []api.QueueItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		progress := item.Progress.Stage
		if item.Progress.Percent > 0 && item.Progress.Percent < 100 {
			progress = fmt.Sprintf("%s %.0f%%", progress, item.Progress.Percent)
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			truncate(item.Topic, 48),
			item.Status,
			progress,
			formatQueueTime(item.CreatedAt),
		})
	}
	return rows
}

func printJobDetail(cmd *cobra.Command, item api.QueueItem) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %d (%s)\nTopic: %s\nStatus: %s\n", item.ID, item.RequestID, item.Topic, item.Status)
	if p := item.Progress; p.Stage != "" {
		fmt.Fprintf(out, "Progress: %s %.0f%% %s\n", p.Stage, p.Percent, p.Message)
	}
	var duration string
	if item.DurationSeconds > 0 {
		duration = fmt.Sprintf("%.1fs", item.DurationSeconds)
	}
	// Optional fields print only when set.
	for _, f := range [][2]string{
		{"Orientation", item.Orientation},
		{"Clip source", item.ClipSource},
		{"Duration", duration},
		{"Output", item.OutputFile},
		{"Error", item.ErrorMessage},
	} {
		if f[1] != "" {
			fmt.Fprintf(out, "%s: %s\n", f[0], f[1])
		}
	}
	if item.Script != "" {
		fmt.Fprintf(out, "\n%s\n", item.Script)
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid job id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseStatuses(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func formatQueueTime(value string) string {
	parsed := api.ParseQueueTime(value)
	if parsed.IsZero() {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04")
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
