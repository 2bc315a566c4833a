package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scenecast/internal/api"
	"scenecast/internal/config"
	"scenecast/internal/daemonctl"
	"scenecast/internal/preflight"
	"scenecast/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, provider and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				lines := []string{renderSectionHeader("Daemon", colorize), daemonStatusLine(cfg, colorize)}

				lines = append(lines, "", renderSectionHeader("Dependencies", colorize))
				for _, dep := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
					kind, detail := statusOK, dep.Command
					if !dep.Available {
						kind, detail = statusError, dep.Detail
						if dep.Optional {
							kind = statusWarn
						}
					}
					lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
				}

				lines = append(lines, "", renderSectionHeader("Providers", colorize))
				for _, result := range providerChecks(cmd.Context(), cfg, offline) {
					lines = append(lines, renderResultLine(result, statusWarn, colorize))
				}

				lines = append(lines, "", renderSectionHeader("Directories", colorize))
				for _, result := range preflight.RunAll(cmd.Context(), cfg) {
					if strings.HasSuffix(result.Name, "directory") {
						lines = append(lines, renderResultLine(result, statusError, colorize))
					}
				}
				fmt.Fprintln(out, strings.Join(lines, "\n"))

				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				fmt.Fprint(out, renderTable([]string{"Status", "Count"}, buildQueueStatusRows(api.MergeQueueStats(stats)),
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip network probes of the LLM and image backends")
	return cmd
}

func providerChecks(ctx context.Context, cfg *config.Config, offline bool) []preflight.Result {
	if offline {
		return []preflight.Result{
			preflight.CheckCredential("LLM", cfg.LLM.APIKey, "set llm.api_key"),
			preflight.CheckPexelsFromConfig(cfg),
		}
	}
	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return []preflight.Result{
		preflight.CheckLLMFromConfig(probeCtx, cfg),
		preflight.CheckImageBackendFromConfig(probeCtx, cfg),
		preflight.CheckPexelsFromConfig(cfg),
	}
}

func renderResultLine(result preflight.Result, failKind statusKind, colorize bool) string {
	if result.Passed {
		return renderStatusLine(result.Name, statusOK, result.Detail, colorize)
	}
	return renderStatusLine(result.Name, failKind, result.Detail, colorize)
}

// daemonStatusLine probes the daemon lock; a held lock means a daemon is
// running.
func daemonStatusLine(cfg *config.Config, colorize bool) string {
	running, pid, err := daemonctl.ProcessInfo(cfg.Paths.LogDir)
	if err != nil {
		return renderStatusLine("Daemon", statusWarn, err.Error(), colorize)
	}
	if !running {
		return renderStatusLine("Daemon", statusInfo, "Not running", colorize)
	}
	detail := "Running"
	if pid > 0 {
		detail = fmt.Sprintf("Running (pid %d)", pid)
	}
	if cfg.Paths.APIBind != "" {
		detail += ", API on " + cfg.Paths.APIBind
	}
	return renderStatusLine("Daemon", statusOK, detail, colorize)
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		rows = append(rows, []string{string(status), fmt.Sprintf("%d", stats[string(status)])})
	}
	return rows
}
