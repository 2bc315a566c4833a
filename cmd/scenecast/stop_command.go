package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scenecast/internal/daemonctl"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	var grace time.Duration
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cfg.Paths.LogDir, grace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit within %s; killed pid %d\n", grace, result.PID)
				return nil
			}
			fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", 10*time.Second, "Time to wait for a clean shutdown before killing the daemon")
	return cmd
}
