package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"habari/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the broadcaster in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.HasStreamKey() {
				return fmt.Errorf("stream key missing; set %s before starting habari", cfg.Stream.KeyEnv)
			}
			running, pid, err := daemonctl.ProcessInfo(cfg)
			if err != nil {
				return err
			}
			if running {
				fmt.Fprintf(stdout, "Habari already running (pid %d)\n", pid)
				return nil
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			if err := daemonctl.Launch(exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath,
				LogLevel:   startLogLevel,
			}); err != nil {
				return err
			}
			if err := daemonctl.WaitForStart(cfg, 10*time.Second); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Habari started")
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override the configured log level")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the background broadcaster",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(ctx.configValue(), 15*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Habari is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Habari did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Habari stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show broadcaster readiness and last cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.configValue())
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Habari Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, processLine(snap, colorize))
			fmt.Fprintln(stdout, workDirLine(snap.WorkDir, snap.Running, colorize))
			for _, line := range historyLines(snap, time.Now(), colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Readiness", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range readinessLines(snap, colorize) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}
