package main

import (
	"github.com/spf13/cobra"

	"habari/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the broadcast loop in the foreground",
		Long: "Fetch news, narrate and render segments, and stream each playlist until interrupted.\n" +
			"The stream key is read from the environment variable named by stream.key_env.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Once, "once", false, "Run a single cycle and exit")
	cmd.Flags().IntVar(&opts.MaxCycles, "max-cycles", 0, "Stop after this many cycles (0 runs until interrupted)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&opts.Development, "dev", false, "Include source locations in log output")
	return cmd
}
