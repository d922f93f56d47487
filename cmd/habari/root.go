package main

import (
	"github.com/spf13/cobra"
)

const (
	groupBroadcast = "broadcast"
	groupInspect   = "inspect"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "habari",
		Short:         "Habari Swahili news broadcaster",
		Long:          "habari turns news feeds into narrated Swahili video segments and streams them to an RTMP ingest, one cycle at a time.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.AddGroup(
		&cobra.Group{ID: groupBroadcast, Title: "Broadcasting:"},
		&cobra.Group{ID: groupInspect, Title: "Inspection:"},
	)

	broadcast := append([]*cobra.Command{newRunCommand(ctx)}, newDaemonCommands(ctx)...)
	inspect := []*cobra.Command{newHistoryCommand(ctx), newLogsCommand(ctx), newTestNotifyCommand(ctx), newConfigCommand(ctx)}
	for _, cmd := range broadcast {
		cmd.GroupID = groupBroadcast
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range inspect {
		cmd.GroupID = groupInspect
		rootCmd.AddCommand(cmd)
	}
	return rootCmd
}
