package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"habari/internal/daemonrun"
	"habari/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		raw    bool
		filter logs.Filter
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the current run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, daemonrun.CurrentLogName)
			out := cmd.OutOrStdout()
			emit := func(batch []string) {
				for _, line := range batch {
					if raw {
						fmt.Fprintln(out, line)
						continue
					}
					fmt.Fprintln(out, formatLogLine(line))
				}
			}

			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines, Filter: filter})
			if err != nil {
				return err
			}
			emit(result.Lines)
			if !follow {
				return nil
			}

			offset := result.Offset
			for {
				next, err := logs.Tail(cmd.Context(), path, logs.TailOptions{
					Offset: offset,
					Follow: true,
					Wait:   2 * time.Second,
					Filter: filter,
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				emit(next.Lines)
				offset = next.Offset
			}
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().BoolVar(&raw, "json", false, "Print raw JSON records")
	cmd.Flags().StringVar(&filter.CycleID, "cycle", "", "Only show records of this cycle (prefix match)")
	cmd.Flags().StringVar(&filter.EventType, "event", "", "Only show records with this event_type")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level: debug, info, warn, error")
	return cmd
}

func formatLogLine(line string) string {
	ev, ok := logs.ParseEvent(line)
	if !ok {
		return line
	}
	var b strings.Builder
	if !ev.Time.IsZero() {
		b.WriteString(ev.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(ev.Level))
	if subject := logSubject(ev); subject != "" {
		b.WriteString(" [")
		b.WriteString(subject)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(ev.Message)
	if ev.Error != "" {
		b.WriteString(": ")
		b.WriteString(ev.Error)
	}
	return b.String()
}

func logSubject(ev logs.Event) string {
	parts := make([]string, 0, 3)
	if ev.CycleID != "" {
		parts = append(parts, shortID(ev.CycleID))
	}
	if ev.Segment > 0 {
		parts = append(parts, fmt.Sprintf("#%d", ev.Segment))
	}
	if ev.Stage != "" {
		parts = append(parts, ev.Stage)
	} else if ev.Component != "" {
		parts = append(parts, ev.Component)
	}
	return strings.Join(parts, " ")
}
