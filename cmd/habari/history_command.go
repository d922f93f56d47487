package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"habari/internal/history"
	"habari/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent broadcast cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(ctx.configValue())
			if err != nil {
				return err
			}
			defer store.Close()

			cycles, err := store.RecentCycles(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cycles) == 0 {
				fmt.Fprintln(out, "No cycles recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable([]column{
				left("Cycle"), left("Started"), left("Status"),
				right("Items"), right("Rendered"), right("Failed"), right("Playlist"), right("Elapsed"),
			}, cycleRows(cycles, time.Now())))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of cycles to show")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <cycle-id>",
		Short: "Show the segments of one cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(ctx.configValue())
			if err != nil {
				return err
			}
			defer store.Close()

			cycle, err := store.GetCycle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if cycle == nil {
				return errors.New("cycle " + args[0] + " not found")
			}
			segments, err := store.Segments(cmd.Context(), cycle.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cycle %s: %s, started %s\n", cycle.ID, cycle.Status, cycle.StartedAt.Local().Format("2006-01-02 15:04:05"))
			if cycle.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", cycle.Error)
			}
			if len(segments) == 0 {
				fmt.Fprintln(out, "No segments recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable([]column{
				right("#"), left("Title"), left("Status"), left("Stage"), left("Engine"), right("Duration"), right("Size"),
			}, segmentRows(segments)))
			return nil
		},
	}
}

func cycleRows(cycles []history.Cycle, now time.Time) [][]string {
	rows := make([][]string, 0, len(cycles))
	for _, c := range cycles {
		elapsed := "-"
		if d := c.Elapsed(); d > 0 {
			elapsed = d.Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortID(c.ID),
			humanize.RelTime(c.StartedAt, now, "ago", "from now"),
			string(c.Status),
			strconv.Itoa(c.Items),
			strconv.Itoa(c.Rendered),
			strconv.Itoa(c.Failed),
			c.PlaylistDuration.Round(time.Second).String(),
			elapsed,
		})
	}
	return rows
}

func segmentRows(segments []history.Segment) [][]string {
	rows := make([][]string, 0, len(segments))
	for _, s := range segments {
		size := "-"
		if s.Bytes > 0 {
			size = humanize.IBytes(uint64(s.Bytes))
		}
		duration := "-"
		if s.Duration > 0 {
			duration = s.Duration.Round(100 * time.Millisecond).String()
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Index + 1),
			textutil.Shorten(s.Title, 48),
			string(s.Status),
			dash(s.Stage),
			dash(s.Engine),
			duration,
			size,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
