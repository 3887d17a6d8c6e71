package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"plexmover/internal/api"
	"plexmover/internal/copyengine"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and live torrents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				status, err := client.Status(reqCtx)
				if err != nil {
					return err
				}
				torrents, err := client.Torrents(reqCtx)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{"status": status, "torrents": torrents})
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
				for _, line := range daemonLines(status, colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderSectionHeader("Torrents", colorize))
				if len(torrents) == 0 {
					fmt.Fprintln(out, "No torrents")
					return nil
				}
				rows := make([][]string, 0, len(torrents))
				for _, t := range torrents {
					copyCell := "-"
					if t.Copy != nil {
						copyCell = formatCopy(*t.Copy)
					}
					rows = append(rows, []string{
						shortHash(t.Hash),
						t.Name,
						colorStatus(t.Status, colorize),
						formatPercent(t.Progress),
						formatSize(t.Size),
						copyCell,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Hash", "Name", "Status", "Progress", "Size", "Copy"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

func daemonLines(status api.DaemonStatus, colorize bool) []string {
	lines := make([]string, 0, 8)
	if status.Workflow.Running {
		lines = append(lines, renderStatusLine("Workflow", statusOK, "Running, poll every "+status.Workflow.PollInterval, colorize))
	} else {
		lines = append(lines, renderStatusLine("Workflow", statusWarn, "Stopped", colorize))
	}
	lines = append(lines, renderStatusLine("Auto move", statusInfo, yesNo(status.Workflow.AutoMove), colorize))
	for _, check := range status.Workflow.Checks {
		if check.Ready {
			lines = append(lines, renderStatusLine(check.Name, statusOK, "Ready", colorize))
		} else {
			lines = append(lines, renderStatusLine(check.Name, statusError, check.Detail, colorize))
		}
	}
	if pass := status.Workflow.LastPass; pass != nil {
		msg := fmt.Sprintf("%d items, %d created, %d completed at %s", pass.Items, pass.Created, pass.Completed, formatTime(pass.StartedAt))
		lines = append(lines, renderStatusLine("Last pass", statusInfo, msg, colorize))
	}
	lines = append(lines, renderStatusLine("Active copies", statusInfo, fmt.Sprintf("%d", status.Workflow.ActiveCopies), colorize))
	if status.Feeds.HasFeeds {
		msg := fmt.Sprintf("%s in %ds", status.Feeds.NextFeedName, status.Feeds.CountdownSeconds)
		lines = append(lines, renderStatusLine("Next feed", statusInfo, msg, colorize))
	} else {
		lines = append(lines, renderStatusLine("Feeds", statusInfo, "None configured", colorize))
	}
	lines = append(lines, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
	return lines
}

func formatCopy(job copyengine.Job) string {
	switch job.Status {
	case copyengine.JobCopying:
		return fmt.Sprintf("%.1f%% @ %.1f MB/s", job.Percent, job.SpeedMBps)
	default:
		return string(job.Status)
	}
}
