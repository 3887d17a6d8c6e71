package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"plexmover/internal/api"
)

func newTransferCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newMoveCommand(ctx),
		newStopCommand(ctx),
		newMarkCommand(ctx),
		newBatchCopyCommand(ctx),
		newSyncCommand(ctx),
	}
}

func newMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <hash>",
		Short: "Copy a torrent into the library in the background",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.Move(reqCtx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <hash>",
		Short: "Cancel a running copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.Stop(reqCtx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
}

func newMarkCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mark <hash>",
		Short: "Record a torrent as moved by hand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.Mark(reqCtx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
}

func newBatchCopyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "batch-copy <hash>...",
		Short: "Start moves for several torrents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.BatchCopy(reqCtx, args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Started %d, skipped %d\n", resp.Copied, resp.Skipped)
				for _, msg := range resp.Errors {
					fmt.Fprintf(out, "  error: %s\n", msg)
				}
				return nil
			})
		},
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var trigger bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				out := cmd.OutOrStdout()
				if trigger {
					if err := client.Trigger(reqCtx); err != nil {
						return err
					}
					fmt.Fprintln(out, "Poll triggered")
					return nil
				}
				pass, err := client.Sync(reqCtx)
				if err != nil {
					return err
				}
				parts := []string{
					fmt.Sprintf("%d items", pass.Items),
					fmt.Sprintf("%d created", pass.Created),
					fmt.Sprintf("%d updated", pass.Updated),
					fmt.Sprintf("%d orphaned", pass.Orphaned),
					fmt.Sprintf("%d completed", pass.Completed),
				}
				if pass.AutoMoved > 0 {
					parts = append(parts, fmt.Sprintf("%d auto-moved", pass.AutoMoved))
				}
				fmt.Fprintf(out, "Pass finished in %s: %s\n", pass.Duration.Round(time.Millisecond), strings.Join(parts, ", "))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&trigger, "trigger", false, "Wake the poll loop instead of waiting for a pass")
	return cmd
}
