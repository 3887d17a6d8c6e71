package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"plexmover/internal/api"
)

func newFeedsCommand(ctx *commandContext) *cobra.Command {
	feedsCmd := &cobra.Command{
		Use:   "feeds",
		Short: "Inspect and refresh RSS feeds",
	}

	feedsCmd.AddCommand(&cobra.Command{
		Use:   "fetch",
		Short: "Refresh every enabled feed now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.FetchFeeds(reqCtx)
				if err != nil {
					return err
				}
				if !resp.Success {
					return errors.New(resp.Message)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, resp.Message)
				for _, title := range resp.Movies {
					fmt.Fprintf(out, "  + %s\n", title)
				}
				return nil
			})
		},
	})

	feedsCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the next scheduled feed refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				status, err := client.FeedStatus(reqCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !status.HasFeeds {
					fmt.Fprintln(out, "No RSS feeds configured")
					return nil
				}
				fmt.Fprintf(out, "Next: %s (%s) in %ds\n", status.NextFeedName, status.NextFeedURL, status.CountdownSeconds)
				return nil
			})
		},
	})

	feedsCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete catalog entries that only came from feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.ClearFeeds(reqCtx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	})

	feedsCmd.AddCommand(&cobra.Command{
		Use:   "test <url>",
		Short: "Probe a feed URL without saving anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.TestFeed(reqCtx, args[0])
				if err != nil {
					return err
				}
				if !resp.Success {
					return errors.New(resp.Message)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, resp.Message)
				if resp.FeedInfo != nil && resp.FeedInfo.Title != "" {
					fmt.Fprintf(out, "Title: %s\n", resp.FeedInfo.Title)
				}
				return nil
			})
		},
	})

	return feedsCmd
}
