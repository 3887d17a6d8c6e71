package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"plexmover/internal/api"
	"plexmover/internal/catalog"
)

func newWatchlistCommand(ctx *commandContext) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage the watchlist",
	}

	watchCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List watchlisted entries and their remaining days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				movies, err := client.Watchlist(reqCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(movies) == 0 {
					fmt.Fprintln(out, "Watchlist is empty")
					return nil
				}
				rows := make([][]string, 0, len(movies))
				for _, movie := range movies {
					rows = append(rows, []string{
						shortHash(movie.Hash),
						movieLabel(movie.Entry),
						fmt.Sprintf("%d", movie.DaysRemaining),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Hash", "Title", "Days left"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	})

	var days int
	addCmd := &cobra.Command{
		Use:   "add <hash>",
		Short: "Add an entry to the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.AddWatchlist(reqCtx, args[0], days)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
	addCmd.Flags().IntVar(&days, "days", catalog.DefaultWatchlistDays, "Days to keep the entry watchlisted")
	watchCmd.AddCommand(addCmd)

	watchCmd.AddCommand(&cobra.Command{
		Use:   "remove <hash>",
		Short: "Take an entry off the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.RemoveWatchlist(reqCtx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	})

	return watchCmd
}
