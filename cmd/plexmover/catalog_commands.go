package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"plexmover/internal/api"
	"plexmover/internal/store"
)

func newCatalogCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newMoviesCommand(ctx),
		newShowCommand(ctx),
		newHistoryCommand(ctx),
		newIdentifyCommand(ctx),
		newRemoveCommand(ctx, "delete", "Remove a catalog entry", false),
		newRemoveCommand(ctx, "ignore", "Hide a catalog entry from future passes", true),
		newIgnoredCommand(ctx),
	}
}

func newMoviesCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "movies",
		Short: "List the visible catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				movies, err := client.Movies(reqCtx)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, movies)
				}
				return printMovies(cmd, movies, "No movies")
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

func printMovies(cmd *cobra.Command, movies []api.MovieView, empty string) error {
	out := cmd.OutOrStdout()
	if len(movies) == 0 {
		fmt.Fprintln(out, empty)
		return nil
	}
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(movies))
	for _, movie := range movies {
		rows = append(rows, []string{
			shortHash(movie.Hash),
			movieLabel(movie.Entry),
			colorStatus(movie.Status, colorize),
			formatPercent(movie.Progress),
			formatSize(movie.Size),
			formatTime(movie.AddedAt),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Hash", "Title", "Status", "Progress", "Size", "Added"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}

func movieLabel(entry store.Entry) string {
	if entry.Year == "" {
		return entry.Title
	}
	return fmt.Sprintf("%s (%s)", entry.Title, entry.Year)
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <hash>",
		Short: "Show one catalog entry as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				movie, err := client.Movie(reqCtx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, movie)
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent move attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				records, err := client.History(reqCtx)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, records)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No history")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						formatTime(record.Timestamp),
						record.TorrentName,
						string(record.Status),
						record.DestPath,
						record.Message,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"When", "Torrent", "Result", "Destination", "Message"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "identify <hash> <tmdb-id>",
		Short: "Pin a catalog entry to a TMDB movie",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmdbID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || tmdbID <= 0 {
				return fmt.Errorf("invalid tmdb id %q", args[1])
			}
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.Identify(reqCtx, args[0], tmdbID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext, use, short string, ignore bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <hash>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.Delete(reqCtx, args[0], ignore)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
}

func newIgnoredCommand(ctx *commandContext) *cobra.Command {
	ignoredCmd := &cobra.Command{
		Use:   "ignored",
		Short: "List or restore ignored entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				movies, err := client.Ignored(reqCtx)
				if err != nil {
					return err
				}
				return printMovies(cmd, movies, "No ignored movies")
			})
		},
	}

	ignoredCmd.AddCommand(&cobra.Command{
		Use:   "restore <hash>",
		Short: "Make an ignored entry visible again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.Unignore(reqCtx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	})

	ignoredCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Make every ignored entry visible again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.ResetIgnored(reqCtx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	})

	return ignoredCmd
}
