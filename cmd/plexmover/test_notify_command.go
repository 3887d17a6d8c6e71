package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"plexmover/internal/api"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	var token, chatID string
	cmd := &cobra.Command{
		Use:   "test-notify",
		Short: "Send a Telegram test message through the daemon",
		Long:  "Send a Telegram test message. Blank token and chat id fall back to the daemon's notifications settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.TestTelegram(reqCtx, token, chatID)
				if err != nil {
					return err
				}
				if resp.Message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Test message sent")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Telegram bot token")
	cmd.Flags().StringVar(&chatID, "chat-id", "", "Telegram chat id")
	return cmd
}
