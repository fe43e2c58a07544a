package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"snag/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test message to the configured Discord webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Discord.WebhookURL) == "" {
				return fmt.Errorf("no webhook configured ([discord] webhook_url or SNAG_DISCORD_WEBHOOK_URL)")
			}

			svc, err := notifications.NewService(cfg)
			if err != nil {
				return err
			}
			if err := svc.TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "test notification sent")
			return nil
		},
	}
}
