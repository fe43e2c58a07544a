package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snag/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent job outcomes from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled in config ([history] enabled = false)")
			}

			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no history yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				location := rec.FinalPath
				if location == "" {
					location = rec.Detail
				}
				if rec.UsedFallback {
					location += " (fallback)"
				}
				rows = append(rows, []string{
					rec.CreatedAt.Local().Format("2006-01-02 15:04"),
					rec.Status,
					rec.Title,
					location,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"When", "Status", "Title", "Location"},
				rows, nil,
			))

			counts, err := store.CountByStatus(cmd.Context())
			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "totals: %d completed, %d failed, %d rejected\n",
					counts[history.StatusCompleted], counts[history.StatusFailed], counts[history.StatusRejected])
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of records to show")
	return cmd
}
