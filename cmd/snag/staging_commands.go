package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"snag/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and clean the download scratch area",
	}
	cmd.AddCommand(newStagingListCommand(ctx))
	cmd.AddCommand(newStagingCleanCommand(ctx))
	return cmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show scratch directories with age and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := staging.ListDirectories(cfg.StagingRoot())
			if err != nil {
				return err
			}
			if len(dirs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "staging area is empty")
				return nil
			}

			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				rows = append(rows, []string{dir.Name, fmtAge(dir.ModTime), fmtBytes(dir.Size)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Scratch", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove scratch directories older than the cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if hours <= 0 {
				hours = cfg.Staging.CleanAfterHours
			}

			result := staging.CleanStale(cfg.StagingRoot(), time.Duration(hours)*time.Hour, logger)
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d scratch directory(ies) older than %dh\n", len(result.Removed), hours)
			for _, cleanupErr := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", cleanupErr.Path, cleanupErr.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d directory(ies) could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 0, "Age cutoff in hours (default from config)")
	return cmd
}
