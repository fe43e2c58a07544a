package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snag/internal/engine"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process pending download jobs once and exit",
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

			eng, err := engine.NewDefault(cfg, logger)
			if err != nil {
				return err
			}
			defer eng.Close()

			summary, err := eng.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"pending=%d claimed=%d completed=%d failed=%d rejected=%d\n",
				summary.Pending, summary.Claimed, summary.Completed, summary.Failed, summary.Rejected)
			return nil
		},
	}
}
