package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snag/internal/toolpath"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check availability of external tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := toolpath.NewResolver(cfg).Check()
			rows := make([][]string, 0, len(statuses))
			missing := 0
			for _, status := range statuses {
				location := status.Path
				if !status.Available {
					location = status.Detail
					if !status.Optional {
						missing++
					}
				}
				rows = append(rows, []string{
					status.Name,
					yesNo(status.Available),
					yesNo(status.Optional),
					location,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tool", "Found", "Optional", "Location"},
				rows, nil,
			))
			if missing > 0 {
				return fmt.Errorf("%d required tool(s) missing", missing)
			}
			return nil
		},
	}
}
