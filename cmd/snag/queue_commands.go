package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"snag/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the job queue",
	}
	cmd.AddCommand(newQueueListCommand(ctx))
	cmd.AddCommand(newQueueReapCommand(ctx))
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show queue state counts and pending descriptors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			q := queue.New(cfg)

			pending, err := q.Pending()
			if err != nil {
				return err
			}
			claimed, err := q.Claimed()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"incoming", strconv.Itoa(len(pending))},
				{"processing", strconv.Itoa(len(claimed))},
				{"done", strconv.Itoa(countDescriptors(cfg.DoneDir()))},
				{"error", strconv.Itoa(countDescriptors(cfg.ErrorDir()))},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"State", "Jobs"}, rows, []columnAlignment{alignLeft, alignRight}))

			if len(pending) > 0 {
				detail := make([][]string, 0, len(pending))
				for _, name := range pending {
					detail = append(detail, []string{name, descriptorAge(cfg.IncomingDir(), name)})
				}
				fmt.Fprintln(out, renderTable([]string{"Pending Descriptor", "Age"}, detail, nil))
			}
			if len(claimed) > 0 {
				detail := make([][]string, 0, len(claimed))
				for _, name := range claimed {
					detail = append(detail, []string{name, descriptorAge(cfg.ProcessingDir(), name)})
				}
				fmt.Fprintln(out, renderTable([]string{"Processing Descriptor", "Age"}, detail, nil))
			}
			return nil
		},
	}
}

func newQueueReapCommand(ctx *commandContext) *cobra.Command {
	var minutes int
	var action string

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Move stale claimed descriptors out of processing",
		Long: `Move claimed descriptors older than the cutoff out of the processing
directory. Stale claims come from crashed runs; reaping is manual on purpose,
so an operator decides whether the job retries (requeue) or retires (error).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if minutes <= 0 {
				minutes = cfg.Queue.ReapAfterMinutes
			}

			reapAction := queue.ReapAction(strings.ToLower(strings.TrimSpace(action)))
			cutoff := time.Now().Add(-time.Duration(minutes) * time.Minute)
			moved, err := queue.New(cfg).Reap(cutoff, reapAction)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reaped %d descriptor(s) older than %dm (%s)\n", moved, minutes, reapAction)
			return nil
		},
	}

	cmd.Flags().IntVar(&minutes, "minutes", 0, "Age cutoff in minutes (default from config)")
	cmd.Flags().StringVar(&action, "action", string(queue.ReapRequeue), "Where stale jobs go: requeue or error")
	return cmd
}

func countDescriptors(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), queue.JobExt) {
			count++
		}
	}
	return count
}

func descriptorAge(dir, name string) string {
	info, err := os.Stat(dir + string(os.PathSeparator) + name)
	if err != nil {
		return "?"
	}
	return fmtAge(info.ModTime())
}
