package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"snag/internal/config"
	"snag/internal/ingest"
	"snag/internal/queue"
	"snag/internal/services/ytdlp"
	"snag/internal/toolpath"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ingest [payload]",
		Short: "Queue a job descriptor from an argument or stdin",
		Long: `Queue a job descriptor. The payload is a JSON object with at least a url
field, passed as the single argument or piped on stdin. Base64-wrapped JSON is
accepted for producers that cannot quote reliably.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var payload []byte
			if len(args) == 1 {
				payload = []byte(args[0])
			} else {
				payload, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read payload from stdin: %w", err)
				}
			}

			opts := []ingest.Option{}
			if keyFunc := archiveKeyFunc(cfg); keyFunc != nil {
				opts = append(opts, ingest.WithArchiveCheck(cfg.ArchivePath(), keyFunc))
			}
			ing, err := ingest.New(queue.New(cfg), logger, opts...)
			if err != nil {
				return err
			}

			result, err := ing.Ingest(cmd.Context(), payload)
			if jsonOutput {
				encoded, encErr := json.Marshal(map[string]string{
					"status": string(result.Status),
					"detail": result.Detail,
					"url":    result.URL,
					"path":   result.DescriptorPath,
				})
				if encErr == nil {
					fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				}
				return err
			}

			switch result.Status {
			case ingest.StatusQueued:
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", result.Status, result.DescriptorPath)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", result.Status, result.Detail)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the ingest verdict as JSON")
	return cmd
}

// archiveKeyFunc builds the already-downloaded probe when the download archive
// is enabled and yt-dlp resolves. A missing binary just skips the check.
func archiveKeyFunc(cfg *config.Config) ingest.ArchiveKeyFunc {
	if !cfg.Download.ArchiveEnabled {
		return nil
	}
	binary, err := toolpath.NewResolver(cfg).YtDlp()
	if err != nil {
		return nil
	}
	client, err := ytdlp.New(binary, ytdlp.WithTimeout(60*time.Second))
	if err != nil {
		return nil
	}
	return func(ctx context.Context, url string) (string, error) {
		return client.ArchiveKey(ctx, url)
	}
}
