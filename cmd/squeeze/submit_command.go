package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"squeeze/internal/ipc"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <file>...",
		Short: "Submit video files for compression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve path %q: %w", arg, err)
				}
				paths = append(paths, abs)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(paths)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Submitted %d job(s)\n", len(resp.Jobs))
				for _, job := range resp.Jobs {
					fmt.Fprintf(out, "  #%d %s (%s)\n", job.ID, job.SourceName, job.SourceSizeLabel)
				}
				return nil
			})
		},
	}
}
