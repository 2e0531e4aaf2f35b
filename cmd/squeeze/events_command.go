package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"squeeze/internal/ipc"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var sinceSeq int64
	var follow bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show sequenced transcode progress events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				cursor := sinceSeq
				for {
					resp, err := client.Events(cursor)
					if err != nil {
						return err
					}
					for _, event := range resp.Events {
						fmt.Fprintf(out, "%s  #%d  %-9s  %s\n",
							event.Timestamp.Local().Format("15:04:05"),
							event.JobID,
							event.Type,
							event.Message,
						)
						cursor = event.Seq
					}
					if !follow {
						return nil
					}
					select {
					case <-cmd.Context().Done():
						return nil
					case <-time.After(time.Second):
					}
				}
			})
		},
	}

	cmd.Flags().Int64Var(&sinceSeq, "since", 0, "Only show events after this sequence number")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Poll for new events until interrupted")
	return cmd
}
