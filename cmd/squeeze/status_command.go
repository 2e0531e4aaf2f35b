package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"squeeze/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and sequencer status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				printStatus(cmd, resp)
				return nil
			})
		},
	}
}

func printStatus(cmd *cobra.Command, resp *ipc.StatusResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Daemon:        %s (pid %d)\n", runningLabel(resp.Running), resp.PID)
	fmt.Fprintf(out, "Backend:       %s\n", readyLabel(resp.Sequencer.Ready))
	if resp.Sequencer.ActiveJobID != 0 {
		fmt.Fprintf(out, "Active job:    #%d\n", resp.Sequencer.ActiveJobID)
	} else {
		fmt.Fprintln(out, "Active job:    none")
	}
	fmt.Fprintf(out, "Live previews: %d\n", resp.OutstandingHandles)
	if resp.Sequencer.LastError != "" {
		fmt.Fprintf(out, "Last error:    %s\n", resp.Sequencer.LastError)
	}
	fmt.Fprintf(out, "Queue DB:      %s\n", resp.QueueDBPath)
	fmt.Fprintf(out, "Socket:        %s\n", resp.SocketPath)

	if len(resp.Sequencer.QueueStats) > 0 {
		fmt.Fprintln(out)
		rows := buildQueueStatusRows(resp.Sequencer.QueueStats)
		fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	}
}

func runningLabel(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

func readyLabel(ready bool) string {
	if ready {
		return "ready"
	}
	return "initializing"
}
