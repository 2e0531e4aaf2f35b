package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"squeeze/internal/api"
	"squeeze/internal/ipc"
	"squeeze/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the transcode queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueDescribeCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))

	return queueCmd
}

// withQueue runs fn against the daemon when it is reachable and falls back
// to direct store access for read paths when it is not.
func (c *commandContext) withQueue(fn func(*ipc.Client, *queue.Store) error) error {
	client, err := c.dialClient()
	if err == nil {
		defer client.Close()
		return fn(client, nil)
	}

	cfg, cfgErr := c.ensureConfig()
	if cfgErr != nil {
		return cfgErr
	}
	store, openErr := queue.Open(cfg)
	if openErr != nil {
		return openErr
	}
	defer store.Close()
	return fn(nil, store)
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				stats := make(map[string]int)
				if client != nil {
					status, err := client.Status()
					if err != nil {
						return err
					}
					stats = status.Sequencer.QueueStats
				} else {
					raw, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					for status, count := range raw {
						stats[string(status)] = count
					}
				}

				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				var jobs []ipc.Job
				if client != nil {
					resp, err := client.QueueList(listStatuses)
					if err != nil {
						return err
					}
					jobs = resp.Jobs
				} else {
					var statuses []queue.Status
					for _, raw := range listStatuses {
						if parsed, ok := queue.ParseStatus(raw); ok {
							statuses = append(statuses, parsed)
						}
					}
					records, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					jobs = api.FromJobs(records)
				}

				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Size", "Result", "Progress"},
					buildQueueListRows(jobs),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueDescribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <jobID>",
		Short: "Show details for a single queue job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				var job ipc.Job
				if client != nil {
					resp, err := client.QueueDescribe(id)
					if err != nil {
						return err
					}
					job = resp.Job
				} else {
					record, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if record == nil {
						return fmt.Errorf("queue job %d not found", id)
					}
					job = api.FromJob(record)
				}

				printJobDetail(cmd, job)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all queue jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueClear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d queue jobs\n", resp.Removed)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Retry failed queue jobs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid job id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueRetry(ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed jobs\n", resp.Updated)
				return nil
			})
		},
	}
}

// buildQueueStatusRows orders counts by lifecycle rather than
// alphabetically so the table reads pending to terminal.
func buildQueueStatusRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count := stats[string(status)]
		if count == 0 {
			continue
		}
		rows = append(rows, []string{string(status), strconv.Itoa(count)})
	}
	return rows
}

func buildQueueListRows(jobs []ipc.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		progress := job.Progress.Message
		if job.Status == string(queue.StatusFailed) && job.ErrorMessage != "" {
			progress = job.ErrorMessage
		}
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.DisplayTitle,
			job.Status,
			job.SourceSizeLabel,
			job.ResultSizeLabel,
			progress,
		})
	}
	return rows
}

func printJobDetail(cmd *cobra.Command, job ipc.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job #%d\n", job.ID)
	fmt.Fprintf(out, "  Title:        %s\n", job.DisplayTitle)
	fmt.Fprintf(out, "  Source:       %s (%s)\n", job.SourceName, job.SourceSizeLabel)
	fmt.Fprintf(out, "  Status:       %s\n", job.Status)
	if job.ResultSizeLabel != "" {
		fmt.Fprintf(out, "  Result size:  %s\n", job.ResultSizeLabel)
	}
	if job.SourceHandle != "" {
		fmt.Fprintf(out, "  Source view:  %s\n", job.SourceHandle)
	}
	if job.ResultHandle != "" {
		fmt.Fprintf(out, "  Result view:  %s\n", job.ResultHandle)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:        %s\n", job.ErrorMessage)
	}
	if job.Progress.Message != "" {
		fmt.Fprintf(out, "  Progress:     %s\n", job.Progress.Message)
	}
	if job.CreatedAt != "" {
		fmt.Fprintf(out, "  Created:      %s\n", job.CreatedAt)
	}
	if job.UpdatedAt != "" {
		fmt.Fprintf(out, "  Updated:      %s\n", job.UpdatedAt)
	}
}
