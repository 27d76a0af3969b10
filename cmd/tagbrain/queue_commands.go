package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tagbrain/internal/api"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pending tasks in the order they will run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Queue(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Running: %d\n", resp.RunningCount)
				if len(resp.Tasks) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(queueColumns(), buildQueueRows(resp.Tasks)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw API response")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every pending task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				removed, err := client.ClearQueue(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d pending tasks\n", removed)
				return nil
			})
		},
	}
}

func queueColumns() []column {
	return []column{
		{header: "#", align: alignRight},
		{header: "ID", align: alignRight},
		{header: "Kind"},
		{header: "Path", maxWidth: pathColumnWidth},
		{header: "Retries", align: alignRight},
		{header: "Queued"},
	}
}

func buildQueueRows(tasks []api.Task) [][]string {
	rows := make([][]string, 0, len(tasks))
	for i, task := range tasks {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.FormatUint(task.ID, 10),
			task.Kind,
			task.Path,
			strconv.Itoa(task.RetryCount),
			formatTimestamp(task.EnqueuedAt),
		})
	}
	return rows
}

// formatTimestamp renders an API timestamp in local time, passing through
// anything it cannot parse.
func formatTimestamp(value string) string {
	ts, ok := api.ParseTime(value)
	if !ok {
		return value
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
