package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tagbrain/internal/api"
)

const defaultLogLimit = 50

func newLogCommand(ctx *commandContext) *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect the scan log",
	}

	logCmd.AddCommand(newLogListCommand(ctx))
	logCmd.AddCommand(newLogFailedCommand(ctx))
	logCmd.AddCommand(newLogClearCommand(ctx))

	return logCmd
}

func newLogListCommand(ctx *commandContext) *cobra.Command {
	var limit, page int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show scan log entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			if page < 0 {
				return fmt.Errorf("--page must not be negative")
			}
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Logs(cmd.Context(), limit, page)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				printLogPage(cmd, resp.Entries)
				fmt.Fprintf(cmd.OutOrStdout(), "Page %d, %d of %d entries\n", page, len(resp.Entries), resp.Total)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultLogLimit, "Entries per page")
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw API response")
	return cmd
}

func newLogFailedCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "failed",
		Short: "Show every failed entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.FailedLogs(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				printLogPage(cmd, resp.Entries)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw API response")
	return cmd
}

func newLogClearCommand(ctx *commandContext) *cobra.Command {
	var keepFailed bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete scan log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				removed, err := client.ClearLogs(cmd.Context(), keepFailed)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d log entries\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&keepFailed, "keep-failed", false, "Only delete successful entries")
	return cmd
}

func printLogPage(cmd *cobra.Command, entries []api.LogEntry) {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No log entries")
		return
	}
	columns := []column{
		{header: "ID", align: alignRight},
		{header: "Type"},
		{header: "When"},
		{header: "Result"},
		{header: "Source", maxWidth: pathColumnWidth},
		{header: "Outcome", maxWidth: pathColumnWidth},
		{header: "Score", align: alignRight},
	}
	fmt.Fprint(out, renderTable(columns, buildLogRows(entries)))
}

func buildLogRows(entries []api.LogEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		result := "ok"
		outcome := entry.TargetPath
		if !entry.Success {
			result = "failed"
			outcome = entry.Message
		}
		if entry.RetryCount != nil && *entry.RetryCount > 0 {
			result += " (retried)"
		}
		score := ""
		if entry.AcoustIDScore != nil {
			score = strconv.FormatFloat(*entry.AcoustIDScore, 'f', 2, 64)
		}
		rows = append(rows, []string{
			strconv.FormatInt(entry.ID, 10),
			entry.Type,
			formatTimestamp(entry.CreatedAt),
			result,
			entry.SourcePath,
			strings.TrimSpace(outcome),
			score,
		})
	}
	return rows
}
