package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"tagbrain/internal/api"
	"tagbrain/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and library status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.Status(cmd.Context())
			if err != nil && !api.IsAPIUnavailable(err) {
				return wrapClientError(err, ctx.apiAddress(ctx.config))
			}
			reachable := err == nil
			if !reachable {
				// Run the same checks locally so status stays useful
				// while the daemon is down.
				resp = api.StatusResponse{
					Dependencies: preflight.CheckSystemDeps(ctx.config),
					Checks:       preflight.RunAll(cmd.Context(), ctx.config),
				}
			}
			if asJSON {
				return writeJSON(cmd, resp)
			}
			renderStatus(cmd.OutOrStdout(), resp, reachable, ctx.apiAddress(ctx.config))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status payload")
	return cmd
}

func renderStatus(out io.Writer, resp api.StatusResponse, reachable bool, addr string) {
	colorize := shouldColorize(out)
	printSection := func(title string, lines []string) {
		for _, line := range renderSectionHeader(title, colorize) {
			fmt.Fprintln(out, line)
		}
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out)
	}

	var daemonLines []string
	if !reachable {
		daemonLines = append(daemonLines, renderStatusLine("Daemon", statusInfo, "Not running ("+addr+")", colorize))
	} else {
		daemonLines = append(daemonLines,
			renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d, %s)", resp.PID, addr), colorize),
			renderStatusLine("Watching", statusInfo, yesNo(resp.Watching), colorize),
			renderStatusLine("Pending", statusInfo, strconv.Itoa(resp.Pending), colorize),
			renderStatusLine("In progress", statusInfo, strconv.Itoa(resp.RunningCount), colorize),
			renderStatusLine("Scan log", statusInfo, resp.LogDBPath, colorize),
		)
		if resp.LastError != "" {
			daemonLines = append(daemonLines, renderStatusLine("Last error", statusWarn, resp.LastError, colorize))
		}
	}
	printSection("Daemon", daemonLines)
	printSection("Dependencies", dependencyLines(resp.Dependencies, colorize))
	printSection("System Checks", checkLines(resp.Checks, colorize))
}
