package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"tagbrain/internal/api"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <path>",
		Short: "Queue one file for identification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			return ctx.withClient(func(client *api.Client) error {
				task, err := client.Scan(cmd.Context(), path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s (task %d)\n", task.Path, task.ID)
				return nil
			})
		},
	}
}

func newScanAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan-all",
		Short: "Queue every file under the source directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				queued, err := client.ScanAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %d files\n", queued)
				return nil
			})
		},
	}
}
