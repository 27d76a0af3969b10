package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tagbrain/internal/api"
)

type fixFlags struct {
	releaseID   string
	recordingID string
}

func (f *fixFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.releaseID, "release", "", "MusicBrainz release ID")
	cmd.Flags().StringVar(&f.recordingID, "recording", "", "MusicBrainz recording ID")
}

func (f *fixFlags) validate() error {
	if strings.TrimSpace(f.releaseID) == "" || strings.TrimSpace(f.recordingID) == "" {
		return errors.New("both --release and --recording are required")
	}
	return nil
}

func newFixCommand(ctx *commandContext) *cobra.Command {
	var flags fixFlags
	cmd := &cobra.Command{
		Use:   "fix <target>",
		Short: "Re-tag a library file as a specific recording and release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			target, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			return ctx.withClient(func(client *api.Client) error {
				task, err := client.Fix(cmd.Context(), api.FixRequest{
					TargetPath:  target,
					ReleaseID:   strings.TrimSpace(flags.releaseID),
					RecordingID: strings.TrimSpace(flags.recordingID),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued fix for %s (task %d)\n", task.Path, task.ID)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newFixFailedCommand(ctx *commandContext) *cobra.Command {
	var flags fixFlags
	cmd := &cobra.Command{
		Use:   "fix-failed <source>",
		Short: "Tag and file a source that failed to scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			source, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			return ctx.withClient(func(client *api.Client) error {
				task, err := client.FixFailed(cmd.Context(), api.FixFailedRequest{
					SourcePath:  source,
					ReleaseID:   strings.TrimSpace(flags.releaseID),
					RecordingID: strings.TrimSpace(flags.recordingID),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued fix-failed for %s (task %d)\n", task.Path, task.ID)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}
