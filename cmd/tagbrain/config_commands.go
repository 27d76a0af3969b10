package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"tagbrain/internal/api"
	"tagbrain/internal/config"
)

const redacted = "<redacted>"

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigSetCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set paths.source_dir, paths.target_dir, and acoustid.api_key before starting the daemon.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configFlagValue())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var fromDaemon bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			if fromDaemon {
				err := ctx.withClient(func(client *api.Client) error {
					resp, err := client.Config(cmd.Context())
					if err != nil {
						return err
					}
					cfg = resp.Config
					return nil
				})
				if err != nil {
					return err
				}
			} else {
				local, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				cfg = *local.Clone()
			}
			if cfg.Paths.APIToken != "" {
				cfg.Paths.APIToken = redacted
			}
			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&fromDaemon, "daemon", false, "Show the configuration the running daemon is using")
	return cmd
}

func newConfigSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key=value>",
		Short: "Change one setting, through the daemon when it is running",
		Long: "Change one setting such as scan.watch=true or musicbrainz.search_limit=10.\n" +
			"When the daemon is reachable the change is applied and saved by the daemon;\n" +
			"otherwise the configuration file is rewritten directly.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, raw, ok := strings.Cut(args[0], "=")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				return errors.New("expected key=value")
			}
			raw = strings.TrimSpace(raw)
			out := cmd.OutOrStdout()

			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.Config(cmd.Context())
			switch {
			case err == nil:
				updated, err := setConfigValue(resp.Config, key, raw)
				if err != nil {
					return err
				}
				if _, err := client.PutConfig(cmd.Context(), updated); err != nil {
					return wrapClientError(err, ctx.apiAddress(ctx.config))
				}
				fmt.Fprintf(out, "Updated %s on the running daemon (saved to %s)\n", key, resp.Path)
				return nil
			case !api.IsAPIUnavailable(err):
				return wrapClientError(err, ctx.apiAddress(ctx.config))
			}

			local, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			updated, err := setConfigValue(*local.Clone(), key, raw)
			if err != nil {
				return err
			}
			if err := updated.Normalize(); err != nil {
				return err
			}
			if err := updated.Save(ctx.configPath); err != nil {
				return err
			}
			fmt.Fprintf(out, "Updated %s in %s (daemon not running)\n", key, ctx.configPath)
			return nil
		},
	}
}
