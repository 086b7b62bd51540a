package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"go.yhsif.com/img2gray/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

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
			}
			if err := config.CreateSample(target, overwrite); err != nil {
				return fmt.Errorf("%w (use --overwrite to replace an existing file)", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
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
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration valid: %s\n", ctx.configPath)
			fmt.Fprintln(out, renderTable(
				[]string{"Setting", "Value"},
				[][]string{
					{"server.bind", cfg.Server.Bind},
					{"server.max_upload_bytes", fmt.Sprint(cfg.Server.MaxUploadBytes)},
					{"server.session_ttl_seconds", fmt.Sprint(cfg.Server.SessionTTLSeconds)},
					{"logging.level", cfg.Logging.Level},
					{"logging.format", cfg.Logging.Format},
					{"preview.fit", fmt.Sprint(cfg.Preview.Fit)},
					{"pipeline.workers", fmt.Sprint(cfg.Pipeline.Workers)},
					{"media.simulated_delay_ms", fmt.Sprint(cfg.Media.SimulatedDelayMS)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}
