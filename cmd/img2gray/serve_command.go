package main

import (
	"strings"

	"github.com/spf13/cobra"

	"go.yhsif.com/img2gray/logger"
	"go.yhsif.com/img2gray/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload page over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			addr := cfg.Server.Bind
			if b := strings.TrimSpace(bind); b != "" {
				addr = b
			}
			c := ctx.context(cmd)
			logger.For(c).InfoContext(c, "Using configuration", "path", ctx.configPath)
			srv := server.New(server.Options{
				MaxUploadBytes: cfg.Server.MaxUploadBytes,
				SessionTTL:     cfg.Server.SessionTTL(),
				Workers:        cfg.Pipeline.Workers,
				PreviewFit:     cfg.Preview.Fit,
				MaxPixels:      cfg.Pipeline.MaxPixels,
				MediaDelay:     cfg.Media.SimulatedDelay(),
			})
			return srv.ListenAndServe(c, addr)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind from the configuration")
	return cmd
}
