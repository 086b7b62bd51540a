package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"go.yhsif.com/img2gray/media"
)

func newMediaCommand(ctx *commandContext) *cobra.Command {
	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Placeholder social media video downloaders",
	}
	mediaCmd.AddCommand(newMediaFetchCommand(ctx))
	return mediaCmd
}

func newMediaFetchCommand(ctx *commandContext) *cobra.Command {
	var download bool

	cmd := &cobra.Command{
		Use:   "fetch platform url",
		Short: "Look up a video (demo, no network access)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			var p media.Platform
			if err := p.UnmarshalText([]byte(args[0])); err != nil {
				return err
			}
			var svc media.Service = media.Stub{
				Platform: p,
				Delay:    cfg.Media.SimulatedDelay(),
			}
			c := ctx.context(cmd)
			info, err := svc.FetchMediaInfo(c, args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Platform", info.Platform.Title()},
					{"Title", info.Title},
					{"URL", info.URL},
					{"Thumbnail", info.ThumbnailURL},
				},
				nil,
			))
			if !download {
				return nil
			}
			if err := svc.Download(c, info); err != nil {
				if errors.Is(err, media.ErrDemoOnly) {
					fmt.Fprintln(out, "This is a demo. A backend service is required for actual downloads.")
					return nil
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&download, "download", false, "Also try to download the video")
	return cmd
}
