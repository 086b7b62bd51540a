package main

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"go.yhsif.com/img2gray"
)

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "identify file...",
		Short: "Show the type and dimensions of images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, path := range args {
				row, err := identify(path)
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"File", "Type", "Width", "Height", "Size", "Supported", "Output"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func identify(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	src := img2gray.SourceImage{
		Data:     data,
		Filename: filepath.Base(path),
	}
	width, height := "-", "-"
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width = strconv.Itoa(cfg.Width)
		height = strconv.Itoa(cfg.Height)
	}
	return []string{
		path,
		src.ResolvedMimeType(),
		width,
		height,
		humanize.IBytes(uint64(len(data))),
		yesNo(src.Validate() == nil),
		img2gray.OutputFilename(src.Filename),
	}, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
