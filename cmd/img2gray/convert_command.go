package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.yhsif.com/ctxslog"

	"go.yhsif.com/img2gray"
)

const stdoutPath = "-"

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var inputPath string
	var outputPath string
	var mimeType string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an image to a grayscale PNG",
		Long: `Convert an image to a grayscale PNG.

Every pixel becomes the plain average of its red, green and blue channels,
alpha is kept as-is. The output defaults to grayscale-<input filename>.png
next to the input, use "-o -" to write to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			// An empty mimeType is sniffed from data.
			c := ctxslog.Attach(ctx.context(cmd), "input", inputPath)
			art, err := img2gray.Process(c, img2gray.ProcessArgs{
				Source: img2gray.SourceImage{
					Data:     data,
					MimeType: strings.TrimSpace(mimeType),
					Filename: filepath.Base(inputPath),
				},
				Workers:   cfg.Pipeline.Workers,
				MaxPixels: cfg.Pipeline.MaxPixels,
			})
			if err != nil {
				return fmt.Errorf("conversion: %w", err)
			}

			if outputPath == stdoutPath {
				_, err := art.WriteTo(cmd.OutOrStdout())
				return err
			}
			if outputPath == "" {
				outputPath = filepath.Join(filepath.Dir(inputPath), art.Filename)
			}
			if err := os.WriteFile(outputPath, art.Data, 0o644); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Converted %dx%d image to grayscale\n", art.Width, art.Height)
			fmt.Fprintf(out, "Input:  %s (%s)\n", inputPath, humanize.IBytes(uint64(len(data))))
			fmt.Fprintf(out, "Output: %s (%s)\n", outputPath, humanize.IBytes(uint64(art.Len())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input image file")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", `Output PNG file, "-" for stdout`)
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "Input content type, detected from the content by default")
	cmd.MarkFlagRequired("input")
	return cmd
}
