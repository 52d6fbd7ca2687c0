package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresmejia3/stable/internal/card"
	"github.com/andresmejia3/stable/internal/preview"
	"github.com/andresmejia3/stable/internal/tuning"
	"github.com/andresmejia3/stable/internal/utils"
	"github.com/spf13/cobra"
)

var previewOpts Options

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render the tuned photo as a captioned card",
	Run: func(cmd *cobra.Command, args []string) {
		previewOpts.applyDefaults(cmd.Flags().Changed, Cfg.Defaults)
		if !cmd.Flags().Changed("width") {
			previewOpts.Width = Cfg.Preview.Width
		}
		if !cmd.Flags().Changed("height") {
			previewOpts.Height = Cfg.Preview.Height
		}

		out, err := runPreview(cmd.Context(), previewOpts)
		if err != nil {
			utils.Die("Failed to render preview", err)
		}
		fmt.Fprintf(os.Stderr, "🖼️  %s written to %s\n", preview.Caption(previewOpts.Card()), out)
	},
}

func init() {
	d := Cfg.Preview
	previewCmd.Flags().StringVarP(&previewOpts.InputPath, "input", "i", "", "Path to the horse photo")
	previewCmd.Flags().StringVarP(&previewOpts.OutputPath, "output", "o", "", "Output PNG path (default: <output dir>/<name>_preview.png)")
	previewCmd.Flags().IntVar(&previewOpts.Width, "width", d.Width, "Preview width in pixels")
	previewCmd.Flags().IntVar(&previewOpts.Height, "height", d.Height, "Preview height in pixels, including the caption strip")
	addCardFlags(previewCmd, &previewOpts)

	previewCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(ctx context.Context, opts Options) (string, error) {
	if err := validateCardFlags(&opts); err != nil {
		return "", err
	}

	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return "", err
	}
	img, _, err := tuning.DecodeBytes(data)
	if err != nil {
		return "", err
	}

	c := opts.Card()
	rendered, err := preview.Render(ctx, tuning.Adjust(img, c.Tuning), c, opts.Width, opts.Height)
	if err != nil {
		return "", err
	}
	png, err := card.EncodePNG(rendered)
	if err != nil {
		return "", err
	}

	out := opts.OutputPath
	if out == "" {
		out = filepath.Join(Cfg.Output.Dir, utils.SafeFileName(c.Name)+"_preview.png")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	return out, os.WriteFile(out, png, 0644)
}
