package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/stable/internal/card"
	"github.com/andresmejia3/stable/internal/tuning"
	"github.com/andresmejia3/stable/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var adjustOpts Options

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Apply brightness, contrast, color, sharpness and blur to a photo",
	Run: func(cmd *cobra.Command, args []string) {
		adjustOpts.applyDefaults(cmd.Flags().Changed, Cfg.Defaults)
		out, size, err := runAdjust(adjustOpts)
		if err != nil {
			utils.Die("Failed to adjust image", err)
		}
		fmt.Fprintf(os.Stderr, "🎨 Tuned image written to %s (%s)\n", out, humanize.Bytes(uint64(size)))
	},
}

func init() {
	adjustCmd.Flags().StringVarP(&adjustOpts.InputPath, "input", "i", "", "Path to the horse photo")
	adjustCmd.Flags().StringVarP(&adjustOpts.OutputPath, "output", "o", "", "Output PNG path (default: <output dir>/<input>_tuned.png)")
	addTuningFlags(adjustCmd, &adjustOpts)

	adjustCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(adjustCmd)
}

// runAdjust tunes one image and writes it as PNG, returning the path and size written.
func runAdjust(opts Options) (string, int64, error) {
	if err := validateTuningFlags(&opts); err != nil {
		return "", 0, err
	}

	f, err := os.Open(opts.InputPath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	img, format, err := tuning.Decode(f)
	if err != nil {
		return "", 0, err
	}
	Logger.Debug("decoded image", zap.String("path", opts.InputPath), zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))

	data, err := card.EncodePNG(tuning.Adjust(img, opts.Tuning()))
	if err != nil {
		return "", 0, err
	}

	out := opts.OutputPath
	if out == "" {
		base := strings.TrimSuffix(filepath.Base(opts.InputPath), filepath.Ext(opts.InputPath))
		out = filepath.Join(Cfg.Output.Dir, utils.SafeFileName(base)+"_tuned.png")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", 0, fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return "", 0, err
	}
	return out, int64(len(data)), nil
}
