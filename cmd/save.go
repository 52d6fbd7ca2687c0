package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/stable/internal/card"
	"github.com/andresmejia3/stable/internal/store"
	"github.com/andresmejia3/stable/internal/tuning"
	"github.com/andresmejia3/stable/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var saveOpts Options

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Export a stat card: <name>_stats.json plus the tuned <name>.png",
	Annotations: map[string]string{
		storeAnnotation: "register",
	},
	Run: func(cmd *cobra.Command, args []string) {
		saveOpts.applyDefaults(cmd.Flags().Changed, Cfg.Defaults)
		if !cmd.Flags().Changed("output") {
			saveOpts.OutputPath = Cfg.Output.Dir
		}

		var reg store.Store
		if saveOpts.Register {
			reg = DB
		}
		exp, id, err := runSave(cmd.Context(), saveOpts, reg)
		if err != nil {
			utils.Die("Failed to save stat card", err)
		}

		fmt.Fprintf(os.Stderr, "📄 Stats: %s (%s)\n", exp.StatsPath, humanize.Bytes(uint64(len(exp.Stats))))
		fmt.Fprintf(os.Stderr, "🐴 Image: %s (%s)\n", exp.ImagePath, humanize.Bytes(uint64(len(exp.Image))))
		if id > 0 {
			fmt.Fprintf(os.Stderr, "📇 Registered as card %d\n", id)
		}
	},
}

func init() {
	saveCmd.Flags().StringVarP(&saveOpts.InputPath, "input", "i", "", "Path to the horse photo")
	saveCmd.Flags().StringVarP(&saveOpts.OutputPath, "output", "o", ".", "Directory for the exported files (default: output.dir from config)")
	saveCmd.Flags().BoolVar(&saveOpts.Register, "register", false, "Also record the card in the registry")
	addCardFlags(saveCmd, &saveOpts)

	saveCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(saveCmd)
}

// runSave writes both card files and, when reg is non-nil, registers the card.
// It returns the export and the registry ID (0 when not registered).
func runSave(ctx context.Context, opts Options, reg store.Store) (*card.Export, int, error) {
	if err := validateCardFlags(&opts); err != nil {
		return nil, 0, err
	}

	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, 0, err
	}
	img, _, err := tuning.DecodeBytes(data)
	if err != nil {
		return nil, 0, err
	}

	c := opts.Card()
	exp, err := card.WriteFiles(opts.OutputPath, c, tuning.Adjust(img, c.Tuning))
	if err != nil {
		return nil, 0, err
	}
	Logger.Debug("card exported", zap.String("name", c.Name), zap.String("stats", exp.StatsPath), zap.String("image", exp.ImagePath))

	if reg == nil {
		return exp, 0, nil
	}
	imageID := utils.GenerateImageID(exp.Image)
	id, err := reg.SaveCard(ctx, c, imageID, int64(len(exp.Image)))
	if err != nil {
		return exp, 0, fmt.Errorf("registering card: %w", err)
	}
	Logger.Info("card registered", zap.Int("id", id), zap.String("image_id", utils.ShortID(imageID)))
	return exp, id, nil
}
