package cmd

import (
	"fmt"
	"os"

	"github.com/andresmejia3/stable/internal/card"
	"github.com/andresmejia3/stable/internal/config"
	"github.com/andresmejia3/stable/internal/types"
	"github.com/spf13/cobra"
)

// Options holds the shared card and tuning flags for adjust, save, preview and batch
type Options struct {
	InputPath  string
	OutputPath string
	Name       string
	Speed      int
	Stamina    int
	Jump       int
	Brightness float64
	Contrast   float64
	Color      float64
	Sharpness  float64
	Blur       bool
	NumEngines int
	Register   bool
	Width      int
	Height     int
}

// Tuning returns the tuning described by the flags.
func (o Options) Tuning() types.Tuning {
	return types.Tuning{
		Brightness: o.Brightness,
		Contrast:   o.Contrast,
		Color:      o.Color,
		Sharpness:  o.Sharpness,
		Blur:       o.Blur,
	}
}

// Card returns the stat card described by the flags.
func (o Options) Card() types.StatCard {
	return card.Build(o.Name, o.Speed, o.Stamina, o.Jump, o.Tuning())
}

func addTuningFlags(c *cobra.Command, o *Options) {
	d := config.DefaultConfig().Defaults
	c.Flags().Float64VarP(&o.Brightness, "brightness", "b", d.Brightness, "Brightness factor (0.2-2.0)")
	c.Flags().Float64VarP(&o.Contrast, "contrast", "c", d.Contrast, "Contrast factor (0.2-2.0)")
	c.Flags().Float64Var(&o.Color, "color", d.Color, "Color (saturation) factor (0.2-2.0)")
	c.Flags().Float64Var(&o.Sharpness, "sharpness", d.Sharpness, "Sharpness factor (0.2-2.0)")
	c.Flags().BoolVar(&o.Blur, "blur", d.Blur, "Apply a soft Gaussian blur after the other adjustments")
}

func addCardFlags(c *cobra.Command, o *Options) {
	d := config.DefaultConfig().Defaults
	c.Flags().StringVarP(&o.Name, "name", "n", d.Name, "Horse name")
	c.Flags().IntVar(&o.Speed, "speed", d.Speed, "Speed (1-100)")
	c.Flags().IntVar(&o.Stamina, "stamina", d.Stamina, "Stamina (1-100)")
	c.Flags().IntVar(&o.Jump, "jump", d.Jump, "Jump (1-100)")
	addTuningFlags(c, o)
}

// applyDefaults replaces every flag the user did not set with the configured default.
func (o *Options) applyDefaults(changed func(name string) bool, d config.DefaultsConfig) {
	if !changed("name") {
		o.Name = d.Name
	}
	if !changed("speed") {
		o.Speed = d.Speed
	}
	if !changed("stamina") {
		o.Stamina = d.Stamina
	}
	if !changed("jump") {
		o.Jump = d.Jump
	}
	if !changed("brightness") {
		o.Brightness = d.Brightness
	}
	if !changed("contrast") {
		o.Contrast = d.Contrast
	}
	if !changed("color") {
		o.Color = d.Color
	}
	if !changed("sharpness") {
		o.Sharpness = d.Sharpness
	}
	if !changed("blur") {
		o.Blur = d.Blur
	}
}

// validateInputFile ensures path names a readable regular file.
func validateInputFile(path string) error {
	if path == "" {
		return fmt.Errorf("no image loaded: --input is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %w", err)
		}
		return fmt.Errorf("unable to access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path %s is a directory, expected an image file", path)
	}
	return nil
}

// validateCardFlags checks the input image and the card ranges before any work starts.
func validateCardFlags(o *Options) error {
	if err := validateInputFile(o.InputPath); err != nil {
		return err
	}
	return card.Validate(o.Card())
}

// validateTuningFlags checks the input image and the four factors.
func validateTuningFlags(o *Options) error {
	if err := validateInputFile(o.InputPath); err != nil {
		return err
	}
	return card.ValidateTuning(o.Tuning())
}
