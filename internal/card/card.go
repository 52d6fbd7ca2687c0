// Package card builds, serializes and exports horse stat cards.
package card

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/stable/internal/tuning"
	"github.com/andresmejia3/stable/internal/types"
	"github.com/andresmejia3/stable/internal/utils"
	"github.com/disintegration/imaging"
)

const (
	// MinStat and MaxStat bound speed, stamina and jump.
	MinStat = 1
	MaxStat = 100

	statsSuffix = "_stats.json"
	imageExt    = ".png"
)

// ErrValidation matches every ValidationError via errors.Is.
var ErrValidation = errors.New("invalid stat card")

// ValidationError reports card text that cannot be used: malformed JSON,
// missing required fields, or values outside the accepted ranges.
type ValidationError struct {
	Missing []string
	Err     error
}

func (e *ValidationError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("stat card missing required fields: %s", strings.Join(e.Missing, ", "))
	case e.Err != nil:
		return fmt.Sprintf("invalid stat card: %v", e.Err)
	default:
		return ErrValidation.Error()
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Build assembles a card from form values.
func Build(name string, speed, stamina, jump int, t types.Tuning) types.StatCard {
	return types.StatCard{
		Name:    name,
		Speed:   speed,
		Stamina: stamina,
		Jump:    jump,
		Tuning:  t,
	}
}

// Serialize encodes a card as 2-space indented JSON without a trailing newline.
func Serialize(c types.StatCard) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encoding stat card: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// wireCard mirrors StatCard with pointers so absent fields can be told apart from zero values.
// Stats are read as numbers and checked for integral values afterwards, so 70.0 and 1e2 are accepted.
type wireCard struct {
	Name    *string       `json:"name"`
	Speed   *float64      `json:"speed"`
	Stamina *float64      `json:"stamina"`
	Jump    *float64      `json:"jump"`
	Tuning  *types.Tuning `json:"tuning"`
}

// maxStatMagnitude keeps integral float stats inside the exactly representable range.
const maxStatMagnitude = 1 << 53

// Parse decodes card text produced by Serialize (or written by hand).
// name, speed, stamina and jump are required. Tuning factors missing from the
// card, or the whole tuning object, default to 1.0 (blur to false).
func Parse(data []byte) (types.StatCard, error) {
	identity := types.Identity()
	w := wireCard{Tuning: &identity}
	if err := json.Unmarshal(data, &w); err != nil {
		return types.StatCard{}, &ValidationError{Err: err}
	}

	var missing []string
	if w.Name == nil {
		missing = append(missing, "name")
	}
	if w.Speed == nil {
		missing = append(missing, "speed")
	}
	if w.Stamina == nil {
		missing = append(missing, "stamina")
	}
	if w.Jump == nil {
		missing = append(missing, "jump")
	}
	if len(missing) > 0 {
		return types.StatCard{}, &ValidationError{Missing: missing}
	}

	stats := [3]int{}
	for i, f := range []struct {
		name  string
		value float64
	}{
		{"speed", *w.Speed},
		{"stamina", *w.Stamina},
		{"jump", *w.Jump},
	} {
		if f.value != math.Trunc(f.value) || math.Abs(f.value) > maxStatMagnitude {
			return types.StatCard{}, &ValidationError{Err: fmt.Errorf("%s must be a whole number, got %v", f.name, f.value)}
		}
		stats[i] = int(f.value)
	}

	// "tuning": null clears the pointer.
	t := types.Identity()
	if w.Tuning != nil {
		t = *w.Tuning
	}
	return Build(*w.Name, stats[0], stats[1], stats[2], t), nil
}

// Validate applies the input-surface ranges: a non-empty name, stats in
// [MinStat, MaxStat] and tuning factors in [tuning.MinFactor, tuning.MaxFactor].
func Validate(c types.StatCard) error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Err: errors.New("name must not be empty")}
	}
	stats := []struct {
		name  string
		value int
	}{
		{"speed", c.Speed},
		{"stamina", c.Stamina},
		{"jump", c.Jump},
	}
	for _, s := range stats {
		if s.value < MinStat || s.value > MaxStat {
			return &ValidationError{Err: fmt.Errorf("%s must be between %d and %d, got %d", s.name, MinStat, MaxStat, s.value)}
		}
	}
	return ValidateTuning(c.Tuning)
}

// ValidateTuning checks the four enhancement factors.
func ValidateTuning(t types.Tuning) error {
	factors := []struct {
		name  string
		value float64
	}{
		{"brightness", t.Brightness},
		{"contrast", t.Contrast},
		{"color", t.Color},
		{"sharpness", t.Sharpness},
	}
	for _, f := range factors {
		// Written as a negated range so NaN is rejected too.
		if !(f.value >= tuning.MinFactor && f.value <= tuning.MaxFactor) {
			return &ValidationError{Err: fmt.Errorf("%s must be between %.1f and %.1f, got %g", f.name, tuning.MinFactor, tuning.MaxFactor, f.value)}
		}
	}
	return nil
}

// EncodePNG encodes img losslessly at its original size.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return buf.Bytes(), nil
}

// StatsFileName is the download name of a card's JSON file.
func StatsFileName(name string) string {
	return utils.SafeFileName(name) + statsSuffix
}

// ImageFileName is the download name of a card's tuned photo.
func ImageFileName(name string) string {
	return utils.SafeFileName(name) + imageExt
}

// Export holds the two files produced by saving a card.
type Export struct {
	StatsPath string
	ImagePath string
	Stats     []byte
	Image     []byte
}

// Render serializes the card and encodes the tuned image without touching disk.
// A nil image means nothing was loaded, so nothing is exported.
func Render(c types.StatCard, img image.Image) (*Export, error) {
	if img == nil {
		return nil, errors.New("no image loaded")
	}
	stats, err := Serialize(c)
	if err != nil {
		return nil, err
	}
	png, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return &Export{
		StatsPath: StatsFileName(c.Name),
		ImagePath: ImageFileName(c.Name),
		Stats:     stats,
		Image:     png,
	}, nil
}

// WriteFiles renders the card and writes <name>_stats.json and <name>.png into dir.
func WriteFiles(dir string, c types.StatCard, img image.Image) (*Export, error) {
	exp, err := Render(c, img)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	exp.StatsPath = filepath.Join(dir, exp.StatsPath)
	exp.ImagePath = filepath.Join(dir, exp.ImagePath)
	if err := os.WriteFile(exp.StatsPath, exp.Stats, 0644); err != nil {
		return nil, fmt.Errorf("writing stat card: %w", err)
	}
	if err := os.WriteFile(exp.ImagePath, exp.Image, 0644); err != nil {
		return nil, fmt.Errorf("writing image: %w", err)
	}
	return exp, nil
}
