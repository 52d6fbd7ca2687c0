package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Tuning holds the four enhancement factors and the blur toggle applied to a horse photo.
// A factor of 1.0 leaves the image unchanged.
type Tuning struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Color      float64 `json:"color"`
	Sharpness  float64 `json:"sharpness"`
	Blur       bool    `json:"blur"`
}

// Identity returns the no-op tuning.
func Identity() Tuning {
	return Tuning{Brightness: 1.0, Contrast: 1.0, Color: 1.0, Sharpness: 1.0}
}

// MarshalJSON keeps a fractional part on every factor ("1.0", never "1") so
// saved cards match the files older versions of the app wrote.
func (t Tuning) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Brightness json.Number `json:"brightness"`
		Contrast   json.Number `json:"contrast"`
		Color      json.Number `json:"color"`
		Sharpness  json.Number `json:"sharpness"`
		Blur       bool        `json:"blur"`
	}{
		Brightness: floatNumber(t.Brightness),
		Contrast:   floatNumber(t.Contrast),
		Color:      floatNumber(t.Color),
		Sharpness:  floatNumber(t.Sharpness),
		Blur:       t.Blur,
	})
}

func floatNumber(f float64) json.Number {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return json.Number(s)
}

// StatCard is the exported record of a horse: name, three stats and the tuning used for its photo.
type StatCard struct {
	Name    string `json:"name"`
	Speed   int    `json:"speed"`
	Stamina int    `json:"stamina"`
	Jump    int    `json:"jump"`
	Tuning  Tuning `json:"tuning"`
}

// RaceResult is the outcome of racing two cards.
type RaceResult struct {
	Winner string  `json:"winner"`
	ScoreA float64 `json:"score_a"`
	ScoreB float64 `json:"score_b"`
}

// ImageTask represents a single image sent to a batch engine.
type ImageTask struct {
	Index int
	Path  string
}

// ImageResult is what an engine reports back for a task.
type ImageResult struct {
	Index  int
	Source string
	Output string
	Bytes  int64
	Err    error
}
