package preview

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/andresmejia3/stable/internal/types"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

var comet = types.StatCard{Name: "Comet", Speed: 70, Stamina: 65, Jump: 60, Tuning: types.Identity()}

func gradient(w, h int) *image.NRGBA {
	img := imaging.New(w, h, color.Black)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 255 / w), uint8(y * 255 / h), 90, 255})
		}
	}
	return img
}

func TestCaption(t *testing.T) {
	assert.Equal(t, "Comet (S:70 St:65 J:60)", Caption(comet))
	assert.Equal(t, " (S:1 St:100 J:1)", Caption(types.StatCard{Speed: 1, Stamina: 100, Jump: 1}))
}

func TestRenderDimensions(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		frameW, frmH int
	}{
		{"Landscape", 400, 200, 240, 300},
		{"Portrait", 150, 500, 120, 200},
		{"Tiny", 4, 4, 64, 96},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(context.Background(), gradient(tt.srcW, tt.srcH), comet, tt.frameW, tt.frmH)
			require.NoError(t, err)
			assert.Equal(t, tt.frameW, out.Bounds().Dx())
			assert.Equal(t, tt.frmH, out.Bounds().Dy())
		})
	}
}

func TestRenderDrawsCaption(t *testing.T) {
	out, err := Render(context.Background(), gradient(200, 200), comet, 200, 200)
	require.NoError(t, err)

	// The strip starts white; text pixels must darken some of it.
	dark := 0
	for y := 200 - CaptionHeight; y < 200; y++ {
		for x := 0; x < 200; x++ {
			if out.NRGBAAt(x, y).R < 128 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 0, "caption strip should contain text")

	corner := out.NRGBAAt(0, 199)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, corner)
}

func TestRenderErrors(t *testing.T) {
	_, err := Render(context.Background(), nil, comet, 200, 200)
	assert.EqualError(t, err, "no image loaded")

	_, err = Render(context.Background(), gradient(10, 10), comet, 32, 32)
	assert.Error(t, err)
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Either the crop wins the race or the cancellation does; both are valid.
	out, err := Render(ctx, gradient(300, 300), comet, 100, 120)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	} else {
		assert.Equal(t, 100, out.Bounds().Dx())
	}
}

func TestFitText(t *testing.T) {
	face := basicfont.Face7x13
	assert.Equal(t, "short", fitText(face, "short", 100))

	long := "Thunderhoof the Magnificent (S:100 St:100 J:100)"
	got := fitText(face, long, 70)
	assert.LessOrEqual(t, font.MeasureString(face, got).Ceil(), 70)
	assert.Contains(t, got, ellipsis)

	assert.Equal(t, "", fitText(face, long, 5))
}
