// Package preview renders a captioned card image: the tuned photo cropped to a
// frame with the horse's stats written underneath.
package preview

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/andresmejia3/stable/internal/types"
	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// CaptionHeight is the height of the text strip below the photo.
	CaptionHeight = 24
	// MinWidth and MinHeight bound the smallest frame that still fits a caption.
	MinWidth  = 64
	MinHeight = 96

	ellipsis = ".."
)

// Caption returns the card label, e.g. "Comet (S:70 St:65 J:60)".
func Caption(c types.StatCard) string {
	return fmt.Sprintf("%s (S:%d St:%d J:%d)", c.Name, c.Speed, c.Stamina, c.Jump)
}

// Render crops img to the best width x (height-CaptionHeight) region, scales it
// into the frame and draws the caption below. The result is width x height.
func Render(ctx context.Context, img image.Image, c types.StatCard, width, height int) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("no image loaded")
	}
	if width < MinWidth || height < MinHeight {
		return nil, fmt.Errorf("preview frame %dx%d is smaller than %dx%d", width, height, MinWidth, MinHeight)
	}
	photoH := height - CaptionHeight

	photo, err := cropTo(ctx, img, width, photoH)
	if err != nil {
		return nil, err
	}

	canvas := imaging.New(width, height, color.White)
	canvas = imaging.Paste(canvas, photo, image.Pt(0, 0))
	drawCaption(canvas, Caption(c), photoH)
	return canvas, nil
}

// cropTo finds the most interesting width:height region and scales it to fit.
func cropTo(ctx context.Context, img image.Image, width, height int) (*image.NRGBA, error) {
	r := &resizer{filter: imaging.Lanczos}
	analyzer := smartcrop.NewAnalyzer(r)

	type cropResult struct {
		crop image.Rectangle
		err  error
	}
	resultChan := make(chan cropResult, 1)

	go func() {
		topCrop, err := analyzer.FindBestCrop(img, width, height)
		resultChan <- cropResult{crop: topCrop, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultChan:
		if result.err != nil || result.crop.Empty() {
			// Tiny or degenerate inputs: fall back to a centered fill.
			return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos), nil
		}
		cropped := imaging.Crop(img, result.crop)
		return imaging.Resize(cropped, width, height, imaging.Lanczos), nil
	}
}

// drawCaption centers text in the strip starting at row top, shortening it to fit.
func drawCaption(dst *image.NRGBA, text string, top int) {
	face := basicfont.Face7x13
	width := dst.Bounds().Dx()
	text = fitText(face, text, width-8)

	textWidth := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	baseline := top + (CaptionHeight+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{40, 30, 20, 255}),
		Face: face,
		Dot:  fixed.P((width-textWidth)/2, baseline),
	}
	d.DrawString(text)
}

// fitText trims runes from the end of text until it fits maxWidth pixels.
func fitText(face font.Face, text string, maxWidth int) string {
	if font.MeasureString(face, text).Ceil() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if font.MeasureString(face, candidate).Ceil() <= maxWidth {
			return candidate
		}
	}
	return ""
}

// resizer implements smartcrop's options.Resizer with imaging.
type resizer struct {
	filter imaging.ResampleFilter
}

func (r *resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.filter)
}
