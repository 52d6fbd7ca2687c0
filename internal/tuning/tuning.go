// Package tuning implements the photo adjustment pipeline: brightness,
// contrast, color and sharpness enhancement followed by an optional soft blur.
//
// Every enhancement is a linear blend between a "degenerate" version of the
// image and the image itself:
//
//	out = degenerate + factor*(src - degenerate)
//
// so a factor of 1.0 returns the source, 0.0 returns the degenerate image and
// factors above 1.0 push the image further away from it.
package tuning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	// Formats beyond PNG/JPEG/BMP/TIFF (registered by imaging).
	_ "golang.org/x/image/webp"

	"github.com/andresmejia3/stable/internal/types"
	"github.com/disintegration/imaging"
)

const (
	// BlurSigma is the standard deviation of the soft blur.
	BlurSigma = 1.2

	// MinFactor and MaxFactor bound what the input surfaces accept. The
	// pipeline itself applies any factor.
	MinFactor = 0.2
	MaxFactor = 2.0
)

// ErrDecode is returned (wrapped) when input bytes are not a decodable raster image.
var ErrDecode = errors.New("not a decodable image")

// smoothKernel is the 3x3 smoothing filter used as the sharpness baseline.
var smoothKernel = [9]float64{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}

// Decode reads an image and normalizes it to an opaque RGB raster.
// It returns the detected format name ("png", "jpeg", ...).
func Decode(r io.Reader) (*image.NRGBA, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return ToRGB(img), format, nil
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(data []byte) (*image.NRGBA, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecode)
	}
	return Decode(bytes.NewReader(data))
}

// ToRGB returns a copy of img with its alpha channel dropped.
// The copy is anchored at the origin.
func ToRGB(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	opaque(out)
	return out
}

// Adjust runs the full pipeline and returns a new image. img is not modified.
func Adjust(img image.Image, t types.Tuning) *image.NRGBA {
	out := ToRGB(img)
	out = brightness(out, t.Brightness)
	out = contrast(out, t.Contrast)
	out = saturation(out, t.Color)
	out = sharpness(out, t.Sharpness)
	if t.Blur {
		out = blur(out)
	}
	return out
}

func brightness(img *image.NRGBA, factor float64) *image.NRGBA {
	black := imaging.New(img.Rect.Dx(), img.Rect.Dy(), color.NRGBA{A: 0xff})
	return blend(black, img, factor)
}

func contrast(img *image.NRGBA, factor float64) *image.NRGBA {
	m := meanLuma(img)
	gray := imaging.New(img.Rect.Dx(), img.Rect.Dy(), color.NRGBA{R: m, G: m, B: m, A: 0xff})
	return blend(gray, img, factor)
}

func saturation(img *image.NRGBA, factor float64) *image.NRGBA {
	return blend(imaging.Grayscale(img), img, factor)
}

func sharpness(img *image.NRGBA, factor float64) *image.NRGBA {
	smooth := imaging.Convolve3x3(img, smoothKernel, &imaging.ConvolveOptions{Normalize: true})
	// The smoothing baseline leaves the outer ring of pixels untouched.
	keepBorder(smooth, img)
	return blend(smooth, img, factor)
}

func blur(img *image.NRGBA) *image.NRGBA {
	out := imaging.Blur(img, BlurSigma)
	opaque(out)
	return out
}

// blend computes degenerate + factor*(src-degenerate) per RGB channel,
// clipped to [0,255] and truncated. Both images must share dimensions.
func blend(degenerate, src *image.NRGBA, factor float64) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, src.Rect.Dx(), src.Rect.Dy()))
	for i := 0; i+3 < len(src.Pix) && i+3 < len(degenerate.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			d := float64(degenerate.Pix[i+c])
			out.Pix[i+c] = clip(d + factor*(float64(src.Pix[i+c])-d))
		}
		out.Pix[i+3] = 0xff
	}
	return out
}

func clip(v float64) uint8 {
	switch {
	case !(v > 0): // also NaN
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// meanLuma returns the rounded mean luminance of img.
func meanLuma(img *image.NRGBA) uint8 {
	gray := imaging.Grayscale(img)
	n := len(gray.Pix) / 4
	if n == 0 {
		return 0
	}
	var sum uint64
	for i := 0; i < len(gray.Pix); i += 4 {
		sum += uint64(gray.Pix[i])
	}
	return uint8(float64(sum)/float64(n) + 0.5)
}

func keepBorder(dst, src *image.NRGBA) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return
	}
	for x := 0; x < w; x++ {
		copyPixel(dst, src, x, 0)
		copyPixel(dst, src, x, h-1)
	}
	for y := 0; y < h; y++ {
		copyPixel(dst, src, 0, y)
		copyPixel(dst, src, w-1, y)
	}
}

func copyPixel(dst, src *image.NRGBA, x, y int) {
	i := y*src.Stride + x*4
	j := y*dst.Stride + x*4
	copy(dst.Pix[j:j+4], src.Pix[i:i+4])
}

func opaque(img *image.NRGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
}
