package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Intensity is the amount of enhancement applied before recognition.
type Intensity int

const (
	Light Intensity = iota
	Standard
	Aggressive
)

func (i Intensity) String() string {
	switch i {
	case Light:
		return "light"
	case Standard:
		return "standard"
	case Aggressive:
		return "aggressive"
	default:
		return fmt.Sprintf("intensity(%d)", int(i))
	}
}

// TargetWidth is the width images are upscaled to before recognition.
const TargetWidth = 2000

// Quality summarizes the properties that drive the choice of Intensity.
type Quality struct {
	Width      int
	Height     int
	LowDepth   bool    // grayscale or paletted source
	Contrast   float64 // 0..255 spread of sampled luminance
	Brightness float64 // mean sampled luminance
	Score      float64 // 0..100
}

// AssessQuality samples img and scores it on resolution, colour depth and contrast.
func AssessQuality(img image.Image) Quality {
	b := img.Bounds()
	q := Quality{Width: b.Dx(), Height: b.Dy()}

	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		q.LowDepth = true
	default:
		if p, ok := img.(*image.Paletted); ok && len(p.Palette) <= 16 {
			q.LowDepth = true
		}
	}

	step := 10
	if q.Width < 200 || q.Height < 200 {
		step = 1
	}
	var total float64
	minL, maxL := 255.0, 0.0
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bl, _ := img.At(x, y).RGBA()
			l := (float64(r>>8) + float64(g>>8) + float64(bl>>8)) / 3.0
			total += l
			minL = math.Min(minL, l)
			maxL = math.Max(maxL, l)
			n++
		}
	}
	if n == 0 {
		return q
	}
	q.Brightness = total / float64(n)
	q.Contrast = maxL - minL

	brightnessScore := 100.0 - math.Abs(q.Brightness-128.0)/1.28
	contrastScore := math.Min(q.Contrast/2.0, 100.0)
	q.Score = brightnessScore*0.4 + contrastScore*0.6

	// small rasters lose detail no matter how clean they are
	switch {
	case q.Width < 800:
		q.Score -= 30
	case q.Width < 1200:
		q.Score -= 15
	}
	if q.LowDepth {
		q.Score -= 10
	}
	q.Score = math.Max(0, math.Min(100, q.Score))
	return q
}

// Intensity picks the preprocessing level for this quality.
func (q Quality) Intensity() Intensity {
	switch {
	case q.Score < 50:
		return Aggressive
	case q.Score < 75:
		return Standard
	default:
		return Light
	}
}

// Enhance applies grayscale, contrast normalization, upscaling below
// TargetWidth, sharpening and (aggressive only) binarization.
func Enhance(img image.Image, level Intensity) image.Image {
	var out image.Image = img
	if w := img.Bounds().Dx(); w > 0 && w < TargetWidth {
		out = imaging.Resize(out, TargetWidth, 0, imaging.Lanczos)
	}
	out = imaging.Grayscale(out)

	switch level {
	case Light:
		out = imaging.AdjustContrast(out, 20)
		out = imaging.Sharpen(out, 1.0)
	case Standard:
		out = imaging.AdjustContrast(out, 35)
		out = imaging.AdjustGamma(out, 1.1)
		out = imaging.Sharpen(out, 2.0)
	case Aggressive:
		out = imaging.AdjustContrast(out, 55)
		out = imaging.AdjustGamma(out, 1.3)
		out = imaging.Blur(out, 0.5)
		out = imaging.Sharpen(out, 2.5)
		out = Binarize(out, 160)
	}
	return out
}

// Binarize maps every pixel to black or white around threshold (0..255).
func Binarize(img image.Image, threshold uint8) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		l := (uint16(c.R) + uint16(c.G) + uint16(c.B)) / 3
		if l >= uint16(threshold) {
			return color.NRGBA{R: 255, G: 255, B: 255, A: c.A}
		}
		return color.NRGBA{A: c.A}
	})
}

// EncodePNG encodes img for hand-off to a recognition engine.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
