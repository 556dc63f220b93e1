package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "empty", in: "", expected: ""},
		{
			name:     "line endings, blank runs and spaces",
			in:       "Rs. 1O5.00\r\n\n\n\nTotal   ₹ 488",
			expected: "₹105.00\n\nTotal ₹ 488",
		},
		{
			name:     "box rules removed",
			in:       "Invoice\n-----\nGrand Total 488",
			expected: "Invoice\n\nGrand Total 488",
		},
		{
			name:     "tabs fold to one space",
			in:       "Qty\t\t1",
			expected: "Qty 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.in))
		})
	}
}

func TestCorrectDigits(t *testing.T) {
	tests := []struct {
		in, expected string
	}{
		{"Order l49 IO", "Order 149 IO"},
		{"Hello World", "Hello World"},
		{"INR 250", "₹250"},
		{"488 . 00", "488.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, CorrectDigits(tt.in), tt.in)
	}
}

func TestLinesAndRatio(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Lines("  a \n\n b"))
	assert.Equal(t, "a b c", CompactSpaces("  a\t b \n c "))
	assert.InDelta(t, 0.5, DigitRatio("a1 2b"), 1e-9)
	assert.Zero(t, DigitRatio("   "))
}

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestAssessQuality(t *testing.T) {
	q := AssessQuality(uniformGray(100, 100, 128))
	assert.True(t, q.LowDepth)
	assert.Zero(t, q.Contrast)
	assert.Zero(t, q.Score)
	assert.Equal(t, Aggressive, q.Intensity())
	assert.Equal(t, "aggressive", q.Intensity().String())
}

func TestEnhance(t *testing.T) {
	out := Enhance(uniformGray(100, 50, 200), Light)
	assert.Equal(t, TargetWidth, out.Bounds().Dx())
	assert.Equal(t, TargetWidth/2, out.Bounds().Dy())

	bin := Binarize(uniformGray(4, 4, 200), 160)
	r, g, b, _ := bin.At(1, 1).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r, g, b})
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(uniformGray(10, 6, 50))
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 6), img.Bounds())
}
