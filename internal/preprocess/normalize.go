package preprocess

import (
	"math"
	"math/bits"
)

// Normalize reshapes a flat pixel buffer into a GrayscaleImage. The pixels are
// copied as-is in row-major order; nothing is resampled here.
func Normalize(raw RawStroke) (*GrayscaleImage, error) {
	if raw.Width <= 0 || raw.Height <= 0 {
		return nil, &ShapeMismatchError{Expected: area(max(raw.Width, 0), max(raw.Height, 0)), Got: len(raw.Pixels)}
	}
	expected := area(raw.Width, raw.Height)
	if len(raw.Pixels) != expected {
		return nil, &ShapeMismatchError{Expected: expected, Got: len(raw.Pixels)}
	}

	pix := make([]float32, expected)
	copy(pix, raw.Pixels)
	return &GrayscaleImage{Width: raw.Width, Height: raw.Height, Pix: pix}, nil
}

// area returns w*h for non-negative dimensions, saturating at math.MaxInt.
func area(w, h int) int {
	hi, lo := bits.Mul(uint(w), uint(h))
	if hi != 0 || lo > math.MaxInt {
		return math.MaxInt
	}
	return int(lo)
}
