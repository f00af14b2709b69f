package preprocess

import (
	"errors"
	"fmt"
)

// RawStroke is a flattened doodle as submitted by a client.
type RawStroke struct {
	Pixels []float32 `json:"image"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
}

// GrayscaleImage is a row-major grid of intensities in the caller's range.
type GrayscaleImage struct {
	Width  int
	Height int
	Pix    []float32
}

// NewGrayscaleImage returns a w x h image filled with Background.
func NewGrayscaleImage(w, h int) *GrayscaleImage {
	pix := make([]float32, w*h)
	if Background != 0 {
		for i := range pix {
			pix[i] = Background
		}
	}
	return &GrayscaleImage{Width: w, Height: h, Pix: pix}
}

// At returns the intensity at column x, row y.
func (g *GrayscaleImage) At(x, y int) float32 {
	return g.Pix[y*g.Width+x]
}

// Row returns row y without copying.
func (g *GrayscaleImage) Row(y int) []float32 {
	return g.Pix[y*g.Width : (y+1)*g.Width]
}

// Tensor is the batch-of-one, single-channel NHWC input of the classifier.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Height and Width report the spatial dimensions of the tensor.
func (t *Tensor) Height() int { return int(t.Shape[1]) }
func (t *Tensor) Width() int  { return int(t.Shape[2]) }

var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeMismatchError reports a pixel buffer whose length disagrees with its
// declared dimensions.
type ShapeMismatchError struct {
	Expected int
	Got      int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("invalid data length: expected %d, got %d", e.Expected, e.Got)
}

func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}
