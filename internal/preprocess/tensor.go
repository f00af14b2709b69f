package preprocess

// Polarity conventions.
//
// Canvases are submitted ink-on-black: strokes carry high intensities and the
// empty canvas is 0. The bundled classifier was trained on the same
// convention, so tensors are not inverted. If a model trained on
// ink-on-white is ever deployed, flip InvertPolarity and nothing else.
const (
	// Background is the intensity of an empty canvas in the caller's range.
	Background float32 = 0
	// InvertPolarity maps v to 1-v after rescaling to [0,1].
	InvertPolarity = false
)

// BuildTensor rescales img into [0,1] by dividing by intensityMax, applies the
// polarity constant and wraps the result as a [1, H, W, 1] tensor.
func BuildTensor(img *GrayscaleImage, intensityMax float32) *Tensor {
	if intensityMax <= 0 {
		intensityMax = 255
	}
	data := make([]float32, len(img.Pix))
	for i, v := range img.Pix {
		n := v / intensityMax
		if n < 0 {
			n = 0
		} else if n > 1 {
			n = 1
		}
		if InvertPolarity {
			n = 1 - n
		}
		data[i] = n
	}
	return &Tensor{
		Shape: []int64{1, int64(img.Height), int64(img.Width), 1},
		Data:  data,
	}
}
