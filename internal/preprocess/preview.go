package preprocess

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// EncodePNG renders img as an 8-bit grayscale PNG, mapping [0, intensityMax]
// onto [0, 255]. Used to inspect what the classifier actually sees.
func EncodePNG(img *GrayscaleImage, intensityMax float32) ([]byte, error) {
	if intensityMax <= 0 {
		intensityMax = 255
	}
	gray := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x, v := range img.Row(y) {
			n := v / intensityMax * 255
			if n < 0 {
				n = 0
			} else if n > 255 {
				n = 255
			}
			gray.SetGray(x, y, color.Gray{Y: uint8(n + 0.5)})
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
