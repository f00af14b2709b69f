package preprocess

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// Options configures the Canonicalizer.
type Options struct {
	// Size is the side of the square canonical canvas.
	Size int
	// IntensityMax is the largest intensity the caller can send.
	IntensityMax float32
	// Interpolation is one of "nearest", "bilinear", "bicubic", "mitchell",
	// "lanczos2" or "lanczos3".
	Interpolation string
	// CropToContent trims the image to the bounding box of drawn pixels,
	// expanded by CropMargin, before it is fitted to the canvas.
	CropToContent bool
	CropMargin    int
}

// DefaultOptions matches the bundled 96x96 model.
func DefaultOptions() Options {
	return Options{
		Size:          96,
		IntensityMax:  255,
		Interpolation: "lanczos3",
		CropMargin:    4,
	}
}

// Canonicalizer fits arbitrarily sized images onto the classifier's fixed
// square canvas. It is immutable and safe for concurrent use.
type Canonicalizer struct {
	size   int
	max    float32
	interp resize.InterpolationFunction
	crop   bool
	margin int
}

func NewCanonicalizer(opts Options) *Canonicalizer {
	if opts.Size <= 0 {
		opts.Size = DefaultOptions().Size
	}
	if opts.IntensityMax <= 0 {
		opts.IntensityMax = DefaultOptions().IntensityMax
	}
	return &Canonicalizer{
		size:   opts.Size,
		max:    opts.IntensityMax,
		interp: Interpolation(opts.Interpolation),
		crop:   opts.CropToContent,
		margin: max(opts.CropMargin, 0),
	}
}

// Size returns the canonical side length.
func (c *Canonicalizer) Size() int { return c.size }

// IntensityMax returns the top of the source intensity range.
func (c *Canonicalizer) IntensityMax() float32 { return c.max }

// Interpolation maps a filter name to an nfnt/resize interpolation function.
// Unknown names fall back to Lanczos3.
func Interpolation(name string) resize.InterpolationFunction {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nearest":
		return resize.NearestNeighbor
	case "bilinear":
		return resize.Bilinear
	case "bicubic":
		return resize.Bicubic
	case "mitchell":
		return resize.MitchellNetravali
	case "lanczos2":
		return resize.Lanczos2
	default:
		return resize.Lanczos3
	}
}

// Canonicalize returns a Size x Size image in the same intensity range as img.
// The content keeps its aspect ratio, its longer side spans the canvas and it
// is centred on a Background-filled canvas.
func (c *Canonicalizer) Canonicalize(img *GrayscaleImage) *GrayscaleImage {
	src := img
	if c.crop {
		if r, ok := contentBounds(img, c.margin); ok {
			src = cropImage(img, r)
		}
	}
	return c.fit(src)
}

// fit is the single resize-and-pad routine for both upscaling and downscaling.
func (c *Canonicalizer) fit(img *GrayscaleImage) *GrayscaleImage {
	scale := float64(c.size) / float64(max(img.Width, img.Height))
	w := clampInt(int(math.Round(float64(img.Width)*scale)), 1, c.size)
	h := clampInt(int(math.Round(float64(img.Height)*scale)), 1, c.size)

	scaled := resize.Resize(uint(w), uint(h), c.toGray16(img), c.interp)

	canvas := image.NewGray16(image.Rect(0, 0, c.size, c.size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(c.gray16(Background)), image.Point{}, draw.Src)

	x0 := (c.size - w) / 2
	y0 := (c.size - h) / 2
	draw.Draw(canvas, image.Rect(x0, y0, x0+w, y0+h), scaled, scaled.Bounds().Min, draw.Src)

	return c.fromGray16(canvas)
}

func (c *Canonicalizer) gray16(v float32) color.Gray16 {
	n := float64(v) / float64(c.max)
	if n < 0 {
		n = 0
	} else if n > 1 {
		n = 1
	}
	return color.Gray16{Y: uint16(math.Round(n * 0xffff))}
}

func (c *Canonicalizer) toGray16(img *GrayscaleImage) *image.Gray16 {
	out := image.NewGray16(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		row := img.Row(y)
		for x, v := range row {
			out.SetGray16(x, y, c.gray16(v))
		}
	}
	return out
}

func (c *Canonicalizer) fromGray16(img *image.Gray16) *GrayscaleImage {
	b := img.Bounds()
	out := &GrayscaleImage{Width: b.Dx(), Height: b.Dy(), Pix: make([]float32, b.Dx()*b.Dy())}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			g := img.Gray16At(b.Min.X+x, b.Min.Y+y)
			out.Pix[y*out.Width+x] = float32(g.Y) / 0xffff * c.max
		}
	}
	return out
}

// contentBounds returns the bounding box of non-background pixels grown by
// margin, or false if the image is blank.
func contentBounds(img *GrayscaleImage, margin int) (image.Rectangle, bool) {
	minX, minY := img.Width, img.Height
	maxX, maxY := -1, -1
	for y := 0; y < img.Height; y++ {
		for x, v := range img.Row(y) {
			if v == Background {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, false
	}
	r := image.Rect(minX-margin, minY-margin, maxX+1+margin, maxY+1+margin)
	return r.Intersect(image.Rect(0, 0, img.Width, img.Height)), true
}

func cropImage(img *GrayscaleImage, r image.Rectangle) *GrayscaleImage {
	out := &GrayscaleImage{Width: r.Dx(), Height: r.Dy(), Pix: make([]float32, 0, r.Dx()*r.Dy())}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		out.Pix = append(out.Pix, img.Row(y)[r.Min.X:r.Max.X]...)
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
