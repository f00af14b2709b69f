package preprocess

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"math/bits"
	"testing"
)

func TestNormalizeReshapesRowMajor(t *testing.T) {
	raw := RawStroke{Pixels: []float32{1, 2, 3, 4, 5, 6}, Width: 3, Height: 2}
	img, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if img.Width != 3 || img.Height != 2 {
		t.Fatalf("unexpected dimensions %dx%d", img.Width, img.Height)
	}
	if img.At(0, 1) != 4 || img.At(2, 0) != 3 {
		t.Fatalf("pixels not row-major: %v", img.Pix)
	}

	raw.Pixels[0] = 99
	if img.At(0, 0) != 1 {
		t.Fatalf("image aliases caller buffer")
	}
}

func TestNormalizeShapeMismatch(t *testing.T) {
	_, err := Normalize(RawStroke{Pixels: make([]float32, 100), Width: 10, Height: 11})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
	var sm *ShapeMismatchError
	if !errors.As(err, &sm) {
		t.Fatalf("expected *ShapeMismatchError, got %T", err)
	}
	if sm.Expected != 110 || sm.Got != 100 {
		t.Fatalf("expected 110/100, got %d/%d", sm.Expected, sm.Got)
	}
	if err.Error() != "invalid data length: expected 110, got 100" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNormalizeRejectsNonPositiveDimensions(t *testing.T) {
	for _, raw := range []RawStroke{
		{Pixels: nil, Width: 0, Height: 0},
		{Pixels: make([]float32, 4), Width: -2, Height: -2},
	} {
		if _, err := Normalize(raw); !errors.Is(err, ErrShapeMismatch) {
			t.Fatalf("%dx%d: expected shape mismatch, got %v", raw.Width, raw.Height, err)
		}
	}
}

func TestNormalizeRejectsOverflowingDimensions(t *testing.T) {
	// side*side wraps to exactly 0 in a machine word.
	const side = 1 << (bits.UintSize / 2)
	for _, raw := range []RawStroke{
		{Pixels: []float32{}, Width: side, Height: side},
		{Pixels: make([]float32, 4), Width: math.MaxInt, Height: 2},
	} {
		img, err := Normalize(raw)
		if !errors.Is(err, ErrShapeMismatch) {
			t.Fatalf("%dx%d: expected shape mismatch, got %v", raw.Width, raw.Height, err)
		}
		if img != nil {
			t.Fatalf("%dx%d: expected no image", raw.Width, raw.Height)
		}
		var sm *ShapeMismatchError
		if !errors.As(err, &sm) {
			t.Fatalf("expected *ShapeMismatchError, got %T", err)
		}
		if sm.Got != len(raw.Pixels) || sm.Expected != math.MaxInt {
			t.Fatalf("expected %d/%d, got %d/%d", math.MaxInt, len(raw.Pixels), sm.Expected, sm.Got)
		}
	}
}

func TestCanonicalizeAlwaysTargetSize(t *testing.T) {
	c := NewCanonicalizer(Options{Size: 32, IntensityMax: 255, Interpolation: "bilinear"})
	sizes := [][2]int{{8, 8}, {32, 32}, {100, 40}, {10, 90}, {1, 1}, {64, 3}}
	for _, s := range sizes {
		img := NewGrayscaleImage(s[0], s[1])
		for i := range img.Pix {
			img.Pix[i] = float32(i % 256)
		}
		out := c.Canonicalize(img)
		if out.Width != 32 || out.Height != 32 || len(out.Pix) != 32*32 {
			t.Fatalf("%dx%d: got %dx%d (%d pixels)", s[0], s[1], out.Width, out.Height, len(out.Pix))
		}
	}
}

func TestCanonicalizeBlankStaysBlank(t *testing.T) {
	for _, crop := range []bool{false, true} {
		c := NewCanonicalizer(Options{Size: 96, IntensityMax: 255, CropToContent: crop})
		out := c.Canonicalize(NewGrayscaleImage(28, 28))
		for i, v := range out.Pix {
			if v != Background {
				t.Fatalf("crop=%v: pixel %d = %g, want background", crop, i, v)
			}
		}
	}
}

func TestCanonicalizeCentersContent(t *testing.T) {
	// A fully inked 10x5 image scaled onto 20x20 becomes 20x10, padded by 5
	// rows above and below.
	c := NewCanonicalizer(Options{Size: 20, IntensityMax: 255, Interpolation: "nearest"})
	img := NewGrayscaleImage(10, 5)
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	out := c.Canonicalize(img)

	for y := 0; y < 20; y++ {
		want := float32(0)
		if y >= 5 && y < 15 {
			want = 255
		}
		for x := 0; x < 20; x++ {
			if got := out.At(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %g, want %g", x, y, got, want)
			}
		}
	}
}

func TestCanonicalizeUpAndDownShareCentering(t *testing.T) {
	c := NewCanonicalizer(Options{Size: 16, IntensityMax: 255, Interpolation: "nearest"})
	small := NewGrayscaleImage(4, 2)
	large := NewGrayscaleImage(64, 32)
	for i := range small.Pix {
		small.Pix[i] = 255
	}
	for i := range large.Pix {
		large.Pix[i] = 255
	}
	a := c.Canonicalize(small)
	b := c.Canonicalize(large)
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("pixel %d differs between upscale (%g) and downscale (%g)", i, a.Pix[i], b.Pix[i])
		}
	}
}

func TestCanonicalizeCropToContent(t *testing.T) {
	c := NewCanonicalizer(Options{Size: 8, IntensityMax: 255, Interpolation: "nearest", CropToContent: true})
	img := NewGrayscaleImage(100, 100)
	// 2x2 dot in a corner fills the whole canvas once cropped.
	for _, p := range [][2]int{{90, 90}, {91, 90}, {90, 91}, {91, 91}} {
		img.Pix[p[1]*100+p[0]] = 255
	}
	out := c.Canonicalize(img)
	for i, v := range out.Pix {
		if v != 255 {
			t.Fatalf("pixel %d = %g, expected the dot to fill the canvas", i, v)
		}
	}
}

func TestCanonicalizeKeepsIntensityRange(t *testing.T) {
	c := NewCanonicalizer(Options{Size: 12, IntensityMax: 1, Interpolation: "lanczos3"})
	img := NewGrayscaleImage(30, 30)
	for y := 5; y < 25; y++ {
		for x := 0; x < 30; x++ {
			img.Pix[y*30+x] = 1
		}
	}
	out := c.Canonicalize(img)
	var peak float32
	for _, v := range out.Pix {
		if v < 0 || v > 1 {
			t.Fatalf("value %g outside [0,1]", v)
		}
		peak = max(peak, v)
	}
	if peak < 0.95 {
		t.Fatalf("expected strokes near 1.0, peak %g", peak)
	}
}

func TestBuildTensorRangeAndShape(t *testing.T) {
	img := NewGrayscaleImage(4, 3)
	for i := range img.Pix {
		img.Pix[i] = float32(i * 30)
	}
	img.Pix[0] = -5
	tensor := BuildTensor(img, 255)

	want := []int64{1, 3, 4, 1}
	for i, d := range want {
		if tensor.Shape[i] != d {
			t.Fatalf("shape %v, want %v", tensor.Shape, want)
		}
	}
	if tensor.Height() != 3 || tensor.Width() != 4 {
		t.Fatalf("unexpected spatial dims %dx%d", tensor.Width(), tensor.Height())
	}
	for i, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("value %d = %g outside [0,1]", i, v)
		}
	}
	if got := tensor.Data[1]; got < 0.117 || got > 0.118 {
		t.Fatalf("expected 30/255, got %g", got)
	}
}

func TestBuildTensorDeterministic(t *testing.T) {
	img := NewGrayscaleImage(5, 5)
	for i := range img.Pix {
		img.Pix[i] = float32(i * 7)
	}
	a := BuildTensor(img, 255)
	b := BuildTensor(img, 255)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("value %d differs across calls", i)
		}
	}
}

func TestBlankDoodleEndToEnd(t *testing.T) {
	img, err := Normalize(RawStroke{Pixels: make([]float32, 784), Width: 28, Height: 28})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	c := NewCanonicalizer(DefaultOptions())
	tensor := BuildTensor(c.Canonicalize(img), 255)
	if len(tensor.Data) != 96*96 {
		t.Fatalf("expected %d values, got %d", 96*96, len(tensor.Data))
	}
	want := float32(0)
	if InvertPolarity {
		want = 1
	}
	for i, v := range tensor.Data {
		if v != want {
			t.Fatalf("value %d = %g, want %g", i, v, want)
		}
	}
}

func TestEncodePNG(t *testing.T) {
	img := NewGrayscaleImage(3, 2)
	img.Pix[4] = 255
	data, err := EncodePNG(img, 255)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("unexpected bounds %v", b)
	}
	if r, _, _, _ := decoded.At(1, 1).RGBA(); r != 0xffff {
		t.Fatalf("expected white stroke pixel, got %d", r)
	}
}
