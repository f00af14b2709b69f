package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/doodle-api/internal/preprocess"
)

// LoadOptions locates the ONNX graph and describes its tensors.
type LoadOptions struct {
	ModelPath    string
	MetadataPath string
	// SharedLibraryPath points at libonnxruntime. Empty means the
	// ONNXRUNTIME_SHARED_LIBRARY_PATH environment variable or the loader default.
	SharedLibraryPath string
	InputName         string
	OutputName        string
	Classes           []string
	ImageSize         int
	ApplySoftmax      bool
}

// ONNXClassifier runs a doodle model through onnxruntime. Tensors are
// allocated per call, so one session serves concurrent requests.
type ONNXClassifier struct {
	session  *ort.DynamicAdvancedSession
	Metadata Metadata
	softmax  bool
}

func NewONNXClassifier(opts LoadOptions) (*ONNXClassifier, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	metadata, err := loadMetadata(opts)
	if err != nil {
		return nil, err
	}

	if opts.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(opts.SharedLibraryPath)
	} else if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); p != "" {
		ort.SetSharedLibraryPath(p)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath,
		[]string{opts.InputName}, []string{opts.OutputName}, nil)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXClassifier{
		session:  session,
		Metadata: metadata,
		softmax:  opts.ApplySoftmax,
	}, nil
}

// loadMetadata reads the sidecar if there is one and fills whatever it leaves
// out from opts.
func loadMetadata(opts LoadOptions) (Metadata, error) {
	var metadata Metadata
	if opts.MetadataPath != "" {
		data, err := os.ReadFile(opts.MetadataPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
		default:
			if err := json.Unmarshal(data, &metadata); err != nil {
				return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
			}
		}
	}

	if len(metadata.Classes) == 0 {
		metadata.Classes = opts.Classes
	}
	if len(metadata.Classes) == 0 {
		return Metadata{}, errors.New("no class names configured")
	}
	seen := make(map[string]bool, len(metadata.Classes))
	for _, name := range metadata.Classes {
		if seen[name] {
			return Metadata{}, fmt.Errorf("duplicate class %q", name)
		}
		seen[name] = true
	}

	// The input tensor is NHWC with one square grayscale channel.
	if metadata.ImageSize <= 0 && len(metadata.InputShape) == 4 {
		metadata.ImageSize = int(metadata.InputShape[1])
	}
	if metadata.ImageSize <= 0 {
		metadata.ImageSize = opts.ImageSize
	}
	s := int64(metadata.ImageSize)
	if len(metadata.InputShape) == 0 {
		metadata.InputShape = []int64{1, s, s, 1}
	}
	if !slices.Equal(metadata.InputShape, []int64{1, s, s, 1}) {
		return Metadata{}, fmt.Errorf("input shape %v does not match image size %d", metadata.InputShape, metadata.ImageSize)
	}
	if len(metadata.OutputShape) == 0 {
		metadata.OutputShape = []int64{1, int64(len(metadata.Classes))}
	}
	if n := shapeSize(metadata.OutputShape); n != int64(len(metadata.Classes)) {
		return Metadata{}, fmt.Errorf("output shape %v does not match %d classes", metadata.OutputShape, len(metadata.Classes))
	}
	return metadata, nil
}

func (c *ONNXClassifier) Loaded() bool { return c.session != nil }

func (c *ONNXClassifier) Classes() []string { return c.Metadata.Classes }

func (c *ONNXClassifier) Predict(t *preprocess.Tensor) (Scores, error) {
	if !slices.Equal(t.Shape, c.Metadata.InputShape) {
		return Scores{}, &InferenceError{Op: "input shape", Err: fmt.Errorf("model expects %v, got %v", c.Metadata.InputShape, t.Shape)}
	}
	if int64(len(t.Data)) != shapeSize(t.Shape) {
		return Scores{}, &InferenceError{Op: "input size", Err: errSize(int(shapeSize(t.Shape)), len(t.Data))}
	}

	input, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
	if err != nil {
		return Scores{}, &InferenceError{Op: "create input tensor", Err: err}
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(c.Metadata.OutputShape...))
	if err != nil {
		return Scores{}, &InferenceError{Op: "create output tensor", Err: err}
	}
	defer output.Destroy()

	if err := c.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return Scores{}, &InferenceError{Op: "run", Err: err}
	}

	raw := output.GetData()
	values := make([]float32, len(raw))
	copy(values, raw)
	return scoresFromOutput(c.Metadata.Classes, values, c.softmax)
}

func (c *ONNXClassifier) Close() {
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	ort.DestroyEnvironment()
}

func shapeSize(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

func errSize(want, got int) error {
	return fmt.Errorf("expected %d values, got %d", want, got)
}
