package model

import (
	"errors"
	"fmt"
)

// Metadata is the JSON sidecar exported next to the ONNX graph.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// Scores is one inference result: Values[i] is the score of Classes[i], in
// the model's fixed output order.
type Scores struct {
	Classes []string
	Values  []float32
}

// Len returns the number of classes scored.
func (s Scores) Len() int { return len(s.Values) }

// LabelScore pairs a class name with its score.
type LabelScore struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// PredictionResponse is the wire form of a ranked prediction.
type PredictionResponse struct {
	Label          string             `json:"label"`
	Confidence     float32            `json:"confidence"`
	TopPredictions []LabelScore       `json:"top_predictions"`
	AllPredictions map[string]float32 `json:"all_predictions"`
}

var (
	// ErrClassifierUnavailable means no usable model was loaded at startup.
	ErrClassifierUnavailable = errors.New("model not available on server")
	ErrInference             = errors.New("inference failed")
)

// InferenceError wraps a failure of a loaded model to score a tensor.
type InferenceError struct {
	Op  string
	Err error
}

func (e *InferenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("inference failed: %s", e.Op)
	}
	return fmt.Sprintf("inference failed: %s: %v", e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func (e *InferenceError) Is(target error) bool { return target == ErrInference }
