package model

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/doodle-api/internal/preprocess"
)

// Classifier is the trained model seen as a black box. Implementations are
// loaded once and are safe for concurrent Predict calls.
type Classifier interface {
	// Loaded reports whether a usable model is behind this classifier.
	Loaded() bool
	// Classes returns the class names in output order.
	Classes() []string
	// Predict scores one canonical tensor.
	Predict(t *preprocess.Tensor) (Scores, error)
}

// Unavailable stands in for a model that failed to load.
type Unavailable struct {
	Reason  error
	classes []string
}

// NewUnavailable returns a Classifier that reports Loaded() == false.
func NewUnavailable(reason error, classes []string) *Unavailable {
	return &Unavailable{Reason: reason, classes: classes}
}

func (u *Unavailable) Loaded() bool      { return false }
func (u *Unavailable) Classes() []string { return u.classes }

func (u *Unavailable) Predict(*preprocess.Tensor) (Scores, error) {
	return Scores{}, ErrClassifierUnavailable
}

// Load builds the ONNX classifier. A failure is logged and yields an
// Unavailable classifier so the server can still start.
func Load(opts LoadOptions) Classifier {
	c, err := NewONNXClassifier(opts)
	if err != nil {
		log.Error().Err(err).Str("model", opts.ModelPath).Msg("model failed to load, predictions disabled")
		return NewUnavailable(err, opts.Classes)
	}
	log.Info().Str("model", opts.ModelPath).Strs("classes", c.Classes()).Msg("model loaded")
	return c
}

// scoresFromOutput turns a raw output vector into Scores, optionally through
// a softmax.
func scoresFromOutput(classes []string, output []float32, softmax bool) (Scores, error) {
	if len(output) != len(classes) {
		return Scores{}, &InferenceError{Op: "output size", Err: errSize(len(classes), len(output))}
	}
	values := make([]float32, len(output))
	for i, v := range output {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return Scores{}, &InferenceError{Op: "non-finite score for " + classes[i]}
		}
		values[i] = v
	}
	if softmax {
		values = Softmax(values)
	}
	return Scores{Classes: classes, Values: values}, nil
}

// Softmax returns the normalised exponentials of logits.
func Softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	if len(logits) == 0 {
		return out
	}
	peak := logits[0]
	for _, v := range logits[1:] {
		peak = max(peak, v)
	}
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - peak))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
