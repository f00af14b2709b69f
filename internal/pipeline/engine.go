// Package pipeline turns raw doodle pixels into ranked predictions.
package pipeline

import (
	"github.com/Brownie44l1/doodle-api/internal/config"
	"github.com/Brownie44l1/doodle-api/internal/model"
	"github.com/Brownie44l1/doodle-api/internal/preprocess"
)

// Engine holds the process-wide inference state: the canonicalizer built from
// config and the classifier loaded at startup. Both are read-only after New,
// so one Engine serves all requests.
type Engine struct {
	canon      *preprocess.Canonicalizer
	classifier model.Classifier
	topK       int
}

// New builds an Engine. The classifier must already be loaded.
func New(cfg config.Model, classifier model.Classifier) *Engine {
	return &Engine{
		canon: preprocess.NewCanonicalizer(preprocess.Options{
			Size:          cfg.ImageSize,
			IntensityMax:  cfg.IntensityMax,
			Interpolation: cfg.Interpolation,
			CropToContent: cfg.CropToContent,
			CropMargin:    cfg.CropMargin,
		}),
		classifier: classifier,
		topK:       cfg.TopK,
	}
}

// Loaded reports whether predictions can be served.
func (e *Engine) Loaded() bool { return e.classifier.Loaded() }

// Classes returns the known class names in model order.
func (e *Engine) Classes() []string { return e.classifier.Classes() }

// Tensor runs the preprocessing chain only.
func (e *Engine) Tensor(raw preprocess.RawStroke) (*preprocess.Tensor, error) {
	canonical, err := e.canonical(raw)
	if err != nil {
		return nil, err
	}
	return preprocess.BuildTensor(canonical, e.canon.IntensityMax()), nil
}

// Classify runs the full chain and ranks the result.
func (e *Engine) Classify(raw preprocess.RawStroke) (*model.Ranking, error) {
	if !e.classifier.Loaded() {
		return nil, model.ErrClassifierUnavailable
	}
	tensor, err := e.Tensor(raw)
	if err != nil {
		return nil, err
	}
	scores, err := e.classifier.Predict(tensor)
	if err != nil {
		return nil, err
	}
	return model.Rank(scores)
}

// Predict is Classify rendered with the configured top-k.
func (e *Engine) Predict(raw preprocess.RawStroke) (*model.PredictionResponse, error) {
	ranking, err := e.Classify(raw)
	if err != nil {
		return nil, err
	}
	return ranking.Response(e.topK), nil
}

// Preview returns the canonical image the classifier would see, as PNG.
func (e *Engine) Preview(raw preprocess.RawStroke) ([]byte, error) {
	canonical, err := e.canonical(raw)
	if err != nil {
		return nil, err
	}
	return preprocess.EncodePNG(canonical, e.canon.IntensityMax())
}

func (e *Engine) canonical(raw preprocess.RawStroke) (*preprocess.GrayscaleImage, error) {
	img, err := preprocess.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return e.canon.Canonicalize(img), nil
}
