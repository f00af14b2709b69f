package pipeline

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/Brownie44l1/doodle-api/internal/config"
	"github.com/Brownie44l1/doodle-api/internal/model"
	"github.com/Brownie44l1/doodle-api/internal/preprocess"
)

type stubClassifier struct {
	classes []string
	err     error
	calls   int
	mu      sync.Mutex
	last    *preprocess.Tensor
}

func (s *stubClassifier) Loaded() bool      { return true }
func (s *stubClassifier) Classes() []string { return s.classes }

func (s *stubClassifier) Predict(t *preprocess.Tensor) (model.Scores, error) {
	s.mu.Lock()
	s.calls++
	s.last = t
	s.mu.Unlock()
	if s.err != nil {
		return model.Scores{}, s.err
	}
	values := make([]float32, len(s.classes))
	for i := range values {
		values[i] = 1 / float32(len(s.classes))
	}
	return model.Scores{Classes: s.classes, Values: values}, nil
}

func testConfig() config.Model {
	return config.Default().Model
}

func TestBlankDoodleUniformScores(t *testing.T) {
	stub := &stubClassifier{classes: config.DefaultClasses}
	e := New(testConfig(), stub)

	resp, err := e.Predict(preprocess.RawStroke{Pixels: make([]float32, 784), Width: 28, Height: 28})
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if resp.Label != "apple" {
		t.Fatalf("expected lexically first class apple, got %s", resp.Label)
	}
	if len(resp.TopPredictions) != 3 {
		t.Fatalf("expected top 3, got %d", len(resp.TopPredictions))
	}
	if len(resp.AllPredictions) != len(config.DefaultClasses) {
		t.Fatalf("expected %d predictions, got %d", len(config.DefaultClasses), len(resp.AllPredictions))
	}
	var sum float64
	for _, v := range resp.AllPredictions {
		sum += float64(v)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Fatalf("expected scores to sum to 1, got %g", sum)
	}

	want := []int64{1, 96, 96, 1}
	for i, d := range want {
		if stub.last.Shape[i] != d {
			t.Fatalf("classifier saw shape %v, want %v", stub.last.Shape, want)
		}
	}
	for i, v := range stub.last.Data {
		if v != 0 {
			t.Fatalf("tensor value %d = %g, want 0", i, v)
		}
	}
}

func TestShapeMismatchFailsBeforeInference(t *testing.T) {
	stub := &stubClassifier{classes: config.DefaultClasses}
	e := New(testConfig(), stub)

	_, err := e.Predict(preprocess.RawStroke{Pixels: make([]float32, 100), Width: 10, Height: 11})
	var sm *preprocess.ShapeMismatchError
	if !errors.As(err, &sm) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
	if sm.Expected != 110 || sm.Got != 100 {
		t.Fatalf("expected 110/100, got %d/%d", sm.Expected, sm.Got)
	}
	if stub.calls != 0 {
		t.Fatalf("classifier called %d times on invalid input", stub.calls)
	}
}

func TestUnavailableClassifier(t *testing.T) {
	e := New(testConfig(), model.NewUnavailable(errors.New("no file"), config.DefaultClasses))
	if e.Loaded() {
		t.Fatalf("expected engine to report unloaded model")
	}
	_, err := e.Predict(preprocess.RawStroke{Pixels: make([]float32, 4), Width: 2, Height: 2})
	if !errors.Is(err, model.ErrClassifierUnavailable) {
		t.Fatalf("expected ErrClassifierUnavailable, got %v", err)
	}
}

func TestInferenceErrorPropagates(t *testing.T) {
	stub := &stubClassifier{
		classes: config.DefaultClasses,
		err:     &model.InferenceError{Op: "run", Err: errors.New("boom")},
	}
	e := New(testConfig(), stub)
	_, err := e.Predict(preprocess.RawStroke{Pixels: make([]float32, 4), Width: 2, Height: 2})
	if !errors.Is(err, model.ErrInference) {
		t.Fatalf("expected inference error, got %v", err)
	}
}

func TestConcurrentPredict(t *testing.T) {
	stub := &stubClassifier{classes: config.DefaultClasses}
	e := New(testConfig(), stub)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w, h := 10+n, 20
			if _, err := e.Predict(preprocess.RawStroke{Pixels: make([]float32, w*h), Width: w, Height: h}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent predict failed: %v", err)
	}
	if stub.calls != 16 {
		t.Fatalf("expected 16 inferences, got %d", stub.calls)
	}
}

func TestPreview(t *testing.T) {
	e := New(testConfig(), &stubClassifier{classes: config.DefaultClasses})
	data, err := e.Preview(preprocess.RawStroke{Pixels: make([]float32, 9), Width: 3, Height: 3})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Fatalf("expected PNG output")
	}
	if _, err := e.Preview(preprocess.RawStroke{Pixels: make([]float32, 8), Width: 3, Height: 3}); err == nil {
		t.Fatalf("expected shape mismatch")
	}
}
