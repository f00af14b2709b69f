package model

import "sort"

// Ranking is the sorted view of one Scores value: descending score, ties
// broken by class name so repeated calls agree exactly.
type Ranking struct {
	sorted []LabelScore
}

// Rank sorts s. Empty or malformed scores are refused rather than ranked.
func Rank(s Scores) (*Ranking, error) {
	if s.Len() == 0 {
		return nil, &InferenceError{Op: "rank", Err: errSize(len(s.Classes), 0)}
	}
	if len(s.Classes) != len(s.Values) {
		return nil, &InferenceError{Op: "rank", Err: errSize(len(s.Classes), len(s.Values))}
	}

	sorted := make([]LabelScore, len(s.Values))
	for i, v := range s.Values {
		sorted[i] = LabelScore{Label: s.Classes[i], Score: v}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Label < sorted[j].Label
	})
	return &Ranking{sorted: sorted}, nil
}

// Label is the highest scoring class.
func (r *Ranking) Label() string { return r.sorted[0].Label }

// Confidence is the score of Label.
func (r *Ranking) Confidence() float32 { return r.sorted[0].Score }

// TopK returns the first n entries. n beyond the class count returns every
// class; n <= 0 returns none.
func (r *Ranking) TopK(n int) []LabelScore {
	if n < 0 {
		n = 0
	}
	n = min(n, len(r.sorted))
	out := make([]LabelScore, n)
	copy(out, r.sorted[:n])
	return out
}

// Sorted returns the complete ordering.
func (r *Ranking) Sorted() []LabelScore {
	return r.TopK(len(r.sorted))
}

// All returns every class score, never truncated.
func (r *Ranking) All() map[string]float32 {
	all := make(map[string]float32, len(r.sorted))
	for _, ls := range r.sorted {
		all[ls.Label] = ls.Score
	}
	return all
}

// Response renders the ranking with the top k predictions.
func (r *Ranking) Response(k int) *PredictionResponse {
	return &PredictionResponse{
		Label:          r.Label(),
		Confidence:     r.Confidence(),
		TopPredictions: r.TopK(k),
		AllPredictions: r.All(),
	}
}
