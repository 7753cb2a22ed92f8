// Package model applies a fitted vectorizer + regressor pair to feature
// dictionaries. Fitting lives in internal/training; this package only scores.
package model

import (
	"errors"

	"taxi-duration-lab/internal/domain"
)

// ErrModelLoad is returned when an artifact is missing or incompatible.
var ErrModelLoad = errors.New("model load failed")

// Vectorizer maps feature dictionaries to a numeric matrix.
type Vectorizer interface {
	Transform(dicts []domain.FeatureDict) *Sparse
}

// Regressor maps a numeric matrix to one prediction per row.
type Regressor interface {
	Predict(x *Sparse) []float64
}

// Sparse is a row-compressed (CSR) matrix.
// Row i occupies Indices[Indptr[i]:Indptr[i+1]] and the same range of Data.
type Sparse struct {
	Rows    int
	Cols    int
	Indptr  []int
	Indices []int
	Data    []float64
}

// Row returns the column indices and values of row i.
func (s *Sparse) Row(i int) ([]int, []float64) {
	lo, hi := s.Indptr[i], s.Indptr[i+1]
	return s.Indices[lo:hi], s.Data[lo:hi]
}

// At returns the value at (i, j).
func (s *Sparse) At(i, j int) float64 {
	idx, vals := s.Row(i)
	for k, c := range idx {
		if c == j {
			return vals[k]
		}
	}
	return 0
}

// Scorer runs a Vectorizer and Regressor back to back.
type Scorer struct {
	vectorizer Vectorizer
	regressor  Regressor
}

// NewScorer creates a Scorer.
func NewScorer(v Vectorizer, r Regressor) *Scorer {
	return &Scorer{vectorizer: v, regressor: r}
}

// Score returns one prediction per dict, in input order.
func (s *Scorer) Score(dicts []domain.FeatureDict) []float64 {
	if len(dicts) == 0 {
		return []float64{}
	}
	return s.regressor.Predict(s.vectorizer.Transform(dicts))
}
