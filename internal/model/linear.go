package model

import "fmt"

// LinearRegressor predicts Intercept + sum(Coef[j] * x[j]).
type LinearRegressor struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

var _ Regressor = (*LinearRegressor)(nil)

// Predict returns one prediction per row of x.
// Columns beyond len(Coef) contribute nothing.
func (r *LinearRegressor) Predict(x *Sparse) []float64 {
	out := make([]float64, x.Rows)
	for i := 0; i < x.Rows; i++ {
		y := r.Intercept
		idx, vals := x.Row(i)
		for k, j := range idx {
			if j < len(r.Coef) {
				y += r.Coef[j] * vals[k]
			}
		}
		out[i] = y
	}
	return out
}

// Validate checks the regressor against the vectorizer width.
func (r *LinearRegressor) Validate(nFeatures int) error {
	if len(r.Coef) != nFeatures {
		return fmt.Errorf("regressor has %d coefficients, vectorizer %d features", len(r.Coef), nFeatures)
	}
	return nil
}
