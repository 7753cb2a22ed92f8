// Package training fits the DictVectorizer + linear regression pair that
// the batch job and prediction service score with.
package training

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/model"
)

// ErrNoTrainingData is returned when nothing survives preparation.
var ErrNoTrainingData = errors.New("no training data")

// Defaults.
const (
	DefaultRidge      = 1e-6
	DefaultDenseLimit = 2048
	DefaultMaxIter    = 2000
	DefaultTolerance  = 1e-10
)

// FitOptions tunes the least-squares solver.
type FitOptions struct {
	// Ridge is added to the diagonal of the centered normal equations.
	// One-hot groups are collinear with the intercept, so it must be > 0.
	Ridge float64

	// DenseLimit is the widest feature space solved with Cholesky.
	// Wider problems use conjugate gradients on the sparse matrix.
	DenseLimit int

	MaxIter   int
	Tolerance float64
}

// DefaultFitOptions returns the solver defaults.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		Ridge:      DefaultRidge,
		DenseLimit: DefaultDenseLimit,
		MaxIter:    DefaultMaxIter,
		Tolerance:  DefaultTolerance,
	}
}

// Fit learns a vocabulary from dicts and solves ridge-regularised least
// squares with an unpenalised intercept.
func Fit(dicts []domain.FeatureDict, y []float64, opts FitOptions) (*model.DictVectorizer, *model.LinearRegressor, error) {
	if len(dicts) == 0 {
		return nil, nil, ErrNoTrainingData
	}
	if len(dicts) != len(y) {
		return nil, nil, fmt.Errorf("have %d feature rows and %d targets", len(dicts), len(y))
	}
	if opts.Ridge <= 0 {
		opts.Ridge = DefaultRidge
	}

	dv := model.FitDictVectorizer(dicts)
	x := dv.Transform(dicts)

	n := float64(x.Rows)
	p := x.Cols
	yMean := floats.Sum(y) / n

	// Column means.
	mu := make([]float64, p)
	for i := 0; i < x.Rows; i++ {
		idx, vals := x.Row(i)
		for k, j := range idx {
			mu[j] += vals[k]
		}
	}
	floats.Scale(1/n, mu)

	// c = Xᵀy/n - μȳ
	c := make([]float64, p)
	for i := 0; i < x.Rows; i++ {
		idx, vals := x.Row(i)
		for k, j := range idx {
			c[j] += vals[k] * y[i]
		}
	}
	floats.Scale(1/n, c)
	floats.AddScaled(c, -yMean, mu)

	var (
		coef []float64
		err  error
	)
	if p <= opts.DenseLimit {
		coef, err = solveDense(x, mu, c, opts.Ridge)
	} else {
		coef, err = solveCG(x, mu, c, opts)
	}
	if err != nil {
		return nil, nil, err
	}

	return dv, &model.LinearRegressor{
		Coef:      coef,
		Intercept: yMean - floats.Dot(mu, coef),
	}, nil
}

// solveDense factorizes C = XᵀX/n - μμᵀ + αI with Cholesky.
func solveDense(x *model.Sparse, mu, c []float64, ridge float64) ([]float64, error) {
	p := x.Cols
	if p == 0 {
		return []float64{}, nil
	}
	n := float64(x.Rows)

	cov := mat.NewSymDense(p, nil)
	for i := 0; i < x.Rows; i++ {
		idx, vals := x.Row(i)
		for a, ja := range idx {
			for b := a; b < len(idx); b++ {
				jb := idx[b]
				cov.SetSym(ja, jb, cov.At(ja, jb)+vals[a]*vals[b]/n)
			}
		}
	}
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			v := cov.At(a, b) - mu[a]*mu[b]
			if a == b {
				v += ridge
			}
			cov.SetSym(a, b, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, errors.New("normal equations are not positive definite")
	}

	var w mat.VecDense
	if err := chol.SolveVecTo(&w, mat.NewVecDense(p, c)); err != nil {
		return nil, fmt.Errorf("cholesky solve: %w", err)
	}
	return mat.Col(nil, 0, &w), nil
}

// solveCG runs conjugate gradients against the implicit operator
// v -> Xᵀ(Xv)/n - μ(μ·v) + αv, never materialising XᵀX.
func solveCG(x *model.Sparse, mu, c []float64, opts FitOptions) ([]float64, error) {
	p := x.Cols
	n := float64(x.Rows)
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultMaxIter
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}

	xv := make([]float64, x.Rows)
	apply := func(dst, v []float64) {
		for i := 0; i < x.Rows; i++ {
			idx, vals := x.Row(i)
			s := 0.0
			for k, j := range idx {
				s += vals[k] * v[j]
			}
			xv[i] = s
		}
		for j := range dst {
			dst[j] = opts.Ridge * v[j]
		}
		for i := 0; i < x.Rows; i++ {
			idx, vals := x.Row(i)
			for k, j := range idx {
				dst[j] += vals[k] * xv[i] / n
			}
		}
		floats.AddScaled(dst, -floats.Dot(mu, v), mu)
	}

	w := make([]float64, p)
	r := append([]float64(nil), c...)
	d := append([]float64(nil), r...)
	ad := make([]float64, p)

	rr := floats.Dot(r, r)
	stop := opts.Tolerance * math.Max(1, floats.Dot(c, c))

	for iter := 0; iter < opts.MaxIter && rr > stop; iter++ {
		apply(ad, d)
		dad := floats.Dot(d, ad)
		if dad <= 0 {
			return nil, errors.New("conjugate gradient lost positive definiteness")
		}
		alpha := rr / dad
		floats.AddScaled(w, alpha, d)
		floats.AddScaled(r, -alpha, ad)

		next := floats.Dot(r, r)
		floats.Scale(next/rr, d)
		floats.Add(d, r)
		rr = next
	}
	return w, nil
}

// RMSE returns the root mean squared error of pred against y.
func RMSE(y, pred []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	diff := make([]float64, len(y))
	floats.SubTo(diff, y, pred)
	return math.Sqrt(floats.Dot(diff, diff) / float64(len(y)))
}
