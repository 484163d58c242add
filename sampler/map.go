package sampler

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/model"
	"github.com/sartorproj/mcdiag/trace"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// MAP is a posterior mode.
type MAP struct {
	X     []float64   // sampler space
	Point trace.Point // natural and sampler-space values
	LogP  float64     // log posterior in sampler space
}

// FindMAP maximises the sampler-space log posterior of m with L-BFGS, starting
// from start (or the model's initial point when start is nil). Gradients are
// central finite differences.
func FindMAP(m *model.Model, start trace.Point) (*MAP, error) {
	if start == nil {
		start = m.InitialPoint()
	}
	x0, err := m.Pack(start)
	if err != nil {
		return nil, err
	}
	if math.IsInf(m.LogPSampler(x0), -1) {
		return nil, errors.New("log posterior is -Inf at the starting point")
	}

	negLogP := func(x []float64) float64 {
		lp := m.LogPSampler(x)
		if math.IsInf(lp, -1) {
			return math.MaxFloat64
		}
		return -lp
	}
	problem := optimize.Problem{
		Func: negLogP,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, negLogP, x, &fd.Settings{Formula: fd.Central})
		},
	}

	result, err := optimize.Minimize(problem, x0, nil, &optimize.LBFGS{})
	if result == nil {
		return nil, errors.Wrap(err, "minimize")
	}
	x := result.X
	if result.F > negLogP(x0) {
		x = x0
	}
	lp := m.LogPSampler(x)
	if err != nil && math.IsInf(lp, -1) {
		return nil, errors.Wrap(err, "minimize")
	}
	return &MAP{X: x, Point: m.Unpack(x), LogP: lp}, nil
}

// LaplaceCovariance returns the inverse of the finite-difference Hessian of the
// negative log posterior at x. When the Hessian is not positive definite it
// returns the identity and false.
func LaplaceCovariance(m *model.Model, x []float64) (*mat.SymDense, bool) {
	n := len(x)
	negLogP := func(x []float64) float64 { return -m.LogPSampler(x) }

	var hess mat.SymDense
	fd.Hessian(&hess, negLogP, x, &fd.Settings{Formula: fd.Central})

	var chol mat.Cholesky
	if ok := chol.Factorize(&hess); ok {
		var cov mat.SymDense
		if err := chol.InverseTo(&cov); err == nil && finite(&cov) {
			return &cov, true
		}
	}
	return identity(n), false
}

func identity(n int) *mat.SymDense {
	id := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		id.SetSym(i, i, 1)
	}
	return id
}

func finite(s *mat.SymDense) bool {
	n := s.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := s.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
