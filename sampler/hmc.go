package sampler

import (
	"context"
	"math"

	"github.com/sartorproj/mcdiag/model"
	"github.com/sartorproj/mcdiag/trace"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// targetAccept is the mean acceptance probability the step size is tuned towards.
const targetAccept = 0.8

// whitened is the posterior in coordinates u where x = center + L u.
type whitened struct {
	m      *model.Model
	center []float64
	scale  mat.Matrix
	lu     mat.VecDense
}

func newWhitened(m *model.Model, center []float64, scale mat.Matrix) *whitened {
	return &whitened{m: m, center: center, scale: scale}
}

func (w *whitened) toX(u []float64) []float64 {
	w.lu.MulVec(w.scale, mat.NewVecDense(len(u), u))
	x := make([]float64, len(u))
	for i := range x {
		x[i] = w.center[i] + w.lu.AtVec(i)
	}
	return x
}

// potential is the negative log posterior in whitened space.
func (w *whitened) potential(u []float64) float64 {
	return -w.m.LogPSampler(w.toX(u))
}

func (w *whitened) grad(dst, u []float64) {
	fd.Gradient(dst, w.potential, u, &fd.Settings{Formula: fd.Central})
}

// runHMC runs one Hamiltonian Monte Carlo chain with identity mass in the
// whitened space. The step size is adapted during tuning and fixed afterwards.
func runHMC(ctx context.Context, m *model.Model, id int, start, center []float64, scale *mat.TriDense, r *rand.Rand, cfg *Config) (*trace.Chain, error) {
	d := len(start)
	w := newWhitened(m, center, scale)

	// Map the jittered start back into whitened coordinates.
	u := make([]float64, d)
	diff := make([]float64, d)
	for i := range diff {
		diff[i] = start[i] - center[i]
	}
	var sol mat.VecDense
	if err := sol.SolveVec(scale, mat.NewVecDense(d, diff)); err == nil {
		copy(u, sol.RawVector().Data)
	}
	U := w.potential(u)
	if math.IsInf(U, 0) || math.IsNaN(U) {
		for i := range u {
			u[i] = 0
		}
		U = w.potential(u)
	}
	g := make([]float64, d)
	w.grad(g, u)

	chain := trace.NewChain(id, m.TraceVars())
	energy := make([]float64, 0, cfg.Draws)
	accepted := make([]float64, 0, cfg.Draws)
	acceptProb := make([]float64, 0, cfg.Draws)

	step := cfg.StepSize
	logStep := math.Log(step)
	p := make([]float64, d)
	uNew := make([]float64, d)
	gNew := make([]float64, d)

	total := cfg.Tune + cfg.Draws
	for t := 0; t < total; t++ {
		if t%batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		kinetic := 0.0
		for i := range p {
			p[i] = r.NormFloat64()
			kinetic += p[i] * p[i]
		}
		h0 := U + kinetic/2

		copy(uNew, u)
		copy(gNew, g)
		UNew := leapfrog(w, uNew, p, gNew, step, cfg.Leapfrog)
		kinetic = 0
		for _, pi := range p {
			kinetic += pi * pi
		}
		h1 := UNew + kinetic/2

		alpha := 0.0
		if !math.IsNaN(h1) && !math.IsInf(h1, 0) {
			alpha = math.Min(1, math.Exp(h0-h1))
		}
		acc := r.Float64() < alpha
		h := h0
		if acc {
			copy(u, uNew)
			copy(g, gNew)
			U = UNew
			h = h1
		}

		if t < cfg.Tune {
			logStep += (alpha - targetAccept) / math.Sqrt(float64(t)+10)
			step = math.Exp(logStep)
			continue
		}

		if err := record(chain, m, w.toX(u)); err != nil {
			return nil, err
		}
		energy = append(energy, h)
		acceptProb = append(acceptProb, alpha)
		if acc {
			accepted = append(accepted, 1)
		} else {
			accepted = append(accepted, 0)
		}
	}

	chain.SetStat(StatEnergy, energy)
	chain.SetStat(StatAccepted, accepted)
	chain.SetStat(StatAcceptProb, acceptProb)
	return chain, nil
}

// leapfrog integrates Hamilton's equations in place for n steps and returns the
// potential at the final position. g holds the potential gradient at u on entry
// and at the final position on return.
func leapfrog(w *whitened, u, p, g []float64, step float64, n int) float64 {
	for s := 0; s < n; s++ {
		for i := range p {
			p[i] -= step / 2 * g[i]
			u[i] += step * p[i]
		}
		w.grad(g, u)
		for i := range p {
			p[i] -= step / 2 * g[i]
		}
	}
	return w.potential(u)
}
