package stats

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/model"
	"github.com/sartorproj/mcdiag/trace"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ParetoKLimit is the Pareto shape above which a PSIS-LOO estimate is flagged.
const ParetoKLimit = 0.7

// LOOResult is a Pareto-smoothed importance sampling leave-one-out estimate.
type LOOResult struct {
	Criterion
	ParetoK []float64 // shape estimate of the importance weight tail per observation
}

// LOO returns the PSIS leave-one-out criterion of m over tr. reff is the
// relative effective sample size of the draws (1 for independent draws).
func LOO(tr *trace.Trace, m *model.Model, reff float64) (*LOOResult, error) {
	ll, err := LogPostTrace(tr, m)
	if err != nil {
		return nil, err
	}
	return LOOFromLogLik(ll, reff)
}

// LOOFromLogLik computes PSIS-LOO from pointwise log-likelihoods.
func LOOFromLogLik(ll *LogLikMatrix, reff float64) (*LOOResult, error) {
	rows, cols := ll.Dims()
	if rows == 0 {
		return nil, errors.Wrap(ErrTooFewSamples, "no draws")
	}
	if cols == 0 {
		return nil, errors.Wrap(ErrTooFewSamples, "no observed values")
	}
	if reff <= 0 {
		reff = 1
	}

	res := &LOOResult{
		Criterion: Criterion{Name: "LOO", Pointwise: make([]float64, cols)},
		ParetoK:   make([]float64, cols),
	}
	logS := math.Log(float64(rows))
	lppd := 0.0
	lw := make([]float64, rows)
	for j := 0; j < cols; j++ {
		col := ll.Col(j)
		lppd += floats.LogSumExp(col) - logS

		for i, x := range col {
			lw[i] = -x
		}
		k := psisSmooth(lw, reff)
		res.ParetoK[j] = k
		if k > ParetoKLimit {
			res.Warning = true
		}

		for i := range lw {
			lw[i] += col[i]
		}
		res.Pointwise[j] = -2 * floats.LogSumExp(lw)
	}

	res.Value = floats.Sum(res.Pointwise)
	res.SE = math.Sqrt(float64(cols) * stat.PopVariance(res.Pointwise, nil))
	res.P = lppd + res.Value/2
	return res, nil
}

// psisSmooth Pareto-smooths the log importance weights lw in place, leaving
// them normalised, and returns the estimated tail shape k.
func psisSmooth(lw []float64, reff float64) float64 {
	n := len(lw)
	tail := int(math.Ceil(math.Min(0.2*float64(n), 3*math.Sqrt(float64(n)/reff))))
	cutoffIdx := n - tail - 1
	if cutoffIdx < 0 {
		cutoffIdx = 0
	}
	const kMin = 1.0 / 3
	cutoffMin := math.Log(math.SmallestNonzeroFloat64)

	floats.AddConst(-floats.Max(lw), lw)

	order := make([]int, n)
	sorted := append([]float64(nil), lw...)
	floats.Argsort(sorted, order)

	cutoff := math.Max(sorted[cutoffIdx], cutoffMin)
	expCutoff := math.Exp(cutoff)

	// Tail samples in ascending order.
	var tailIdx []int
	for _, i := range order {
		if lw[i] > cutoff {
			tailIdx = append(tailIdx, i)
		}
	}

	k := math.Inf(1)
	if len(tailIdx) > 4 {
		excess := make([]float64, len(tailIdx))
		for t, i := range tailIdx {
			excess[t] = math.Exp(lw[i]) - expCutoff
		}
		var sigma float64
		k, sigma = gpdFit(excess)

		if k >= kMin && !math.IsInf(k, 0) {
			m := float64(len(tailIdx))
			for t, i := range tailIdx {
				q := gpdInv((float64(t)+0.5)/m, k, sigma)
				lw[i] = math.Min(math.Log(q+expCutoff), 0)
			}
		}
	}

	floats.AddConst(-floats.LogSumExp(lw), lw)
	return k
}

// gpdFit estimates the generalized Pareto shape and scale of sorted positive
// excesses x with the Zhang-Stephens method and a weakly informative prior on k.
func gpdFit(x []float64) (k, sigma float64) {
	const (
		priorBs = 3.0
		priorK  = 10.0
	)
	n := len(x)
	m := 30 + int(math.Sqrt(float64(n)))

	quart := x[max(int(float64(n)/4+0.5)-1, 0)]
	bs := make([]float64, m)
	for i := range bs {
		bs[i] = 1 - math.Sqrt(float64(m)/(float64(i+1)-0.5))
		bs[i] /= priorBs * quart
		bs[i] += 1 / x[n-1]
	}

	ks := make([]float64, m)
	L := make([]float64, m)
	for i, b := range bs {
		s := 0.0
		for _, xi := range x {
			s += math.Log1p(-b * xi)
		}
		ks[i] = s / float64(n)
		L[i] = float64(n) * (math.Log(-b/ks[i]) - ks[i] - 1)
	}

	w := make([]float64, m)
	for i := range w {
		s := 0.0
		for j := range L {
			s += math.Exp(L[j] - L[i])
		}
		w[i] = 1 / s
	}

	const eps = 2.220446049250313e-16
	b, total := 0.0, 0.0
	for i := range w {
		if w[i] < 10*eps {
			continue
		}
		b += bs[i] * w[i]
		total += w[i]
	}
	b /= total

	k = 0.0
	for _, xi := range x {
		k += math.Log1p(-b * xi)
	}
	k /= float64(n)
	sigma = -k / b
	k = (float64(n)*k + priorK*0.5) / (float64(n) + priorK)
	return k, sigma
}

// gpdInv is the generalized Pareto quantile function.
func gpdInv(p, k, sigma float64) float64 {
	if sigma <= 0 || p <= 0 || p >= 1 {
		return math.NaN()
	}
	const eps = 2.220446049250313e-16
	if math.Abs(k) < eps {
		return -sigma * math.Log1p(-p)
	}
	return sigma * math.Expm1(-k*math.Log1p(-p)) / k
}
