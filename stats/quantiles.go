package stats

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// DefaultQuantiles are the percentiles reported by default.
var DefaultQuantiles = []float64{2.5, 25, 50, 75, 97.5}

// Quantiles returns the requested percentiles of x. Each percentile q maps to
// the sorted sample at index floor(n*q/100), clamped to the last sample.
// A nil qlist uses DefaultQuantiles.
func Quantiles(x []float64, qlist []float64) (map[float64]float64, error) {
	sorted, err := sortedCopy(x)
	if err != nil {
		return nil, err
	}
	if qlist == nil {
		qlist = DefaultQuantiles
	}

	n := len(sorted)
	result := make(map[float64]float64, len(qlist))
	for _, q := range qlist {
		if q < 0 || q > 100 || math.IsNaN(q) {
			return nil, errors.Errorf("percentile %g outside [0, 100]", q)
		}
		idx := min(int(float64(n)*q/100), n-1)
		result[q] = sorted[idx]
	}
	return result, nil
}

// InterpolatedQuantiles returns the requested percentiles of x using linear
// interpolation of the empirical distribution.
func InterpolatedQuantiles(x []float64, qlist []float64) (map[float64]float64, error) {
	sorted, err := sortedCopy(x)
	if err != nil {
		return nil, err
	}
	if qlist == nil {
		qlist = DefaultQuantiles
	}

	result := make(map[float64]float64, len(qlist))
	for _, q := range qlist {
		if q < 0 || q > 100 || math.IsNaN(q) {
			return nil, errors.Errorf("percentile %g outside [0, 100]", q)
		}
		result[q] = stat.Quantile(q/100, stat.LinInterp, sorted, nil)
	}
	return result, nil
}

// HPD returns the highest posterior density interval of x: the narrowest
// window of sorted samples spanning floor((1-alpha)*n) index steps. Ties keep
// the lowest window.
func HPD(x []float64, alpha float64) ([2]float64, error) {
	if alpha <= 0 || alpha >= 1 {
		return [2]float64{}, errors.Errorf("alpha %g outside (0, 1)", alpha)
	}
	sorted, err := sortedCopy(x)
	if err != nil {
		return [2]float64{}, err
	}

	n := len(sorted)
	inc := int(math.Floor((1 - alpha) * float64(n)))
	windows := n - inc
	if inc < 0 || windows < 1 {
		return [2]float64{}, errors.Wrapf(ErrTooFewSamples, "%d samples for alpha %g", n, alpha)
	}

	best := 0
	width := math.Inf(1)
	for i := 0; i < windows; i++ {
		w := sorted[i+inc] - sorted[i]
		if w < width {
			width = w
			best = i
		}
	}
	return [2]float64{sorted[best], sorted[best+inc]}, nil
}

// MCError estimates the Monte Carlo standard error of the mean of x by batch
// means. x is split into batches contiguous chunks of floor(n/batches) draws
// (trailing draws are dropped) and the result is the standard deviation of
// the chunk means divided by sqrt(batches). With batches <= 1 it is sd(x)/sqrt(n).
func MCError(x []float64, batches int) (float64, error) {
	n := len(x)
	if n == 0 {
		return 0, errors.Wrap(ErrTooFewSamples, "mc error of empty chain")
	}
	if batches <= 1 {
		return stat.PopStdDev(x, nil) / math.Sqrt(float64(n)), nil
	}

	size := n / batches
	if size == 0 {
		return 0, errors.Wrapf(ErrTooFewSamples, "%d samples for %d batches", n, batches)
	}
	means := make([]float64, batches)
	for b := range means {
		means[b] = stat.Mean(x[b*size:(b+1)*size], nil)
	}
	return stat.PopStdDev(means, nil) / math.Sqrt(float64(batches)), nil
}

func sortedCopy(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, errors.Wrap(ErrTooFewSamples, "empty sample")
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	return sorted, nil
}
