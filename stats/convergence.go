package stats

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// GelmanRubin returns the potential scale reduction factor R-hat of a scalar
// quantity sampled by several chains. Values near 1 indicate convergence.
// Chains are truncated to the shortest one.
func GelmanRubin(chains [][]float64) (float64, error) {
	x, err := equalChains(chains)
	if err != nil {
		return 0, err
	}
	n := float64(len(x[0]))

	means := make([]float64, len(x))
	vars := make([]float64, len(x))
	for j, c := range x {
		means[j], vars[j] = stat.MeanVariance(c, nil)
	}
	b := n * stat.Variance(means, nil)
	w := stat.Mean(vars, nil)
	if w == 0 {
		return 0, errors.Wrap(ErrZeroVariance, "within-chain variance")
	}
	vhat := w*(n-1)/n + b/n
	return math.Sqrt(vhat / w), nil
}

// EffectiveN returns the effective sample size of a scalar quantity sampled by
// several chains. Autocorrelations are estimated from the variogram and summed
// until the first pair (rho[2k-1], rho[2k]) with a negative sum.
func EffectiveN(chains [][]float64) (float64, error) {
	x, err := equalChains(chains)
	if err != nil {
		return 0, err
	}
	m := len(x)
	n := len(x[0])
	total := float64(m * n)

	vhat := pooledVariance(x)
	if vhat == 0 {
		return 0, errors.Wrap(ErrZeroVariance, "pooled variance")
	}

	rho := make([]float64, n)
	rho[0] = 1
	t := 1
	for negative := false; !negative && t < n; t++ {
		variogram := 0.0
		for _, c := range x {
			for i := t; i < n; i++ {
				d := c[i] - c[i-t]
				variogram += d * d
			}
		}
		variogram /= float64(m * (n - t))
		rho[t] = 1 - variogram/(2*vhat)
		// Geyer pairs end on even lags.
		if t%2 == 0 {
			negative = rho[t-1]+rho[t] < 0
		}
	}
	if t%2 == 1 {
		t--
	}

	sum := 0.0
	for i := 1; i < t-1; i++ {
		sum += rho[i]
	}
	neff := math.Floor(total / (1 + 2*sum))
	return math.Min(total, neff), nil
}

// pooledVariance estimates the marginal posterior variance from the within- and
// between-chain variances.
func pooledVariance(x [][]float64) float64 {
	m := float64(len(x))
	n := float64(len(x[0]))
	means := make([]float64, len(x))
	for j, c := range x {
		means[j] = stat.Mean(c, nil)
	}
	grand := stat.Mean(means, nil)

	bOverN := 0.0
	for _, mu := range means {
		bOverN += (mu - grand) * (mu - grand)
	}
	bOverN /= m - 1

	w := 0.0
	for j, c := range x {
		for _, v := range c {
			w += (v - means[j]) * (v - means[j])
		}
	}
	w /= m * (n - 1)
	return w*(n-1)/n + bOverN
}

func equalChains(chains [][]float64) ([][]float64, error) {
	if len(chains) < 2 {
		return nil, errors.Wrapf(ErrTooFewSamples, "%d chains, need at least 2", len(chains))
	}
	n := len(chains[0])
	for _, c := range chains[1:] {
		n = min(n, len(c))
	}
	if n < 2 {
		return nil, errors.Wrapf(ErrTooFewSamples, "%d draws per chain", n)
	}
	x := make([][]float64, len(chains))
	for j, c := range chains {
		x[j] = c[:n]
	}
	return x, nil
}
