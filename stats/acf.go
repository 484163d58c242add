package stats

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ACF calculates the autocorrelation function of a chain.
// Returns ACF values for lags 0 to maxLag.
func ACF(x []float64, maxLag int) []float64 {
	n := len(x)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := stat.Mean(x, nil)
	variance := 0.0
	for _, v := range x {
		diff := v - mean
		variance += diff * diff
	}

	if variance == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (x[i] - mean) * (x[i-k] - mean)
		}
		acf[k] = sum / variance
	}

	return acf
}

// ACFResult represents the result of ACF analysis.
type ACFResult struct {
	Lags       []int
	Values     []float64
	ConfBounds float64 // 95% confidence bounds (±1.96/sqrt(n))
}

// ACFWithConfidence calculates ACF with confidence bounds.
func ACFWithConfidence(x []float64, maxLag int) *ACFResult {
	acf := ACF(x, maxLag)
	if acf == nil {
		return nil
	}

	lags := make([]int, len(acf))
	for i := range lags {
		lags[i] = i
	}

	return &ACFResult{
		Lags:       lags,
		Values:     acf,
		ConfBounds: 1.96 / math.Sqrt(float64(len(x))),
	}
}

// SignificantLags returns the lags where ACF values exceed confidence bounds.
func SignificantLags(values []float64, confBound float64) []int {
	var significant []int
	for i := 1; i < len(values); i++ { // Skip lag 0
		if math.Abs(values[i]) > confBound {
			significant = append(significant, i)
		}
	}
	return significant
}

// Autocorr returns the lag-k autocorrelation of x: the correlation of
// x[:n-lag] with x[lag:]. Lag 0 is 1.
func Autocorr(x []float64, lag int) (float64, error) {
	if lag == 0 {
		return 1, nil
	}
	a, b, err := lagged(x, lag)
	if err != nil {
		return 0, err
	}
	if stat.Variance(a, nil) == 0 || stat.Variance(b, nil) == 0 {
		return 0, errors.Wrapf(ErrZeroVariance, "autocorrelation at lag %d", lag)
	}
	return stat.Correlation(a, b, nil), nil
}

// Autocov returns the 2x2 biased covariance matrix of x[:n-lag] and x[lag:].
func Autocov(x []float64, lag int) (*mat.SymDense, error) {
	a, b := x, x
	if lag != 0 {
		var err error
		if a, b, err = lagged(x, lag); err != nil {
			return nil, err
		}
	} else if len(x) == 0 {
		return nil, errors.Wrap(ErrTooFewSamples, "autocovariance of empty chain")
	}
	n := float64(len(a))
	scale := (n - 1) / n
	cov := mat.NewSymDense(2, nil)
	cov.SetSym(0, 0, stat.Variance(a, nil)*scale)
	cov.SetSym(1, 1, stat.Variance(b, nil)*scale)
	cov.SetSym(0, 1, stat.Covariance(a, b, nil)*scale)
	return cov, nil
}

func lagged(x []float64, lag int) ([]float64, []float64, error) {
	if lag < 0 {
		return nil, nil, errors.Errorf("negative lag %d", lag)
	}
	if len(x)-lag < 2 {
		return nil, nil, errors.Wrapf(ErrTooFewSamples, "%d samples at lag %d", len(x), lag)
	}
	return x[:len(x)-lag], x[lag:], nil
}
