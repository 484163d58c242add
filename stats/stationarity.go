package stats

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// KPSSResult represents the result of a KPSS test.
type KPSSResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	CriticalVals map[string]float64
	IsStationary bool
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin level-stationarity test
// on a chain. The null hypothesis is that the chain is stationary around its
// mean; a p-value below 0.05 suggests the chain has not settled (too short a
// burn-in). nlags <= 0 selects the lag automatically.
func KPSS(x []float64, nlags int) *KPSSResult {
	n := len(x)
	if n < 10 {
		return nil
	}

	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	nlags = min(nlags, n-1)

	mean := stat.Mean(x, nil)
	residuals := make([]float64, n)
	for i, v := range x {
		residuals[i] = v - mean
	}

	// Newey-West long-run variance with Bartlett weights
	s2 := 0.0
	for _, r := range residuals {
		s2 += r * r
	}
	s2 /= float64(n)
	for l := 1; l <= nlags; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += residuals[i] * residuals[i-l]
		}
		cov /= float64(n)
		s2 += 2 * (1 - float64(l)/float64(nlags+1)) * cov
	}
	if s2 <= 0 {
		return nil
	}

	eta, partial := 0.0, 0.0
	for _, r := range residuals {
		partial += r
		eta += partial * partial
	}
	statistic := eta / (float64(n) * float64(n) * s2)
	pValue := kpssPValue(statistic)

	return &KPSSResult{
		Statistic: statistic,
		PValue:    pValue,
		Lags:      nlags,
		CriticalVals: map[string]float64{
			"10%": 0.347,
			"5%":  0.463,
			"1%":  0.739,
		},
		IsStationary: pValue >= 0.05,
	}
}

// kpssPValue interpolates the level-stationarity critical value table.
func kpssPValue(statistic float64) float64 {
	switch {
	case statistic > 0.739:
		return 0.01
	case statistic > 0.463:
		return 0.05
	case statistic > 0.347:
		return 0.10
	default:
		return math.Min(0.10+(0.347-statistic)*0.5, 1)
	}
}

// GewekeScore is the z-score comparing an early segment of a chain starting at
// Start with the final segment.
type GewekeScore struct {
	Start int
	Z     float64
}

// Geweke compares the mean of the first fraction of the chain with the mean of
// the last fraction, for intervals starting points spread evenly over the
// first half of the chain. Scores far outside [-2, 2] suggest the early draws have not
// converged.
func Geweke(x []float64, first, last float64, intervals int) ([]GewekeScore, error) {
	if first+last >= 1 || first <= 0 || last <= 0 {
		return nil, errors.Errorf("invalid segment fractions first=%g last=%g", first, last)
	}
	if intervals < 1 {
		return nil, errors.Errorf("intervals must be positive, got %d", intervals)
	}
	end := len(x) - 1
	starts := []int{0}
	if intervals > 1 {
		step := float64(end) / 2 / float64(intervals-1)
		if step < 1 {
			return nil, errors.Wrapf(ErrTooFewSamples, "%d draws for %d intervals", len(x), intervals)
		}
		starts = make([]int, intervals)
		for i := range starts {
			starts[i] = int(float64(i) * step)
		}
	}

	scores := make([]GewekeScore, 0, len(starts))
	for _, start := range starts {
		a := x[start : start+int(first*float64(end-start))]
		b := x[int(float64(end)-last*float64(end-start)):]
		if len(a) < 2 || len(b) < 2 {
			return nil, errors.Wrapf(ErrTooFewSamples, "segment at %d", start)
		}
		ma, va := stat.PopMeanVariance(a, nil)
		mb, vb := stat.PopMeanVariance(b, nil)
		if va+vb == 0 {
			return nil, errors.Wrapf(ErrZeroVariance, "segment at %d", start)
		}
		scores = append(scores, GewekeScore{Start: start, Z: (ma - mb) / math.Sqrt(va+vb)})
	}
	return scores, nil
}
