package stats

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// LjungBoxResult represents the result of a Ljung-Box test.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int // Degrees of freedom
}

// LjungBox performs the Ljung-Box test for autocorrelation in a chain.
// The null hypothesis is that there is no autocorrelation up to the given lag.
// A p-value below 0.05 suggests the chain should be thinned further.
// fitdf is subtracted from the degrees of freedom.
func LjungBox(x []float64, lags, fitdf int) *LjungBoxResult {
	n := len(x)
	if n < 10 || lags < 1 {
		return nil
	}

	if lags >= n {
		lags = n - 1
	}

	acf := ACF(x, lags)
	if acf == nil {
		return nil
	}

	// Ljung-Box Q statistic
	q := 0.0
	for k := 1; k <= lags; k++ {
		q += (acf[k] * acf[k]) / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	chi2 := distuv.ChiSquared{K: float64(dof)}

	return &LjungBoxResult{
		Statistic: q,
		PValue:    chi2.Survival(q),
		Lags:      lags,
		DOF:       dof,
	}
}

// SuggestThin returns the smallest thinning interval k (up to maxThin) for which
// the Ljung-Box test no longer rejects independence of every k-th draw at level.
// It returns maxThin when no interval passes.
func SuggestThin(x []float64, lags, maxThin int, level float64) int {
	for k := 1; k < maxThin; k++ {
		thinned := make([]float64, 0, len(x)/k+1)
		for i := 0; i < len(x); i += k {
			thinned = append(thinned, x[i])
		}
		res := LjungBox(thinned, lags, 0)
		if res == nil {
			return k
		}
		if res.PValue >= level {
			return k
		}
	}
	return maxThin
}
