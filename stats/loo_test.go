package stats

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// normalLogLik returns the pointwise log-likelihood of data under N(mu_s, 1)
// for posterior draws mu_s of a flat-prior normal mean.
func normalLogLik(data []float64, draws int) *LogLikMatrix {
	mean := 0.0
	for _, y := range data {
		mean += y
	}
	mean /= float64(len(data))
	z := normalSample(99, draws)

	ll := NewLogLikMatrix(draws, len(data), nil)
	for s := 0; s < draws; s++ {
		mu := mean + z[s]/math.Sqrt(float64(len(data)))
		for j, y := range data {
			ll.data[s*len(data)+j] = distuv.Normal{Mu: mu, Sigma: 1}.LogProb(y)
		}
	}
	return ll
}

func TestLOOMatchesWAIC(t *testing.T) {
	ll := normalLogLik(normalSample(21, 50), 2000)

	loo, err := LOOFromLogLik(ll, 1)
	if err != nil {
		t.Fatalf("loo: %v", err)
	}
	waic, err := WAICFromLogLik(ll)
	if err != nil {
		t.Fatalf("waic: %v", err)
	}

	if math.Abs(loo.Value-waic.Value) > 1 {
		t.Errorf("Expected LOO %f close to WAIC %f", loo.Value, waic.Value)
	}
	if math.Abs(loo.P-waic.P) > 0.5 {
		t.Errorf("Expected pLOO %f close to pWAIC %f", loo.P, waic.P)
	}
	if loo.Warning {
		t.Errorf("Unexpected Pareto k warning: %v", loo.ParetoK)
	}
	if len(loo.ParetoK) != 50 || len(loo.Pointwise) != 50 {
		t.Errorf("Expected 50 pointwise values, got %d", len(loo.Pointwise))
	}
	if math.Abs(floats.Sum(loo.Pointwise)-loo.Value) > 1e-9 {
		t.Error("Pointwise terms do not sum to LOO")
	}
}

func TestPSISNormalises(t *testing.T) {
	lw := normalSample(4, 1000)
	for i := range lw {
		lw[i] *= 3
	}
	psisSmooth(lw, 1)
	if got := floats.LogSumExp(lw); math.Abs(got) > 1e-9 {
		t.Errorf("Expected normalised log weights, logsumexp %f", got)
	}
}

func TestGPDFit(t *testing.T) {
	const (
		k     = 0.5
		sigma = 2.0
		n     = 2000
	)
	x := make([]float64, n)
	for i := range x {
		x[i] = gpdInv((float64(i)+0.5)/n, k, sigma)
	}

	gotK, gotSigma := gpdFit(x)
	if math.Abs(gotK-k) > 0.1 {
		t.Errorf("Expected k near %f, got %f", k, gotK)
	}
	if math.Abs(gotSigma-sigma) > 0.4 {
		t.Errorf("Expected sigma near %f, got %f", sigma, gotSigma)
	}
}

func TestGPDInv(t *testing.T) {
	// k = 0 is the exponential distribution.
	if got, want := gpdInv(0.5, 0, 1), math.Log(2); math.Abs(got-want) > 1e-12 {
		t.Errorf("Expected %f, got %f", want, got)
	}
	if !math.IsNaN(gpdInv(0, 0.5, 1)) || !math.IsNaN(gpdInv(0.5, 0.5, -1)) {
		t.Error("Expected NaN outside the support")
	}
}
