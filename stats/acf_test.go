package stats

import (
	"errors"
	"math"
	"testing"
)

func TestACF(t *testing.T) {
	n := 100
	phi := 0.8
	values := make([]float64, n)
	for i := 1; i < n; i++ {
		values[i] = phi*values[i-1] + (float64(i%10)-5)/10
	}

	acf := ACF(values, 10)
	if acf == nil {
		t.Fatal("ACF returned nil")
	}

	// ACF at lag 0 should be 1
	if math.Abs(acf[0]-1.0) > 1e-10 {
		t.Errorf("ACF at lag 0 should be 1, got %f", acf[0])
	}

	if ACF([]float64{2, 2, 2}, 1) != nil {
		t.Error("ACF of a constant chain should be nil")
	}
}

func TestACFWithConfidence(t *testing.T) {
	x := normalSample(1, 400)
	result := ACFWithConfidence(x, 20)
	if result == nil {
		t.Fatal("ACFWithConfidence returned nil")
	}
	if len(result.Lags) != 21 || len(result.Values) != 21 {
		t.Errorf("Expected 21 lags, got %d", len(result.Lags))
	}
	if math.Abs(result.ConfBounds-1.96/20) > 1e-12 {
		t.Errorf("Expected bound %f, got %f", 1.96/20, result.ConfBounds)
	}
}

func TestSignificantLags(t *testing.T) {
	values := []float64{1.0, 0.5, 0.1, -0.3, 0.05}
	sig := SignificantLags(values, 0.2)

	expected := []int{1, 3}
	if len(sig) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, sig)
	}
	for i, lag := range expected {
		if sig[i] != lag {
			t.Errorf("Expected lag %d, got %d", lag, sig[i])
		}
	}
}

func TestAutocorr(t *testing.T) {
	x := normalSample(42, 200000)

	r, err := Autocorr(x, 1)
	if err != nil {
		t.Fatalf("autocorr: %v", err)
	}
	if math.Abs(r) > 0.01 {
		t.Errorf("Expected autocorrelation near 0 for i.i.d. draws, got %f", r)
	}

	// A two-point moving average has lag-1 autocorrelation 0.5.
	y := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		y[i-1] = (x[i-1] + x[i]) / 2
	}
	r, err = Autocorr(y, 1)
	if err != nil {
		t.Fatalf("autocorr: %v", err)
	}
	if math.Abs(r-0.5) > 0.01 {
		t.Errorf("Expected autocorrelation near 0.5, got %f", r)
	}

	if r, _ := Autocorr(x, 0); r != 1 {
		t.Errorf("Expected 1 at lag 0, got %f", r)
	}
}

func TestAutocorrErrors(t *testing.T) {
	if _, err := Autocorr([]float64{1, 2, 3}, -1); err == nil {
		t.Error("Expected error for negative lag")
	}
	if _, err := Autocorr([]float64{1, 2}, 1); !errors.Is(err, ErrTooFewSamples) {
		t.Errorf("Expected ErrTooFewSamples, got %v", err)
	}
	if _, err := Autocorr([]float64{1, 1, 1, 1}, 1); !errors.Is(err, ErrZeroVariance) {
		t.Errorf("Expected ErrZeroVariance, got %v", err)
	}
}

func TestAutocov(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	cov, err := Autocov(x, 1)
	if err != nil {
		t.Fatalf("autocov: %v", err)
	}
	// x[:4] = 1..4 and x[1:] = 2..5 both have biased variance 1.25.
	for _, v := range []float64{cov.At(0, 0), cov.At(1, 1), cov.At(0, 1), cov.At(1, 0)} {
		if math.Abs(v-1.25) > 1e-12 {
			t.Errorf("Expected 1.25, got %f", v)
		}
	}

	cov, err = Autocov(x, 0)
	if err != nil {
		t.Fatalf("autocov: %v", err)
	}
	if math.Abs(cov.At(0, 0)-2) > 1e-12 {
		t.Errorf("Expected biased variance 2, got %f", cov.At(0, 0))
	}
}

func TestLjungBox(t *testing.T) {
	n := 100
	whiteNoise := make([]float64, n)
	for i := range whiteNoise {
		whiteNoise[i] = float64(i%7-3) / 3
	}

	result := LjungBox(whiteNoise, 10, 0)
	if result == nil {
		t.Fatal("LjungBox returned nil")
	}
	if result.DOF != 10 {
		t.Errorf("Expected 10 degrees of freedom, got %d", result.DOF)
	}

	t.Logf("Ljung-Box - Q: %f, P-Value: %f, DOF: %d",
		result.Statistic, result.PValue, result.DOF)

	autocorrelated := ar1(7, 500, 0.9)
	result2 := LjungBox(autocorrelated, 10, 0)
	if result2 == nil {
		t.Fatal("LjungBox returned nil for autocorrelated data")
	}
	if result2.PValue > 0.01 {
		t.Errorf("Expected rejection for AR(1) chain, p-value %f", result2.PValue)
	}

	if LjungBox([]float64{1, 2, 3}, 2, 0) != nil {
		t.Error("Expected nil for short chain")
	}
}

func TestSuggestThin(t *testing.T) {
	x := ar1(3, 5000, 0.9)
	k := SuggestThin(x, 10, 100, 0.05)
	if k <= 1 {
		t.Errorf("Expected thinning above 1 for AR(1) chain, got %d", k)
	}
}
