package stats

import (
	"errors"
	"math"
	"testing"
)

func TestQuantilesNormal(t *testing.T) {
	x := normalSample(42, 200000)

	q, err := Quantiles(x, nil)
	if err != nil {
		t.Fatalf("quantiles: %v", err)
	}
	expected := map[float64]float64{2.5: -1.96, 25: -0.674, 50: 0, 75: 0.674, 97.5: 1.96}
	for p, want := range expected {
		if math.Abs(q[p]-want) > 0.03 {
			t.Errorf("Quantile %g: expected %f, got %f", p, want, q[p])
		}
	}

	iq, err := InterpolatedQuantiles(x, nil)
	if err != nil {
		t.Fatalf("interpolated quantiles: %v", err)
	}
	for p, want := range expected {
		if math.Abs(iq[p]-want) > 0.03 {
			t.Errorf("Interpolated quantile %g: expected %f, got %f", p, want, iq[p])
		}
	}
}

func TestQuantilesNearestRank(t *testing.T) {
	tests := []struct {
		name     string
		x        []float64
		expected []float64
	}{
		{"five", arange(5), []float64{0, 1, 2, 3, 4}},
		{"even", []float64{0, 2, 4, 6, 8}, []float64{0, 2, 4, 6, 8}},
		{"unsorted", []float64{4, 0, 3, 1, 2}, []float64{0, 1, 2, 3, 4}},
		{"ten", arange(10), []float64{0, 2, 5, 7, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Quantiles(tt.x, nil)
			if err != nil {
				t.Fatalf("quantiles: %v", err)
			}
			for i, p := range DefaultQuantiles {
				if q[p] != tt.expected[i] {
					t.Errorf("Quantile %g: expected %f, got %f", p, tt.expected[i], q[p])
				}
			}
		})
	}

	q, _ := Quantiles(arange(4), []float64{100})
	if q[100] != 3 {
		t.Errorf("Expected 100th percentile clamped to the maximum, got %f", q[100])
	}
}

func TestQuantilesErrors(t *testing.T) {
	if _, err := Quantiles(nil, nil); !errors.Is(err, ErrTooFewSamples) {
		t.Errorf("Expected ErrTooFewSamples, got %v", err)
	}
	if _, err := Quantiles([]float64{1}, []float64{101}); err == nil {
		t.Error("Expected error for percentile above 100")
	}
}

func TestHPD(t *testing.T) {
	x := normalSample(42, 200000)
	interval, err := HPD(x, 0.05)
	if err != nil {
		t.Fatalf("hpd: %v", err)
	}
	if math.Abs(interval[0]+1.96) > 0.03 || math.Abs(interval[1]-1.96) > 0.03 {
		t.Errorf("Expected about [-1.96, 1.96], got %v", interval)
	}
}

func TestHPDSmall(t *testing.T) {
	tests := []struct {
		name     string
		x        []float64
		alpha    float64
		expected [2]float64
	}{
		{"whole range", arange(5), 0.05, [2]float64{0, 4}},
		{"skewed", []float64{0, 0.1, 0.2, 0.3, 5, 9}, 0.4, [2]float64{0, 0.3}},
		// Equal widths keep the first window.
		{"tie", []float64{0, 1, 2, 3}, 0.5, [2]float64{0, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HPD(tt.x, tt.alpha)
			if err != nil {
				t.Fatalf("hpd: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestHPDErrors(t *testing.T) {
	if _, err := HPD(nil, 0.05); !errors.Is(err, ErrTooFewSamples) {
		t.Errorf("Expected ErrTooFewSamples, got %v", err)
	}
	if _, err := HPD([]float64{1, 2}, 1.5); err == nil {
		t.Error("Expected error for alpha outside (0, 1)")
	}
}

func TestMCError(t *testing.T) {
	tests := []struct {
		name     string
		x        []float64
		batches  int
		expected float64
	}{
		{"unit batches", arange(5), 5, math.Sqrt(2) / math.Sqrt(5)},
		{"drops remainder", arange(11), 5, math.Sqrt(8) / math.Sqrt(5)},
		{"single batch", arange(5), 1, math.Sqrt(2) / math.Sqrt(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MCError(tt.x, tt.batches)
			if err != nil {
				t.Fatalf("mc error: %v", err)
			}
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("Expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestMCErrorRareEvents(t *testing.T) {
	u := normalSample(5, 100000)
	x := make([]float64, len(u))
	for i, v := range u {
		if v > 2.8 {
			x[i] = 1
		}
	}
	got, err := MCError(x, 5)
	if err != nil {
		t.Fatalf("mc error: %v", err)
	}
	if got <= 0 {
		t.Errorf("Expected positive error for rare events, got %f", got)
	}

	if _, err := MCError([]float64{1, 2}, 5); !errors.Is(err, ErrTooFewSamples) {
		t.Errorf("Expected ErrTooFewSamples, got %v", err)
	}
}
