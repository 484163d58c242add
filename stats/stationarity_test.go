package stats

import (
	"math"
	"testing"
)

func TestKPSS(t *testing.T) {
	result := KPSS(normalSample(8, 500), 0)
	if result == nil {
		t.Fatal("KPSS returned nil")
	}
	if !result.IsStationary {
		t.Errorf("Expected i.i.d. chain to be stationary, statistic %f", result.Statistic)
	}

	trend := make([]float64, 500)
	for i := range trend {
		trend[i] = float64(i) * 0.5
	}
	result = KPSS(trend, 0)
	if result == nil {
		t.Fatal("KPSS returned nil for trending chain")
	}
	if result.IsStationary {
		t.Errorf("Expected trending chain to be non-stationary, statistic %f", result.Statistic)
	}

	if KPSS([]float64{1, 2, 3}, 0) != nil {
		t.Error("Expected nil for short chain")
	}
}

func TestGeweke(t *testing.T) {
	x := normalSample(9, 2000)
	scores, err := Geweke(x, 0.1, 0.5, 20)
	if err != nil {
		t.Fatalf("geweke: %v", err)
	}
	if len(scores) == 0 || scores[0].Start != 0 {
		t.Fatalf("Unexpected scores %v", scores)
	}
	for _, s := range scores {
		if math.Abs(s.Z) > 0.5 {
			t.Errorf("Expected small z-score at %d, got %f", s.Start, s.Z)
		}
	}

	// An unconverged start shifts the early segments.
	for i := 0; i < 300; i++ {
		x[i] += 5
	}
	scores, err = Geweke(x, 0.1, 0.5, 20)
	if err != nil {
		t.Fatalf("geweke: %v", err)
	}
	if scores[0].Z < 2 {
		t.Errorf("Expected large z-score for shifted start, got %f", scores[0].Z)
	}

	for _, tc := range []struct{ n, intervals int }{{1000, 20}, {1000, 5}, {2000, 20}, {500, 1}} {
		scores, err := Geweke(normalSample(10, tc.n), 0.1, 0.5, tc.intervals)
		if err != nil {
			t.Fatalf("geweke n=%d intervals=%d: %v", tc.n, tc.intervals, err)
		}
		if len(scores) != tc.intervals {
			t.Errorf("Expected %d scores for n=%d, got %d", tc.intervals, tc.n, len(scores))
		}
		if last := scores[len(scores)-1].Start; last > tc.n/2 {
			t.Errorf("Expected starts in the first half, last is %d of %d", last, tc.n)
		}
	}

	if _, err := Geweke(x, 0.6, 0.5, 20); err == nil {
		t.Error("Expected error for overlapping segments")
	}
}
