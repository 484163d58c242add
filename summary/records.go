package summary

import (
	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/stats"
	"github.com/sartorproj/mcdiag/trace"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Sample holds the draws of one variable: one row per draw, one column per
// component in row-major order of Shape.
type Sample struct {
	Values *mat.Dense
	Shape  []int
}

// NewSample wraps draws of a variable with the given shape.
func NewSample(values *mat.Dense, shape []int) (Sample, error) {
	_, c := values.Dims()
	if size := (trace.Var{Shape: shape}).Size(); c != size {
		return Sample{}, errors.Errorf("%d columns, shape %v needs %d", c, shape, size)
	}
	return Sample{Values: values, Shape: shape}, nil
}

// column returns the draws of component idx.
func (s Sample) column(idx []int) []float64 {
	return mat.Col(nil, trace.FlatIndex(s.Shape, idx), s.Values)
}

// StatRecord summarises one component.
type StatRecord struct {
	Mean    float64
	SD      float64
	MCError float64
	HPD     [2]float64
}

// QuantileRecord holds the posterior quantiles of one component, in the order
// of the requested percentiles.
type QuantileRecord []float64

// Block is a group of records sharing their leading indices.
type Block[T any] struct {
	Key     []int
	Records []T
}

// CalculateStats returns the mean, standard deviation, Monte Carlo error and
// HPD interval of every component, grouped by leading indices. batches <= 0
// uses min(100, draws).
func CalculateStats(s Sample, batches int, alpha float64) ([]Block[StatRecord], error) {
	if batches <= 0 {
		batches = defaultBatches(s.Values)
	}
	var blocks []Block[StatRecord]
	for _, g := range GroupByLeadingIdxs(s.Shape) {
		b := Block[StatRecord]{Key: g.Key}
		for _, idx := range g.Indices {
			x := s.column(idx)
			mean, sd := stat.PopMeanStdDev(x, nil)
			mce, err := stats.MCError(x, batches)
			if err != nil {
				return nil, errors.Wrapf(err, "component %v", idx)
			}
			hpd, err := stats.HPD(x, alpha)
			if err != nil {
				return nil, errors.Wrapf(err, "component %v", idx)
			}
			b.Records = append(b.Records, StatRecord{Mean: mean, SD: sd, MCError: mce, HPD: hpd})
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// CalculatePosteriorQuantiles returns the qlist percentiles of every
// component, grouped by leading indices.
func CalculatePosteriorQuantiles(s Sample, qlist []float64) ([]Block[QuantileRecord], error) {
	if qlist == nil {
		qlist = stats.DefaultQuantiles
	}
	var blocks []Block[QuantileRecord]
	for _, g := range GroupByLeadingIdxs(s.Shape) {
		b := Block[QuantileRecord]{Key: g.Key}
		for _, idx := range g.Indices {
			q, err := stats.Quantiles(s.column(idx), qlist)
			if err != nil {
				return nil, errors.Wrapf(err, "component %v", idx)
			}
			rec := make(QuantileRecord, len(qlist))
			for i, p := range qlist {
				rec[i] = q[p]
			}
			b.Records = append(b.Records, rec)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func defaultBatches(m *mat.Dense) int {
	r, _ := m.Dims()
	return min(100, r)
}
