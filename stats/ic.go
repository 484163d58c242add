package stats

import (
	"math"
	"slices"

	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/model"
	"github.com/sartorproj/mcdiag/trace"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// WAICVarianceLimit is the per-observation log-likelihood variance above which
// WAIC is flagged as unreliable.
const WAICVarianceLimit = 0.4

// LogLikMatrix holds pointwise log-likelihoods, draws x observed scalars.
// Unlike mat.Dense it may have zero columns.
type LogLikMatrix struct {
	rows, cols int
	data       []float64
}

// NewLogLikMatrix wraps row-major data. data may be nil to allocate zeros.
func NewLogLikMatrix(rows, cols int, data []float64) *LogLikMatrix {
	if data == nil {
		data = make([]float64, rows*cols)
	}
	if len(data) != rows*cols {
		panic("stats: log-likelihood data length mismatch")
	}
	return &LogLikMatrix{rows: rows, cols: cols, data: data}
}

// Dims returns the number of draws and observed scalars.
func (m *LogLikMatrix) Dims() (r, c int) { return m.rows, m.cols }

// At returns the log-likelihood of observation j at draw i.
func (m *LogLikMatrix) At(i, j int) float64 { return m.data[i*m.cols+j] }

// T returns the transpose. Together with Dims and At it makes LogLikMatrix a mat.Matrix.
func (m *LogLikMatrix) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// Row returns a copy of the log-likelihoods of draw i.
func (m *LogLikMatrix) Row(i int) []float64 {
	return slices.Clone(m.data[i*m.cols : (i+1)*m.cols])
}

// Col returns the log-likelihoods of observation j over all draws.
func (m *LogLikMatrix) Col(j int) []float64 {
	col := make([]float64, m.rows)
	for i := range col {
		col[i] = m.data[i*m.cols+j]
	}
	return col
}

// Dense returns a copy as a *mat.Dense, or nil when the matrix is empty.
func (m *LogLikMatrix) Dense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return nil
	}
	return mat.NewDense(m.rows, m.cols, slices.Clone(m.data))
}

// Criterion is an information criterion estimate on the deviance scale.
type Criterion struct {
	Name      string
	Value     float64
	SE        float64   // standard error of Value
	P         float64   // effective number of parameters
	Warning   bool      // estimate is unreliable
	Pointwise []float64 // per-observation contributions summing to Value
}

// LogPostTrace evaluates the log-likelihood of every non-missing observed scalar
// of m at every draw of tr (all chains, in order).
func LogPostTrace(tr *trace.Trace, m *model.Model) (*LogLikMatrix, error) {
	if err := checkTrace(tr, m); err != nil {
		return nil, err
	}

	points := tr.Points()
	cols := m.NumObserved()
	ll := NewLogLikMatrix(len(points), cols, nil)
	for i, p := range points {
		row, err := m.Pointwise(p)
		if err != nil {
			return nil, errors.Wrapf(err, "draw %d", i)
		}
		copy(ll.data[i*cols:(i+1)*cols], row)
	}
	return ll, nil
}

// DIC returns the deviance information criterion, 2*mean deviance - deviance at
// the posterior mean. The deviance is -2 times the log-likelihood.
func DIC(tr *trace.Trace, m *model.Model) (float64, error) {
	meanDev, devAtMean, err := deviances(tr, m)
	if err != nil {
		return 0, err
	}
	return 2*meanDev - devAtMean, nil
}

// BPIC returns the Bayesian predictive information criterion,
// 3*mean deviance - 2*deviance at the posterior mean.
func BPIC(tr *trace.Trace, m *model.Model) (float64, error) {
	meanDev, devAtMean, err := deviances(tr, m)
	if err != nil {
		return 0, err
	}
	return 3*meanDev - 2*devAtMean, nil
}

func deviances(tr *trace.Trace, m *model.Model) (meanDev, devAtMean float64, err error) {
	ll, err := LogPostTrace(tr, m)
	if err != nil {
		return 0, 0, err
	}
	rows, _ := ll.Dims()
	if rows == 0 {
		return 0, 0, errors.Wrap(ErrTooFewSamples, "trace has no draws")
	}

	totals := make([]float64, rows)
	for i := range totals {
		totals[i] = floats.Sum(ll.Row(i))
	}
	meanDev = -2 * stat.Mean(totals, nil)

	names := make([]string, len(m.Free))
	for i, v := range m.Free {
		names[i] = v.Name
	}
	mean, err := tr.Mean(names...)
	if err != nil {
		return 0, 0, err
	}
	llMean, err := m.LogLike(mean)
	if err != nil {
		return 0, 0, err
	}
	return meanDev, -2 * llMean, nil
}

// WAIC returns the widely applicable information criterion of m over tr.
func WAIC(tr *trace.Trace, m *model.Model) (*Criterion, error) {
	ll, err := LogPostTrace(tr, m)
	if err != nil {
		return nil, err
	}
	return WAICFromLogLik(ll)
}

// WAICFromLogLik computes WAIC from pointwise log-likelihoods:
// waic_i = -2 (log mean_s exp(ll_si) - var_s(ll_si)).
func WAICFromLogLik(ll *LogLikMatrix) (*Criterion, error) {
	rows, cols := ll.Dims()
	if rows == 0 {
		return nil, errors.Wrap(ErrTooFewSamples, "no draws")
	}
	if cols == 0 {
		return nil, errors.Wrap(ErrTooFewSamples, "no observed values")
	}

	logS := math.Log(float64(rows))
	pointwise := make([]float64, cols)
	c := &Criterion{Name: "WAIC"}
	for j := range pointwise {
		col := ll.Col(j)
		lppd := floats.LogSumExp(col) - logS
		v := stat.PopVariance(col, nil)
		if v > WAICVarianceLimit {
			c.Warning = true
		}
		c.P += v
		pointwise[j] = -2 * (lppd - v)
	}

	c.Value = floats.Sum(pointwise)
	c.SE = math.Sqrt(float64(cols) * stat.PopVariance(pointwise, nil))
	c.Pointwise = pointwise
	return c, nil
}

// checkTrace verifies that every free variable of m is recorded in tr with its shape.
func checkTrace(tr *trace.Trace, m *model.Model) error {
	if tr.NChains() == 0 {
		return errors.Wrap(ErrTooFewSamples, "trace has no chains")
	}
	for _, v := range m.Free {
		tv, ok := tr.Var(v.Name)
		if !ok {
			return errors.Wrapf(ErrShapeMismatch, "trace lacks %q", v.Name)
		}
		if !slices.Equal(tv.Shape, v.Shape) {
			return errors.Wrapf(ErrShapeMismatch, "%q has shape %v in the trace, %v in the model", v.Name, tv.Shape, v.Shape)
		}
	}
	return nil
}
