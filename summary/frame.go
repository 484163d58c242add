package summary

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/stats"
	"github.com/sartorproj/mcdiag/trace"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Column is a named statistic with one value per variable component.
type Column struct {
	Name   string
	Values []float64
}

// StatFunc computes columns from a draws x components matrix.
type StatFunc func(values *mat.Dense) ([]Column, error)

// Named wraps a per-component statistic as a single-column StatFunc.
func Named(name string, f func(x []float64) float64) StatFunc {
	return func(values *mat.Dense) ([]Column, error) {
		_, c := values.Dims()
		col := Column{Name: name, Values: make([]float64, c)}
		for j := range col.Values {
			col.Values[j] = f(mat.Col(nil, j, values))
		}
		return []Column{col}, nil
	}
}

// MeanFunc is the "mean" column.
func MeanFunc() StatFunc {
	return Named("mean", func(x []float64) float64 { return stat.Mean(x, nil) })
}

// SDFunc is the "sd" column, the population standard deviation.
func SDFunc() StatFunc {
	return Named("sd", func(x []float64) float64 { return stat.PopStdDev(x, nil) })
}

// MCErrorFunc is the "mc_error" column.
func MCErrorFunc(batches int) StatFunc {
	return perComponent(func(x []float64) ([]float64, error) {
		v, err := stats.MCError(x, batches)
		return []float64{v}, err
	}, "mc_error")
}

// HPDFunc gives the "hpd_<lo>" and "hpd_<hi>" columns.
func HPDFunc(alpha float64) StatFunc {
	lo := "hpd_" + strconv.FormatFloat(100*alpha/2, 'g', 6, 64)
	hi := "hpd_" + strconv.FormatFloat(100*(1-alpha/2), 'g', 6, 64)
	return perComponent(func(x []float64) ([]float64, error) {
		iv, err := stats.HPD(x, alpha)
		return iv[:], err
	}, lo, hi)
}

func perComponent(f func(x []float64) ([]float64, error), names ...string) StatFunc {
	return func(values *mat.Dense) ([]Column, error) {
		_, c := values.Dims()
		cols := make([]Column, len(names))
		for k, name := range names {
			cols[k] = Column{Name: name, Values: make([]float64, c)}
		}
		for j := 0; j < c; j++ {
			res, err := f(mat.Col(nil, j, values))
			if err != nil {
				return nil, err
			}
			for k := range cols {
				cols[k].Values[j] = res[k]
			}
		}
		return cols, nil
	}
}

// Frame is a table of statistics: one row per variable component, one column
// per statistic.
type Frame struct {
	Index   []string
	Columns []string
	data    [][]float64
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Index) }

// At returns the value in row and column.
func (f *Frame) At(row, col string) (float64, bool) {
	i := slices.Index(f.Index, row)
	j := slices.Index(f.Columns, col)
	if i < 0 || j < 0 {
		return 0, false
	}
	return f.data[i][j], true
}

// Row returns a copy of a row.
func (f *Frame) Row(name string) ([]float64, bool) {
	i := slices.Index(f.Index, name)
	if i < 0 {
		return nil, false
	}
	return slices.Clone(f.data[i]), true
}

// Col returns a copy of a column.
func (f *Frame) Col(name string) ([]float64, bool) {
	j := slices.Index(f.Columns, name)
	if j < 0 {
		return nil, false
	}
	col := make([]float64, len(f.data))
	for i, row := range f.data {
		col[i] = row[j]
	}
	return col, true
}

func (f *Frame) addColumn(name string, values []float64) {
	f.Columns = append(f.Columns, name)
	for i := range f.data {
		f.data[i] = append(f.data[i], values[i])
	}
}

// Write prints the frame as an aligned table.
func (f *Frame) Write(w io.Writer, decimals int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(f.Columns, "\t"))
	for i, name := range f.Index {
		cells := make([]string, len(f.data[i]))
		for j, v := range f.data[i] {
			cells[j] = strconv.FormatFloat(v, 'f', decimals, 64)
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", name, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// MarshalJSON encodes the frame as a list of rows keyed by column name.
// Non-finite values are encoded as null.
func (f *Frame) MarshalJSON() ([]byte, error) {
	type row struct {
		Name  string              `json:"name"`
		Stats map[string]*float64 `json:"stats"`
	}
	rows := make([]row, len(f.Index))
	for i, name := range f.Index {
		r := row{Name: name, Stats: make(map[string]*float64, len(f.Columns))}
		for j, col := range f.Columns {
			v := f.data[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				r.Stats[col] = nil
				continue
			}
			r.Stats[col] = &v
		}
		rows[i] = r
	}
	return json.Marshal(rows)
}

// DFSummary tabulates statistics of every selected variable of tr. The default
// columns are mean, sd, mc_error and the HPD bounds; Options.StatFuncs replaces
// them, or is appended with Options.Extend. With the default or extended
// columns and at least two chains, n_eff and Rhat are appended.
func DFSummary(tr *trace.Trace, opts *Options) (*Frame, error) {
	opts = opts.withDefaults(tr)
	funcs := []StatFunc{MeanFunc(), SDFunc(), MCErrorFunc(opts.Batches), HPDFunc(opts.Alpha)}
	custom := opts.StatFuncs != nil && !opts.Extend
	if opts.StatFuncs != nil {
		if opts.Extend {
			funcs = append(funcs, opts.StatFuncs...)
		} else {
			funcs = opts.StatFuncs
		}
	}

	f := &Frame{}
	varnames := opts.varnames(tr)
	for _, name := range varnames {
		sample, err := opts.sample(tr, name)
		if err != nil {
			return nil, err
		}
		var cols []Column
		for _, fn := range funcs {
			c, err := fn(sample.Values)
			if err != nil {
				return nil, errors.Wrapf(err, "summarising %q", name)
			}
			cols = append(cols, c...)
		}

		names := make([]string, len(cols))
		for k, c := range cols {
			names[k] = c.Name
		}
		if f.Columns == nil {
			f.Columns = names
		} else if !slices.Equal(f.Columns, names) {
			return nil, errors.Errorf("%q has columns %v, expected %v", name, names, f.Columns)
		}

		for j, flat := range trace.FlatNames(name, sample.Shape) {
			row := make([]float64, len(cols))
			for k, c := range cols {
				row[k] = c.Values[j]
			}
			f.Index = append(f.Index, flat)
			f.data = append(f.data, row)
		}
	}

	if custom || tr.NChains() < 2 {
		return f, nil
	}
	neff, rhat, err := convergence(tr, varnames, opts)
	if err != nil {
		return nil, err
	}
	f.addColumn("n_eff", neff)
	f.addColumn("Rhat", rhat)
	return f, nil
}

// convergence returns the effective sample size and Gelman-Rubin statistic of
// every component, in frame row order.
func convergence(tr *trace.Trace, varnames []string, opts *Options) ([]float64, []float64, error) {
	var neff, rhat []float64
	for _, name := range varnames {
		chains, err := opts.chainValues(tr, name)
		if err != nil {
			return nil, nil, err
		}
		v, _ := tr.Var(name)
		for j := 0; j < v.Size(); j++ {
			xs := make([][]float64, len(chains))
			for c, m := range chains {
				xs[c] = mat.Col(nil, j, m)
			}
			n, err := orNaN(stats.EffectiveN(xs))
			if err != nil {
				return nil, nil, errors.Wrapf(err, "n_eff of %q", name)
			}
			r, err := orNaN(stats.GelmanRubin(xs))
			if err != nil {
				return nil, nil, errors.Wrapf(err, "Rhat of %q", name)
			}
			neff = append(neff, n)
			rhat = append(rhat, r)
		}
	}
	return neff, rhat, nil
}

// orNaN maps a zero-variance failure to NaN.
func orNaN(v float64, err error) (float64, error) {
	if errors.Is(err, stats.ErrZeroVariance) {
		return math.NaN(), nil
	}
	return v, err
}
