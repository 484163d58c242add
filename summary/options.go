package summary

import (
	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/trace"
	"gonum.org/v1/gonum/mat"
)

// Options selects and configures what a summary reports.
type Options struct {
	Varnames           []string              // Variables to summarise (default: all but transformed)
	IncludeTransformed bool                  // Include sampler-space variables in the default selection
	Alpha              float64               // HPD and quantile tail mass (default: 0.05)
	Start              int                   // Draws discarded from the start of each chain
	Batches            int                   // MC error batches (default: min(100, kept draws per chain))
	Decimals           int                   // Decimals in text output (default: 3)
	Transform          func(float64) float64 // Applied to every draw before summarising
	StatFuncs          []StatFunc            // Replace the default frame columns
	Extend             bool                  // Append StatFuncs to the default columns instead
}

// DefaultOptions returns the default summary options.
func DefaultOptions() *Options {
	return &Options{
		Alpha:    0.05,
		Decimals: 3,
	}
}

func (o *Options) withDefaults(tr *trace.Trace) *Options {
	out := DefaultOptions()
	if o != nil {
		*out = *o
	}
	if out.Alpha == 0 {
		out.Alpha = 0.05
	}
	if out.Decimals == 0 {
		out.Decimals = 3
	}
	if out.Batches <= 0 {
		out.Batches = max(min(100, tr.Len()-out.Start), 1)
	}
	return out
}

func (o *Options) varnames(tr *trace.Trace) []string {
	if o.Varnames != nil {
		return o.Varnames
	}
	return trace.DefaultVarnames(tr.Varnames(), o.IncludeTransformed)
}

// sample returns the draws of name over all chains after Start, transformed.
func (o *Options) sample(tr *trace.Trace, name string) (Sample, error) {
	v, ok := tr.Var(name)
	if !ok {
		return Sample{}, errors.Wrapf(trace.ErrUnknownVar, "%q", name)
	}
	chains, err := o.chainValues(tr, name)
	if err != nil {
		return Sample{}, err
	}
	var rows, cols int
	for _, c := range chains {
		r, cc := c.Dims()
		rows += r
		cols = cc
	}
	if rows == 0 || cols == 0 {
		return Sample{}, errors.Errorf("%q has no draws after discarding %d", name, o.Start)
	}
	all := mat.NewDense(rows, cols, nil)
	off := 0
	for _, c := range chains {
		r, _ := c.Dims()
		all.Slice(off, off+r, 0, cols).(*mat.Dense).Copy(c)
		off += r
	}
	return NewSample(all, v.Shape)
}

// chainValues returns per-chain draws of name after Start, transformed.
func (o *Options) chainValues(tr *trace.Trace, name string) ([]*mat.Dense, error) {
	chains := make([]*mat.Dense, 0, tr.NChains())
	for c := 0; c < tr.NChains(); c++ {
		m, err := tr.ChainValues(name, c)
		if err != nil {
			return nil, err
		}
		r, cols := m.Dims()
		if o.Start >= r {
			continue
		}
		m = mat.DenseCopyOf(m.Slice(o.Start, r, 0, cols))
		if o.Transform != nil {
			m.Apply(func(_, _ int, v float64) float64 { return o.Transform(v) }, m)
		}
		chains = append(chains, m)
	}
	return chains, nil
}
