package model

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/trace"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrMissingVar is returned when a point lacks a free variable of the model.
var ErrMissingVar = errors.New("point is missing a free variable")

// FreeVar is a latent variable with an elementwise i.i.d. prior.
type FreeVar struct {
	Name      string
	Shape     []int
	Prior     distuv.LogProber
	Transform Transform // optional sampler-space reparameterisation
	Init      []float64 // starting value in natural space (optional)
}

// Size returns the number of scalar components.
func (v FreeVar) Size() int {
	return trace.Var{Name: v.Name, Shape: v.Shape}.Size()
}

// TransformedName returns the sampler-space variable name, or "" without a transform.
func (v FreeVar) TransformedName() string {
	if v.Transform == nil {
		return ""
	}
	return v.Name + "_" + v.Transform.Name() + "__"
}

func (v FreeVar) initial() []float64 {
	if len(v.Init) == v.Size() {
		return append([]float64(nil), v.Init...)
	}
	x := 0.0
	if v.Transform != nil {
		x = v.Transform.Backward(0)
	}
	init := make([]float64, v.Size())
	for i := range init {
		init[i] = x
	}
	return init
}

// Observed is an observed variable. NaN entries in Data are missing and
// contribute nothing to the likelihood.
type Observed struct {
	Name  string
	Shape []int
	Data  []float64 // row-major
	Dist  Likelihood
}

// Count returns the number of non-missing observations.
func (o Observed) Count() int {
	n := 0
	for _, x := range o.Data {
		if !math.IsNaN(x) {
			n++
		}
	}
	return n
}

// Model is a Bayesian model: free variables with priors and observed variables
// with likelihoods conditional on the free variables.
type Model struct {
	Free     []FreeVar
	Observed []Observed
}

// Validate checks that every variable is fully specified.
func (m *Model) Validate() error {
	seen := make(map[string]bool)
	for _, v := range m.Free {
		if v.Name == "" || v.Prior == nil {
			return errors.Errorf("free variable %q needs a name and a prior", v.Name)
		}
		if seen[v.Name] {
			return errors.Errorf("duplicate variable %q", v.Name)
		}
		seen[v.Name] = true
		if len(v.Init) != 0 && len(v.Init) != v.Size() {
			return errors.Errorf("%q: init has %d values, shape %v needs %d", v.Name, len(v.Init), v.Shape, v.Size())
		}
	}
	for _, o := range m.Observed {
		if o.Dist == nil {
			return errors.Errorf("observed variable %q has no likelihood", o.Name)
		}
		if seen[o.Name] {
			return errors.Errorf("duplicate variable %q", o.Name)
		}
		seen[o.Name] = true
		size := trace.Var{Shape: o.Shape}.Size()
		if len(o.Data) != size {
			return errors.Errorf("%q: %d values, shape %v needs %d", o.Name, len(o.Data), o.Shape, size)
		}
	}
	return nil
}

// Vars returns the free variables in natural space.
func (m *Model) Vars() []trace.Var {
	vars := make([]trace.Var, len(m.Free))
	for i, v := range m.Free {
		vars[i] = trace.Var{Name: v.Name, Shape: v.Shape}
	}
	return vars
}

// TraceVars returns the variables recorded by samplers: for each free variable,
// its sampler-space name first (when transformed), then the natural name.
func (m *Model) TraceVars() []trace.Var {
	var vars []trace.Var
	for _, v := range m.Free {
		if name := v.TransformedName(); name != "" {
			vars = append(vars, trace.Var{Name: name, Shape: v.Shape})
		}
		vars = append(vars, trace.Var{Name: v.Name, Shape: v.Shape})
	}
	return vars
}

// Dim returns the number of scalar free parameters.
func (m *Model) Dim() int {
	n := 0
	for _, v := range m.Free {
		n += v.Size()
	}
	return n
}

// NumObserved returns the number of non-missing observed scalars.
func (m *Model) NumObserved() int {
	n := 0
	for _, o := range m.Observed {
		n += o.Count()
	}
	return n
}

// InitialPoint returns the starting point in natural space.
func (m *Model) InitialPoint() trace.Point {
	p := make(trace.Point, len(m.Free))
	for _, v := range m.Free {
		p[v.Name] = v.initial()
	}
	return p
}

// LogPrior returns the joint log prior density at p.
func (m *Model) LogPrior(p trace.Point) (float64, error) {
	if err := m.check(p); err != nil {
		return 0, err
	}
	lp := 0.0
	for _, v := range m.Free {
		for _, x := range p[v.Name] {
			lp += v.Prior.LogProb(x)
		}
	}
	return lp, nil
}

// LogLike returns the log likelihood of the observed data at p.
func (m *Model) LogLike(p trace.Point) (float64, error) {
	pointwise, err := m.Pointwise(p)
	if err != nil {
		return 0, err
	}
	ll := 0.0
	for _, x := range pointwise {
		ll += x
	}
	return ll, nil
}

// LogP returns the unnormalised log posterior at p.
func (m *Model) LogP(p trace.Point) (float64, error) {
	lp, err := m.LogPrior(p)
	if err != nil {
		return 0, err
	}
	ll, err := m.LogLike(p)
	if err != nil {
		return 0, err
	}
	return lp + ll, nil
}

// Pointwise returns the log likelihood of every non-missing observed scalar at p,
// observed variables in order and each one row-major.
func (m *Model) Pointwise(p trace.Point) ([]float64, error) {
	if err := m.check(p); err != nil {
		return nil, err
	}
	result := make([]float64, 0, m.NumObserved())
	for _, o := range m.Observed {
		for i, y := range o.Data {
			if math.IsNaN(y) {
				continue
			}
			result = append(result, o.Dist(p, i).LogProb(y))
		}
	}
	return result, nil
}

// Pack maps a natural-space point to a sampler-space vector.
func (m *Model) Pack(p trace.Point) ([]float64, error) {
	if err := m.check(p); err != nil {
		return nil, err
	}
	x := make([]float64, 0, m.Dim())
	for _, v := range m.Free {
		for _, val := range p[v.Name] {
			if v.Transform != nil {
				val = v.Transform.Forward(val)
			}
			x = append(x, val)
		}
	}
	return x, nil
}

// Unpack maps a sampler-space vector to a point holding both the natural values
// and, for transformed variables, the sampler-space values.
func (m *Model) Unpack(x []float64) trace.Point {
	p := make(trace.Point, 2*len(m.Free))
	off := 0
	for _, v := range m.Free {
		size := v.Size()
		raw := append([]float64(nil), x[off:off+size]...)
		off += size
		if v.Transform == nil {
			p[v.Name] = raw
			continue
		}
		natural := make([]float64, size)
		for i, y := range raw {
			natural[i] = v.Transform.Backward(y)
		}
		p[v.TransformedName()] = raw
		p[v.Name] = natural
	}
	return p
}

// LogPSampler returns the log posterior in sampler space, including the
// log-Jacobian of the transforms. Invalid points give -Inf.
func (m *Model) LogPSampler(x []float64) float64 {
	lp, err := m.LogP(m.Unpack(x))
	if err != nil || math.IsNaN(lp) {
		return math.Inf(-1)
	}
	off := 0
	for _, v := range m.Free {
		size := v.Size()
		if v.Transform != nil {
			for _, y := range x[off : off+size] {
				lp += v.Transform.LogJacobian(y)
			}
		}
		off += size
	}
	if math.IsNaN(lp) {
		return math.Inf(-1)
	}
	return lp
}

// LogProb implements distmv.LogProber over the sampler space.
func (m *Model) LogProb(x []float64) float64 {
	return m.LogPSampler(x)
}

func (m *Model) check(p trace.Point) error {
	for _, v := range m.Free {
		vals, ok := p[v.Name]
		if !ok {
			return errors.Wrapf(ErrMissingVar, "%q", v.Name)
		}
		if len(vals) != v.Size() {
			return errors.Errorf("%q has %d values, shape %v needs %d", v.Name, len(vals), v.Shape, v.Size())
		}
	}
	return nil
}
