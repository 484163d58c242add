package trace

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrUnknownVar is returned when a variable or sampler statistic is not recorded in a trace.
var ErrUnknownVar = errors.New("unknown variable")

// Point is a single draw: variable name to flat (row-major) values.
type Point map[string][]float64

// Var describes a sampled variable.
type Var struct {
	Name  string
	Shape []int
}

// Size returns the number of scalar components of the variable.
func (v Var) Size() int {
	n := 1
	for _, s := range v.Shape {
		n *= s
	}
	return n
}

// IsTransformed reports whether name is a sampler-space reparameterisation
// (for example "x_interval__" or "sigma_log__").
func IsTransformed(name string) bool {
	return strings.HasSuffix(name, "__")
}

// DefaultVarnames filters out transformed variables unless includeTransformed is set.
func DefaultVarnames(names []string, includeTransformed bool) []string {
	if includeTransformed {
		return append([]string(nil), names...)
	}
	var result []string
	for _, name := range names {
		if !IsTransformed(name) {
			result = append(result, name)
		}
	}
	return result
}

// Chain holds the draws of one sampler run.
type Chain struct {
	ID int

	vars   []Var
	values map[string][]float64
	stats  map[string][]float64
	n      int
}

// NewChain creates an empty chain for the given variables.
func NewChain(id int, vars []Var) *Chain {
	c := &Chain{
		ID:     id,
		vars:   append([]Var(nil), vars...),
		values: make(map[string][]float64, len(vars)),
		stats:  make(map[string][]float64),
	}
	for _, v := range vars {
		c.values[v.Name] = nil
	}
	return c
}

// Len returns the number of draws recorded in the chain.
func (c *Chain) Len() int {
	return c.n
}

// Record appends a draw. Every chain variable must be present with its full size.
func (c *Chain) Record(p Point) error {
	for _, v := range c.vars {
		vals, ok := p[v.Name]
		if !ok {
			return errors.Wrapf(ErrUnknownVar, "draw %d is missing %q", c.n, v.Name)
		}
		if len(vals) != v.Size() {
			return errors.Errorf("draw %d: %q has %d values, shape %v needs %d",
				c.n, v.Name, len(vals), v.Shape, v.Size())
		}
	}
	for _, v := range c.vars {
		c.values[v.Name] = append(c.values[v.Name], p[v.Name]...)
	}
	c.n++
	return nil
}

// SetValues replaces the draws of a variable with the rows of m.
func (c *Chain) SetValues(name string, m mat.Matrix) error {
	v, ok := c.lookup(name)
	if !ok {
		return errors.Wrapf(ErrUnknownVar, "%q", name)
	}
	r, cols := m.Dims()
	if cols != v.Size() {
		return errors.Errorf("%q: matrix has %d columns, shape %v needs %d", name, cols, v.Shape, v.Size())
	}
	if c.n != 0 && r != c.n && c.otherValuesSet(name) {
		return errors.Errorf("%q: %d draws, chain has %d", name, r, c.n)
	}
	flat := make([]float64, 0, r*cols)
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			flat = append(flat, m.At(i, j))
		}
	}
	c.values[name] = flat
	c.n = r
	return nil
}

// SetStat stores a per-draw sampler statistic such as "energy".
func (c *Chain) SetStat(name string, values []float64) {
	c.stats[name] = append([]float64(nil), values...)
}

// Stat returns a copy of a sampler statistic.
func (c *Chain) Stat(name string) ([]float64, bool) {
	s, ok := c.stats[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), s...), true
}

// StatNames returns the names of the recorded sampler statistics.
func (c *Chain) StatNames() []string {
	names := make([]string, 0, len(c.stats))
	for name := range c.stats {
		names = append(names, name)
	}
	return names
}

// Values returns the draws of a variable as a draws x size matrix.
func (c *Chain) Values(name string) (*mat.Dense, error) {
	v, ok := c.lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownVar, "%q", name)
	}
	if c.n == 0 {
		return nil, errors.Errorf("chain %d has no draws", c.ID)
	}
	data := append([]float64(nil), c.values[name]...)
	return mat.NewDense(c.n, v.Size(), data), nil
}

// Point returns draw i of the chain.
func (c *Chain) Point(i int) Point {
	p := make(Point, len(c.vars))
	for _, v := range c.vars {
		size := v.Size()
		p[v.Name] = append([]float64(nil), c.values[v.Name][i*size:(i+1)*size]...)
	}
	return p
}

func (c *Chain) lookup(name string) (Var, bool) {
	for _, v := range c.vars {
		if v.Name == name {
			return v, true
		}
	}
	return Var{}, false
}

func (c *Chain) otherValuesSet(name string) bool {
	for _, v := range c.vars {
		if v.Name != name && len(c.values[v.Name]) > 0 {
			return true
		}
	}
	return false
}

// Trace is an ordered set of variables and one or more chains of draws.
type Trace struct {
	Vars   []Var
	Chains []*Chain
}

// New creates a trace without chains.
func New(vars []Var) *Trace {
	return &Trace{Vars: append([]Var(nil), vars...)}
}

// FromValues builds a single-chain trace from per-variable draws x size matrices.
func FromValues(vars []Var, values map[string]mat.Matrix) (*Trace, error) {
	c := NewChain(0, vars)
	for _, v := range vars {
		m, ok := values[v.Name]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownVar, "no values for %q", v.Name)
		}
		if err := c.SetValues(v.Name, m); err != nil {
			return nil, err
		}
	}
	t := New(vars)
	if err := t.AddChain(c); err != nil {
		return nil, err
	}
	return t, nil
}

// AddChain appends a chain. Its variables must match the trace.
func (t *Trace) AddChain(c *Chain) error {
	if len(c.vars) != len(t.Vars) {
		return errors.Errorf("chain %d has %d variables, trace has %d", c.ID, len(c.vars), len(t.Vars))
	}
	for i, v := range t.Vars {
		cv := c.vars[i]
		if cv.Name != v.Name || !slices.Equal(cv.Shape, v.Shape) {
			return errors.Errorf("chain %d variable %q%v does not match %q%v",
				c.ID, cv.Name, cv.Shape, v.Name, v.Shape)
		}
	}
	t.Chains = append(t.Chains, c)
	return nil
}

// Len returns the number of draws per chain.
func (t *Trace) Len() int {
	if len(t.Chains) == 0 {
		return 0
	}
	n := t.Chains[0].Len()
	for _, c := range t.Chains[1:] {
		n = min(n, c.Len())
	}
	return n
}

// NChains returns the number of chains.
func (t *Trace) NChains() int {
	return len(t.Chains)
}

// Varnames returns the variable names in trace order.
func (t *Trace) Varnames() []string {
	names := make([]string, len(t.Vars))
	for i, v := range t.Vars {
		names[i] = v.Name
	}
	return names
}

// Var returns the variable description for name.
func (t *Trace) Var(name string) (Var, bool) {
	for _, v := range t.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return Var{}, false
}

// Values returns the draws of all chains stacked in chain order.
func (t *Trace) Values(name string) (*mat.Dense, error) {
	v, ok := t.Var(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownVar, "%q", name)
	}
	if len(t.Chains) == 0 {
		return nil, errors.New("trace has no chains")
	}
	var data []float64
	rows := 0
	for _, c := range t.Chains {
		data = append(data, c.values[name]...)
		rows += c.Len()
	}
	if rows == 0 {
		return nil, errors.New("trace has no draws")
	}
	return mat.NewDense(rows, v.Size(), data), nil
}

// ChainValues returns the draws of one chain.
func (t *Trace) ChainValues(name string, chain int) (*mat.Dense, error) {
	if chain < 0 || chain >= len(t.Chains) {
		return nil, errors.Errorf("chain %d out of range [0, %d)", chain, len(t.Chains))
	}
	return t.Chains[chain].Values(name)
}

// Stat returns a sampler statistic concatenated over chains.
func (t *Trace) Stat(name string) ([]float64, error) {
	var result []float64
	for _, c := range t.Chains {
		s, ok := c.Stat(name)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownVar, "chain %d has no %q statistic", c.ID, name)
		}
		result = append(result, s...)
	}
	if len(t.Chains) == 0 {
		return nil, errors.New("trace has no chains")
	}
	return result, nil
}

// Points returns every draw of every chain in order.
func (t *Trace) Points() []Point {
	var points []Point
	for _, c := range t.Chains {
		for i := 0; i < c.Len(); i++ {
			points = append(points, c.Point(i))
		}
	}
	return points
}

// Mean returns the posterior mean of the named variables over all draws.
func (t *Trace) Mean(names ...string) (Point, error) {
	p := make(Point, len(names))
	for _, name := range names {
		m, err := t.Values(name)
		if err != nil {
			return nil, err
		}
		_, c := m.Dims()
		means := make([]float64, c)
		for j := range means {
			means[j] = stat.Mean(mat.Col(nil, j, m), nil)
		}
		p[name] = means
	}
	return p, nil
}
