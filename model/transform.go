package model

import "math"

// Transform maps a constrained variable onto the real line for sampling.
type Transform interface {
	// Name is used for the sampler-space trace variable, <var>_<name>__.
	Name() string
	Forward(x float64) float64
	Backward(y float64) float64
	// LogJacobian returns log |dx/dy| at y.
	LogJacobian(y float64) float64
}

// Interval returns the logit transform for a variable bounded by (lo, hi).
func Interval(lo, hi float64) Transform {
	return interval{lo: lo, hi: hi}
}

type interval struct {
	lo, hi float64
}

func (interval) Name() string { return "interval" }

func (t interval) Forward(x float64) float64 {
	u := (x - t.lo) / (t.hi - t.lo)
	return math.Log(u) - math.Log1p(-u)
}

func (t interval) Backward(y float64) float64 {
	return t.lo + (t.hi-t.lo)*sigmoid(y)
}

func (t interval) LogJacobian(y float64) float64 {
	// log sigmoid(y) + log(1 - sigmoid(y)) = -|y| - 2 log(1 + exp(-|y|))
	a := math.Abs(y)
	return math.Log(t.hi-t.lo) - a - 2*math.Log1p(math.Exp(-a))
}

// Log returns the log transform for a positive variable.
func Log() Transform {
	return logTransform{}
}

type logTransform struct{}

func (logTransform) Name() string                  { return "log" }
func (logTransform) Forward(x float64) float64     { return math.Log(x) }
func (logTransform) Backward(y float64) float64    { return math.Exp(y) }
func (logTransform) LogJacobian(y float64) float64 { return y }

func sigmoid(y float64) float64 {
	if y >= 0 {
		return 1 / (1 + math.Exp(-y))
	}
	e := math.Exp(y)
	return e / (1 + e)
}
