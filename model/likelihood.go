package model

import (
	"github.com/sartorproj/mcdiag/trace"
	"gonum.org/v1/gonum/stat/distuv"
)

// Param evaluates a distribution parameter for observation i at a point.
type Param func(p trace.Point, i int) float64

// Const is a fixed parameter.
func Const(v float64) Param {
	return func(trace.Point, int) float64 { return v }
}

// Ref reads a free variable. Scalars are broadcast; otherwise component i is used.
func Ref(name string) Param {
	return func(p trace.Point, i int) float64 {
		vals := p[name]
		if len(vals) == 1 {
			return vals[0]
		}
		return vals[i]
	}
}

// Scaled returns a Param multiplied by c[i].
func Scaled(param Param, c []float64) Param {
	return func(p trace.Point, i int) float64 {
		return c[i] * param(p, i)
	}
}

// Likelihood returns the distribution of observation i at a point.
type Likelihood func(p trace.Point, i int) distuv.LogProber

// NormalLik is a normal likelihood.
func NormalLik(mu, sigma Param) Likelihood {
	return func(p trace.Point, i int) distuv.LogProber {
		return distuv.Normal{Mu: mu(p, i), Sigma: sigma(p, i)}
	}
}

// StudentTLik is a Student's t likelihood.
func StudentTLik(nu, mu, sigma Param) Likelihood {
	return func(p trace.Point, i int) distuv.LogProber {
		return distuv.StudentsT{Mu: mu(p, i), Sigma: sigma(p, i), Nu: nu(p, i)}
	}
}

// BinomialLik is a binomial likelihood with n trials and success probability prob.
func BinomialLik(n, prob Param) Likelihood {
	return func(p trace.Point, i int) distuv.LogProber {
		return distuv.Binomial{N: n(p, i), P: prob(p, i)}
	}
}
