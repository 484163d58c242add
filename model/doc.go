// Package model defines Bayesian models whose posterior draws the diagnostics consume.
//
// A model has free variables with priors and observed variables with
// per-observation likelihoods. Observed values may be NaN to mark missing data.
//
//	m := &model.Model{
//	    Free: []model.FreeVar{
//	        {Name: "p", Prior: distuv.Beta{Alpha: 1, Beta: 1}, Transform: model.Interval(0, 1)},
//	    },
//	    Observed: []model.Observed{
//	        {Name: "y", Data: []float64{7}, Dist: model.BinomialLik(model.Const(10), model.Ref("p"))},
//	    },
//	}
//
//	ll, err := m.LogLike(trace.Point{"p": {0.7}})
//	pointwise, err := m.Pointwise(trace.Point{"p": {0.7}})
//
// Samplers work in an unconstrained space: Pack and Unpack convert between
// points and sampler vectors, and LogPSampler adds the log-Jacobian of the
// transforms. Transformed variables appear in traces as "<name>_interval__"
// or "<name>_log__".
package model
