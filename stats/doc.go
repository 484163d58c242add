// Package stats provides diagnostics for MCMC posterior samples.
//
// # Summary Statistics
//
// Per-chain summaries of a scalar quantity:
//
//	r, err := stats.Autocorr(x, 1)
//	q, err := stats.Quantiles(x, nil)      // 2.5, 25, 50, 75, 97.5
//	hpd, err := stats.HPD(x, 0.05)         // [lower, upper]
//	mce, err := stats.MCError(x, 5)        // batch-means standard error
//
// # Information Criteria
//
// Criteria are evaluated from the pointwise log-likelihood of a model's
// observed data at every posterior draw:
//
//	ll, err := stats.LogPostTrace(tr, m)   // draws x observed scalars
//	dic, err := stats.DIC(tr, m)
//	bpic, err := stats.BPIC(tr, m)
//	waic, err := stats.WAIC(tr, m)
//	fmt.Printf("WAIC=%.2f SE=%.2f pWAIC=%.2f\n", waic.Value, waic.SE, waic.P)
//
//	loo, err := stats.LOO(tr, m, 1)        // Pareto-smoothed leave-one-out
//
// Missing observations (NaN) contribute no column.
//
// # Convergence
//
// Across chains:
//
//	rhat, err := stats.GelmanRubin(chains)
//	neff, err := stats.EffectiveN(chains)
//
// Within a chain:
//
//	kpss := stats.KPSS(x, 0)               // H0: chain is stationary
//	z, err := stats.Geweke(x, 0.1, 0.5, 20)
//	lb := stats.LjungBox(x, 10, 0)         // H0: no autocorrelation
//	thin := stats.SuggestThin(x, 10, 50, 0.05)
//
// # Energy
//
// For Hamiltonian samplers, the Bayesian fraction of missing information:
//
//	v, err := stats.BFMI(energy)
//	perChain, err := stats.TraceBFMI(tr)
package stats
