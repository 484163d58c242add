// Package mcdiag provides diagnostics and summaries for Markov chain Monte
// Carlo output.
//
// The library works on traces of posterior draws: named, shaped variables
// recorded per chain, along with sampler statistics such as the HMC energy.
// Given a trace and the model that produced it, it computes
//
//   - autocorrelation, quantiles, highest posterior density intervals and
//     batch-means Monte Carlo errors
//   - information criteria: DIC, BPIC, WAIC and PSIS leave-one-out
//   - model comparison with stacking, pseudo-BMA and Bayesian-bootstrap
//     pseudo-BMA weights
//   - convergence checks: Gelman-Rubin, effective sample size, Geweke, KPSS
//     and the Bayesian fraction of missing information
//   - text and tabular posterior summaries
//
// # Quick Start
//
// Sample a model and summarise it:
//
//	tr, _ := sampler.Sample(ctx, m, sampler.DefaultConfig())
//	summary.Write(os.Stdout, tr, summary.DefaultOptions())
//	waic, _ := stats.WAIC(tr, m)
//
// Compare models fitted to the same observations:
//
//	cmp, _ := compare.CompareModels(ctx, traces, models, compare.DefaultConfig())
//	fmt.Println(cmp.Best().Name, cmp.Weights())
//
// # Packages
//
// The library is organized into the following packages:
//
//   - trace: Multi-chain traces, flat indices, CSV and SQLite storage
//   - model: Priors, likelihoods and transforms of the models being sampled
//   - sampler: Metropolis and HMC samplers producing traces
//   - stats: Diagnostics and information criteria
//   - compare: Model comparison and weighting
//   - summary: Text and tabular posterior summaries
//
// # References
//
//   - Gelman, A., et al. (2013). Bayesian Data Analysis, 3rd ed.
//   - Vehtari, A., Gelman, A., & Gabry, J. (2017). Practical Bayesian model
//     evaluation using leave-one-out cross-validation and WAIC
//   - Yao, Y., et al. (2018). Using stacking to average Bayesian predictive
//     distributions
//   - Betancourt, M. (2016). Diagnosing suboptimal cotangent disintegrations in
//     Hamiltonian Monte Carlo
package mcdiag
