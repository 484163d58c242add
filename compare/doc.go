// Package compare ranks Bayesian models fitted to the same data by an
// information criterion and assigns them weights.
//
// # Basic Usage
//
//	cmp, err := compare.CompareModels(ctx,
//	    []*trace.Trace{tr0, tr1},
//	    []*model.Model{m0, m1},
//	    compare.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, row := range cmp.Rows {
//	    fmt.Printf("%s WAIC=%.1f weight=%.2f\n", row.Name, row.IC, row.Weight)
//	}
//
// # Weighting Methods
//
// Stacking maximises the leave-one-out log score of the weighted predictive
// mixture. Pseudo-BMA uses Akaike-type weights exp(-IC/2). BB-pseudo-BMA
// stabilises pseudo-BMA with a Bayesian bootstrap over observations; the
// bootstrap is seeded through Config.Seed so repeated comparisons agree.
//
// Rows are sorted by ascending IC; Comparison.Weights returns the weights in
// input order.
package compare
