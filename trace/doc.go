// Package trace provides the posterior sample containers consumed by the diagnostics.
//
// A Trace is an ordered list of variables and one or more chains. Each chain
// stores, per variable, the draws flattened row-major, plus per-draw sampler
// statistics such as "energy".
//
// # Building a Trace
//
//	vars := []trace.Var{{Name: "mu"}, {Name: "theta", Shape: []int{2, 3}}}
//	c := trace.NewChain(0, vars)
//	_ = c.Record(trace.Point{"mu": {0.1}, "theta": make([]float64, 6)})
//	tr := trace.New(vars)
//	_ = tr.AddChain(c)
//
//	theta, _ := tr.Values("theta") // draws x 6 matrix
//
// # Component Names
//
// Components are addressed by flat names, "theta__1_2" for theta[1, 2]:
//
//	for idx := range trace.Indices([]int{2, 3}) {
//	    fmt.Println(trace.FlatName("theta", idx))
//	}
//
// # Storage
//
// The text backend writes one CSV file per chain:
//
//	err := trace.SaveDir("out/trace", tr)
//	loaded, err := trace.LoadDir("out/trace")
//
// The SQLite backend keeps many traces in one database:
//
//	store := trace.NewSQLiteStore("traces.db")
//	if err := store.Init(ctx); err != nil { ... }
//	id, err := store.SaveTrace(ctx, "model-a", tr)
//	loaded, ok, err := store.LoadTrace(ctx, id)
package trace
