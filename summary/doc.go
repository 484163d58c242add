// Package summary renders posterior summaries of a trace.
//
// Text output follows a fixed layout: for each variable a stat table
// (mean, sd, MC error, HPD interval) and a posterior quantile table, with the
// components of multi-dimensional variables grouped under "[i, :]" rows.
//
//	err := summary.Write(os.Stdout, tr, summary.DefaultOptions())
//
// DFSummary builds the same statistics as a Frame keyed by flat component
// names ("theta__0_1"), which can be printed, looked up or encoded as JSON.
package summary
