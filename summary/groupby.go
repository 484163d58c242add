package summary

import (
	"slices"

	"github.com/sartorproj/mcdiag/trace"
)

// Group is a run of component indices sharing every index but the last.
type Group struct {
	Key     []int   // leading indices, empty for 0-d and 1-d variables
	Indices [][]int // full component indices in row-major order
}

// GroupByLeadingIdxs groups the component indices of a variable of the given
// shape by their leading indices, in row-major order. A 0-d shape gives one
// group holding the empty index.
func GroupByLeadingIdxs(shape []int) []Group {
	var groups []Group
	for idx := range trace.Indices(shape) {
		key := []int{}
		if len(idx) > 0 {
			key = idx[:len(idx)-1]
		}
		if n := len(groups); n > 0 && slices.Equal(groups[n-1].Key, key) {
			groups[n-1].Indices = append(groups[n-1].Indices, idx)
			continue
		}
		groups = append(groups, Group{Key: slices.Clone(key), Indices: [][]int{idx}})
	}
	return groups
}
