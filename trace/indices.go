package trace

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Indices yields every index tuple of shape in row-major order.
// A 0-d shape yields a single empty tuple; any zero-length axis yields nothing.
// The sequence can be ranged over any number of times.
func Indices(shape []int) iter.Seq[[]int] {
	shape = append([]int(nil), shape...)
	return func(yield func([]int) bool) {
		for _, s := range shape {
			if s <= 0 {
				return
			}
		}
		idx := make([]int, len(shape))
		for {
			if !yield(slices.Clone(idx)) {
				return
			}
			// Odometer increment, last axis fastest.
			k := len(shape) - 1
			for ; k >= 0; k-- {
				idx[k]++
				if idx[k] < shape[k] {
					break
				}
				idx[k] = 0
			}
			if k < 0 {
				return
			}
		}
	}
}

// MakeIndices returns all index tuples of shape in row-major order.
func MakeIndices(shape []int) [][]int {
	var result [][]int
	for idx := range Indices(shape) {
		result = append(result, idx)
	}
	return result
}

// FlatIndex returns the row-major offset of idx within shape.
func FlatIndex(shape, idx []int) int {
	offset := 0
	for k, i := range idx {
		offset = offset*shape[k] + i
	}
	return offset
}

// FlatName returns the column name of one component of a variable:
// name for scalars and name__i_j for components.
func FlatName(name string, idx []int) string {
	if len(idx) == 0 {
		return name
	}
	parts := make([]string, len(idx))
	for k, i := range idx {
		parts[k] = strconv.Itoa(i)
	}
	return name + "__" + strings.Join(parts, "_")
}

// FlatNames returns the flat names of every component of a variable in row-major order.
func FlatNames(name string, shape []int) []string {
	var names []string
	for idx := range Indices(shape) {
		names = append(names, FlatName(name, idx))
	}
	return names
}

// ParseFlatName splits a flat name into the variable name and component index.
// Transformed names such as "x_interval__" have no index part.
func ParseFlatName(flat string) (string, []int, error) {
	if IsTransformed(flat) {
		return flat, nil, nil
	}
	pos := strings.LastIndex(flat, "__")
	if pos <= 0 {
		return flat, nil, nil
	}
	name, rest := flat[:pos], flat[pos+2:]
	var idx []int
	for _, p := range strings.Split(rest, "_") {
		i, err := strconv.Atoi(p)
		if err != nil {
			return "", nil, errors.Wrapf(err, "parsing index of %q", flat)
		}
		idx = append(idx, i)
	}
	return name, idx, nil
}
