package summary

import (
	"strconv"

	"github.com/pkg/errors"
)

// Formatter renders numbers with a fixed number of decimals.
type Formatter struct {
	Decimals int
}

// Value formats a single number.
func (f Formatter) Value(x float64) string {
	return strconv.FormatFloat(x, 'f', f.Decimals, 64)
}

// Interval formats a pair as "[lo, hi]".
func (f Formatter) Interval(iv [2]float64) string {
	return "[" + f.Value(iv[0]) + ", " + f.Value(iv[1]) + "]"
}

// FormatValues replaces every value of m by its formatted string. Numbers are
// formatted with Value and two-element intervals with Interval.
func (f Formatter) FormatValues(m map[string]any) error {
	for k, v := range m {
		s, err := f.format(v)
		if err != nil {
			return errors.Wrapf(err, "%q", k)
		}
		m[k] = s
	}
	return nil
}

func (f Formatter) format(v any) (string, error) {
	switch x := v.(type) {
	case float64:
		return f.Value(x), nil
	case float32:
		return f.Value(float64(x)), nil
	case int:
		return f.Value(float64(x)), nil
	case int64:
		return f.Value(float64(x)), nil
	case [2]float64:
		return f.Interval(x), nil
	case []float64:
		if len(x) != 2 {
			return "", errors.Errorf("interval has %d values", len(x))
		}
		return f.Interval([2]float64{x[0], x[1]}), nil
	case []int:
		if len(x) != 2 {
			return "", errors.Errorf("interval has %d values", len(x))
		}
		return f.Interval([2]float64{float64(x[0]), float64(x[1])}), nil
	case string:
		return x, nil
	default:
		return "", errors.Errorf("cannot format %T", v)
	}
}
